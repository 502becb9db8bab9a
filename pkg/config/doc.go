// Package config loads, defaults and validates the engine configuration.
//
// Configuration is read from a YAML file, filled with defaults and then
// overridden by environment variables named KYCAML_SECTION_FIELD:
//
//   - KYCAML_ENGINE_MAX_STEPS overrides engine.max_steps
//   - KYCAML_AUDIT_SQLITE_PATH overrides audit.sqlite.path
//   - KYCAML_PERSISTENCE_DSN overrides persistence.dsn
//
// Validation collects every problem into a ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - monitoring.redis_addr: address is required for the redis backend
//	  - audit.retention.schedule: invalid cron expression "daily": ...
//
// A minimal configuration file:
//
//	engine:
//	  max_steps: 50
//	  tenant_id: "acme"
//
//	workflows:
//	  path: "./workflows"
//	  watch: true
//
//	screening:
//	  base_url: "https://screening.example.com"
//	  api_key: "${secret:screening-api-key}"
//
//	secrets:
//	  dir: "/run/secrets"
//
//	monitoring:
//	  backend: "redis"
//	  redis_addr: "localhost:6379"
//
//	audit:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/audit.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
