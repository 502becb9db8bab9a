package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    execution_id TEXT NOT NULL,
    tenant_id TEXT,
    sequence INTEGER NOT NULL,
    node_id TEXT,
    node_type TEXT,
    event_type TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    payload TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_execution ON audit_events(execution_id, timestamp, sequence);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_events(tenant_id);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version if it is not present yet.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion returns the latest applied schema version.
const GetSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`

const insertEvent = `
INSERT INTO audit_events (
    id, execution_id, tenant_id, sequence, node_id, node_type, event_type, timestamp, payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `id, execution_id, tenant_id, sequence, node_id, node_type, event_type, timestamp, payload`
