// Package secrets resolves ${secret:name} references in configuration
// values against environment variables and mounted secret files.
//
// Providers are tried in order; the first that has the secret wins:
//
//	m := secrets.NewManager(
//		secrets.NewFileProvider("/run/secrets"),
//		secrets.NewEnvProvider(secrets.DefaultEnvPrefix),
//	)
//	dsn, err := m.Resolve(ctx, "postgres://app:${secret:db-password}@db/kyc")
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultEnvPrefix namespaces secret environment variables.
const DefaultEnvPrefix = "KYCAML_SECRET_"

// ErrNotFound is returned when no provider has the secret.
var ErrNotFound = errors.New("secret not found")

var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Provider retrieves secrets by name.
type Provider interface {
	// GetSecret returns the secret value, or an error wrapping ErrNotFound
	// when the provider does not hold it.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name identifies the provider in logs.
	Name() string
}

// Manager tries providers in priority order.
type Manager struct {
	providers []Provider
	logger    *slog.Logger
}

// NewManager creates a manager over providers, highest priority first.
func NewManager(providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		logger:    slog.Default().With("component", "secrets"),
	}
}

// GetSecret returns the value from the first provider holding name.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if err == nil {
			m.logger.Debug("secret resolved", "provider", p.Name(), "secret", redactName(name))
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s provider: %w", p.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Resolve replaces every ${secret:name} reference in s. Unresolvable
// references are reported together and leave s unchanged.
func (m *Manager) Resolve(ctx context.Context, s string) (string, error) {
	if !strings.Contains(s, "${secret:") {
		return s, nil
	}
	var errs []error
	out := refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := refPattern.FindStringSubmatch(ref)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return ref
		}
		return value
	})
	if len(errs) > 0 {
		return s, errors.Join(errs...)
	}
	return out, nil
}

// ResolveAll resolves each field in place.
func (m *Manager) ResolveAll(ctx context.Context, fields map[string]*string) error {
	var errs []error
	for field, ptr := range fields {
		value, err := m.Resolve(ctx, *ptr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			continue
		}
		*ptr = value
	}
	return errors.Join(errs...)
}

func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "***"
}
