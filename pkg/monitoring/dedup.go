package monitoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
)

// KeyStrategy chooses how dedup keys are derived.
type KeyStrategy string

const (
	KeyTxnID KeyStrategy = "txn_id"
	KeyHash  KeyStrategy = "hash"
	KeyBoth  KeyStrategy = "both"
)

// DuplicateBehavior chooses what happens to a duplicate.
type DuplicateBehavior string

const (
	// DuplicateDrop removes duplicates from the output.
	DuplicateDrop DuplicateBehavior = "drop"
	// DuplicateLog keeps duplicates, flagged.
	DuplicateLog DuplicateBehavior = "log"
	// DuplicateFlag is an alias for DuplicateLog.
	DuplicateFlag DuplicateBehavior = "flag"
	// DuplicateAlert keeps duplicates, flagged and marked for alerting.
	DuplicateAlert DuplicateBehavior = "alert"
)

const dedupKeyPrefix = "dedup:"

// ConfigError reports an invalid stage configuration.
type ConfigError struct {
	Field string
	Value string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// DedupConfig configures the Deduplicator. JSON names follow the node config.
type DedupConfig struct {
	KeyStrategy       KeyStrategy       `json:"keyStrategy"`
	HashFields        []string          `json:"hashFields"`
	TTLDays           float64           `json:"ttlDays"`
	DuplicateBehavior DuplicateBehavior `json:"duplicateBehavior"`
}

// DefaultDedupConfig returns txn_id keys, 30 day TTL and drop.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		KeyStrategy:       KeyTxnID,
		HashFields:        []string{"customer_id", "amount", "timestamp", "counterparty_id"},
		TTLDays:           30,
		DuplicateBehavior: DuplicateDrop,
	}
}

// TTL returns the entry lifetime.
func (c DedupConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays * float64(24*time.Hour))
}

// WithDefaults fills empty fields from DefaultDedupConfig.
func (c DedupConfig) WithDefaults() DedupConfig {
	def := DefaultDedupConfig()
	if c.KeyStrategy == "" {
		c.KeyStrategy = def.KeyStrategy
	}
	if c.DuplicateBehavior == "" {
		c.DuplicateBehavior = def.DuplicateBehavior
	}
	if len(c.HashFields) == 0 {
		c.HashFields = def.HashFields
	}
	return c
}

// Validate rejects unknown key strategies and duplicate behaviors.
func (c DedupConfig) Validate() error {
	switch c.KeyStrategy {
	case KeyTxnID, KeyHash, KeyBoth:
	default:
		return &ConfigError{Field: "keyStrategy", Value: string(c.KeyStrategy)}
	}
	switch c.DuplicateBehavior {
	case DuplicateDrop, DuplicateLog, DuplicateFlag, DuplicateAlert:
	default:
		return &ConfigError{Field: "duplicateBehavior", Value: string(c.DuplicateBehavior)}
	}
	return nil
}

// DedupEntry is the value stored per key.
type DedupEntry struct {
	Key         string    `json:"key"`
	TxnID       string    `json:"txn_id"`
	Timestamp   time.Time `json:"timestamp"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// DedupResult separates newly seen transactions from duplicates.
type DedupResult struct {
	// Unique are transactions whose keys were not seen within the TTL.
	Unique []Transaction `json:"unique"`
	// Duplicates are flagged copies of repeated transactions.
	Duplicates []Transaction `json:"duplicates"`
	// Output is what flows downstream: Unique, plus Duplicates unless they
	// are dropped.
	Output []Transaction `json:"output"`
	// AlertCandidates lists duplicate txn ids under the alert behavior.
	AlertCandidates []string `json:"alertCandidates"`
	// Purged is the number of expired entries removed before the run.
	Purged int64 `json:"purged"`
}

// Deduplicator detects repeated transactions against a shared keyed store.
type Deduplicator struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewDeduplicator creates a deduplicator over s.
func NewDeduplicator(s store.Store) *Deduplicator {
	return &Deduplicator{
		store:  s,
		logger: slog.Default().With("component", "monitoring.dedup"),
		now:    time.Now,
	}
}

// Run purges expired entries, then checks and records every transaction's
// keys under the tenant's key space. Each check-then-insert is atomic per
// key in the store.
func (d *Deduplicator) Run(ctx context.Context, tenant string, txns []Transaction, cfg DedupConfig) (*DedupResult, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	purged, err := d.store.Purge(ctx)
	if err != nil {
		return nil, fmt.Errorf("purge dedup store: %w", err)
	}

	res := &DedupResult{
		Unique:          []Transaction{},
		Duplicates:      []Transaction{},
		Output:          []Transaction{},
		AlertCandidates: []string{},
		Purged:          purged,
	}
	ttl := cfg.TTL()

	for _, src := range txns {
		t := src.clone()
		keys := DedupKeys(&t, cfg)
		fingerprint := ContentHash(&t, cfg.HashFields)
		t.DedupKey = strings.Join(keys, "|")

		dupOf, err := d.check(ctx, dedupKeyPrefix+tenant+":", &t, keys, fingerprint, ttl)
		if err != nil {
			return nil, err
		}
		if dupOf == "" {
			res.Unique = append(res.Unique, t)
			res.Output = append(res.Output, t)
			continue
		}

		t.IsDuplicate = true
		t.DuplicateOf = dupOf
		d.logger.Debug("duplicate transaction", "txn_id", t.TxnID, "duplicate_of", dupOf, "behavior", cfg.DuplicateBehavior)

		switch cfg.DuplicateBehavior {
		case DuplicateDrop:
		case DuplicateAlert:
			t.AlertOnDuplicate = true
			res.AlertCandidates = append(res.AlertCandidates, t.TxnID)
			res.Output = append(res.Output, t)
		case DuplicateLog, DuplicateFlag:
			res.Output = append(res.Output, t)
		}
		res.Duplicates = append(res.Duplicates, t)
	}
	return res, nil
}

// check returns the txn id of the first live entry among keys, or "" when
// every key was new. A duplicate records none of its keys, so a dropped
// transaction never claims its txn_id.
func (d *Deduplicator) check(ctx context.Context, prefix string, t *Transaction, keys []string, fingerprint string, ttl time.Duration) (string, error) {
	for _, key := range keys {
		existing, err := d.store.Get(ctx, prefix+key)
		if err != nil {
			return "", fmt.Errorf("dedup lookup %s: %w", key, err)
		}
		if existing != nil {
			return duplicateOf(existing, key), nil
		}
	}

	// Each insert is still atomic per key; a concurrent run that wins a key
	// between the lookup and here makes this transaction the duplicate.
	for _, key := range keys {
		value, err := json.Marshal(DedupEntry{Key: key, TxnID: t.TxnID, Timestamp: d.now(), Fingerprint: fingerprint})
		if err != nil {
			return "", err
		}
		existing, inserted, err := d.store.CheckAndInsert(ctx, prefix+key, value, ttl)
		if err != nil {
			return "", fmt.Errorf("dedup check %s: %w", key, err)
		}
		if !inserted {
			return duplicateOf(existing, key), nil
		}
	}
	return "", nil
}

func duplicateOf(existing *store.Entry, key string) string {
	var prev DedupEntry
	if existing != nil && json.Unmarshal(existing.Value, &prev) == nil && prev.TxnID != "" {
		return prev.TxnID
	}
	return key
}

// DedupKeys derives the store keys for t under cfg.KeyStrategy.
func DedupKeys(t *Transaction, cfg DedupConfig) []string {
	switch cfg.KeyStrategy {
	case KeyHash:
		return []string{"hash:" + ContentHash(t, cfg.HashFields)}
	case KeyBoth:
		return []string{"txn:" + t.TxnID, "hash:" + ContentHash(t, cfg.HashFields)}
	default:
		return []string{"txn:" + t.TxnID}
	}
}

// ContentHash is a SHA-256 over the named fields.
func ContentHash(t *Transaction, fields []string) string {
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{'='})
		h.Write([]byte(t.Field(f)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
