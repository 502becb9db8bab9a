package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite audit store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements audit.Store on SQLite.
type SQLiteStore struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewSQLiteStore opens (or creates) the database and applies the schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertEvent)
	if err != nil {
		return audit.NewStorageError("sqlite", "prepare", err)
	}
	s.insertStmt = stmt
	return nil
}

// Append inserts an event. A missing ID is generated.
func (s *SQLiteStore) Append(ctx context.Context, event *audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return audit.NewStorageError("sqlite", "marshal_payload", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.insertStmt.ExecContext(ctx,
		event.ID, event.ExecutionID, nullString(event.TenantID), event.Sequence,
		nullString(event.NodeID), nullString(event.NodeType), string(event.Type),
		event.Timestamp.UTC(), string(payload),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// QueryByExecution returns the execution's events ordered by time.
func (s *SQLiteStore) QueryByExecution(ctx context.Context, executionID string) ([]*audit.Event, error) {
	return s.Query(ctx, &audit.Query{ExecutionID: executionID})
}

// Query returns events matching the filters.
func (s *SQLiteStore) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	if query == nil {
		query = &audit.Query{}
	}
	where, args := buildWhereClause(query)

	sqlQuery := "SELECT " + selectColumns + " FROM audit_events"
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	order := "ASC"
	if query.Descending {
		order = "DESC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY timestamp %s, sequence %s, id %s", order, order, order)
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	} else if query.Offset > 0 {
		sqlQuery += " LIMIT -1"
	}
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	events := []*audit.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return events, nil
}

// Count returns the number of events matching the filters.
func (s *SQLiteStore) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM audit_events"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes events matching the filters.
func (s *SQLiteStore) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "DELETE FROM audit_events"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases the prepared statement and the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit store closed")
	return nil
}

// buildWhereClause returns the WHERE clause (without the keyword) and its args.
func buildWhereClause(query *audit.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.ExecutionID != "" {
		conditions = append(conditions, "execution_id = ?")
		args = append(args, query.ExecutionID)
	}
	if query.TenantID != "" {
		conditions = append(conditions, "tenant_id = ?")
		args = append(args, query.TenantID)
	}
	if query.NodeID != "" {
		conditions = append(conditions, "node_id = ?")
		args = append(args, query.NodeID)
	}
	if query.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.StartTime.UTC())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.EndTime.UTC())
	}
	if len(query.Types) > 0 {
		placeholders := make([]string, len(query.Types))
		for i, t := range query.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, "event_type IN ("+strings.Join(placeholders, ", ")+")")
	}

	return strings.Join(conditions, " AND "), args
}

func scanEvent(rows *sql.Rows) (*audit.Event, error) {
	var (
		event                      audit.Event
		tenantID, nodeID, nodeType sql.NullString
		eventType                  string
		payload                    sql.NullString
	)

	if err := rows.Scan(&event.ID, &event.ExecutionID, &tenantID, &event.Sequence,
		&nodeID, &nodeType, &eventType, &event.Timestamp, &payload); err != nil {
		return nil, err
	}

	event.TenantID = tenantID.String
	event.NodeID = nodeID.String
	event.NodeType = nodeType.String
	event.Type = audit.EventType(eventType)

	if payload.Valid && payload.String != "" && payload.String != "null" {
		if err := json.Unmarshal([]byte(payload.String), &event.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &event, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
