package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Connect opens a GORM Postgres connection and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresRepository stores records in Postgres through GORM. Graphs, plans,
// inputs and outputs are stored as jsonb.
type PostgresRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPostgresRepository wraps an open connection.
func NewPostgresRepository(db *gorm.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger.With("component", "persistence"),
	}
}

// OpenPostgres connects, migrates and returns a repository.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	repo := NewPostgresRepository(db, nil)
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate creates or updates the workflow and execution tables.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&workflowModel{}, &executionModel{}); err != nil {
		return fmt.Errorf("migrate persistence tables: %w", err)
	}
	return nil
}

// CreateWorkflow implements Repository.
func (r *PostgresRepository) CreateWorkflow(ctx context.Context, w *Workflow) error {
	row, err := workflowModelFromEntity(w)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("workflow %s: %w", w.ID, ErrConflict)
		}
		return r.logError("create_workflow", err, "workflow_id", w.ID)
	}
	return nil
}

// UpdateWorkflow implements Repository.
func (r *PostgresRepository) UpdateWorkflow(ctx context.Context, w *Workflow) error {
	row, err := workflowModelFromEntity(w)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&workflowModel{}).Where("id = ?", w.ID).Select("*").Updates(&row)
	if res.Error != nil {
		return r.logError("update_workflow", res.Error, "workflow_id", w.ID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("workflow %s: %w", w.ID, ErrNotFound)
	}
	return nil
}

// GetWorkflow implements Repository.
func (r *PostgresRepository) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var row workflowModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
		}
		return nil, r.logError("get_workflow", err, "workflow_id", id)
	}
	return row.toEntity()
}

// ListWorkflows implements Repository.
func (r *PostgresRepository) ListWorkflows(ctx context.Context, tenantID string) ([]*Workflow, error) {
	tx := r.db.WithContext(ctx).Model(&workflowModel{})
	if tenantID != "" {
		tx = tx.Where("tenant_id = ?", tenantID)
	}
	var rows []workflowModel
	if err := tx.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("list_workflows", err, "tenant_id", tenantID)
	}

	out := make([]*Workflow, 0, len(rows))
	for i := range rows {
		w, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// CreateExecution implements Repository.
func (r *PostgresRepository) CreateExecution(ctx context.Context, e *Execution) error {
	row, err := executionModelFromEntity(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("execution %s: %w", e.ID, ErrConflict)
		}
		return r.logError("create_execution", err, "execution_id", e.ID)
	}
	return nil
}

// UpdateExecution implements Repository.
func (r *PostgresRepository) UpdateExecution(ctx context.Context, e *Execution) error {
	row, err := executionModelFromEntity(e)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&executionModel{}).Where("id = ?", e.ID).Select("*").Updates(&row)
	if res.Error != nil {
		return r.logError("update_execution", res.Error, "execution_id", e.ID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("execution %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

// GetExecution implements Repository.
func (r *PostgresRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	var row executionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("execution %s: %w", id, ErrNotFound)
		}
		return nil, r.logError("get_execution", err, "execution_id", id)
	}
	return row.toEntity()
}

// ListExecutions implements Repository.
func (r *PostgresRepository) ListExecutions(ctx context.Context, workflowID string) ([]*Execution, error) {
	var rows []executionModel
	if err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("started_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("list_executions", err, "workflow_id", workflowID)
	}

	out := make([]*Execution, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *PostgresRepository) logError(op string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+4)
	fields = append(fields, "op", op, "error", err.Error())
	fields = append(fields, attrs...)
	r.logger.Error("persistence operation failed", fields...)
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type workflowModel struct {
	ID         string     `gorm:"column:id;primaryKey"`
	TenantID   string     `gorm:"column:tenant_id;index"`
	Name       string     `gorm:"column:name"`
	Version    int        `gorm:"column:version"`
	Status     string     `gorm:"column:status"`
	Graph      []byte     `gorm:"column:graph;type:jsonb"`
	Plan       []byte     `gorm:"column:plan;type:jsonb"`
	Inspection string     `gorm:"column:inspection"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
	DeployedAt *time.Time `gorm:"column:deployed_at"`
}

func (workflowModel) TableName() string {
	return "workflows"
}

func workflowModelFromEntity(w *Workflow) (workflowModel, error) {
	graph, err := marshalJSON(w.Graph)
	if err != nil {
		return workflowModel{}, fmt.Errorf("encode graph: %w", err)
	}
	plan, err := marshalJSON(w.Plan)
	if err != nil {
		return workflowModel{}, fmt.Errorf("encode plan: %w", err)
	}
	return workflowModel{
		ID:         w.ID,
		TenantID:   w.TenantID,
		Name:       w.Name,
		Version:    w.Version,
		Status:     string(w.Status),
		Graph:      graph,
		Plan:       plan,
		Inspection: w.Inspection,
		CreatedAt:  w.CreatedAt.UTC(),
		UpdatedAt:  w.UpdatedAt.UTC(),
		DeployedAt: w.DeployedAt,
	}, nil
}

func (m workflowModel) toEntity() (*Workflow, error) {
	w := &Workflow{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Name:       m.Name,
		Version:    m.Version,
		Status:     WorkflowStatus(m.Status),
		Inspection: m.Inspection,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		DeployedAt: m.DeployedAt,
	}
	if len(m.Graph) > 0 {
		w.Graph = &workflow.Graph{}
		if err := json.Unmarshal(m.Graph, w.Graph); err != nil {
			return nil, fmt.Errorf("decode graph of workflow %s: %w", m.ID, err)
		}
	}
	if len(m.Plan) > 0 {
		w.Plan = &workflow.Plan{}
		if err := json.Unmarshal(m.Plan, w.Plan); err != nil {
			return nil, fmt.Errorf("decode plan of workflow %s: %w", m.ID, err)
		}
	}
	return w, nil
}

type executionModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	TenantID        string     `gorm:"column:tenant_id;index"`
	WorkflowID      string     `gorm:"column:workflow_id;index"`
	WorkflowVersion int        `gorm:"column:workflow_version"`
	Status          string     `gorm:"column:status"`
	Input           []byte     `gorm:"column:input;type:jsonb"`
	Output          []byte     `gorm:"column:output;type:jsonb"`
	RiskScore       *float64   `gorm:"column:risk_score"`
	RiskLevel       *string    `gorm:"column:risk_level"`
	Decision        *string    `gorm:"column:decision"`
	RouteReason     string     `gorm:"column:route_reason"`
	Steps           int        `gorm:"column:steps"`
	Error           string     `gorm:"column:error"`
	StartedAt       time.Time  `gorm:"column:started_at"`
	FinishedAt      *time.Time `gorm:"column:finished_at"`
}

func (executionModel) TableName() string {
	return "executions"
}

func executionModelFromEntity(e *Execution) (executionModel, error) {
	input, err := marshalJSON(e.Input)
	if err != nil {
		return executionModel{}, fmt.Errorf("encode input: %w", err)
	}
	output, err := marshalJSON(e.Output)
	if err != nil {
		return executionModel{}, fmt.Errorf("encode output: %w", err)
	}
	row := executionModel{
		ID:              e.ID,
		TenantID:        e.TenantID,
		WorkflowID:      e.WorkflowID,
		WorkflowVersion: e.WorkflowVersion,
		Status:          string(e.Status),
		Input:           input,
		Output:          output,
		RiskScore:       e.RiskScore,
		Decision:        e.Decision,
		RouteReason:     e.RouteReason,
		Steps:           e.Steps,
		Error:           e.Error,
		StartedAt:       e.StartedAt.UTC(),
		FinishedAt:      e.FinishedAt,
	}
	if e.RiskLevel != "" {
		level := e.RiskLevel
		row.RiskLevel = &level
	}
	return row, nil
}

func (m executionModel) toEntity() (*Execution, error) {
	e := &Execution{
		ID:              m.ID,
		TenantID:        m.TenantID,
		WorkflowID:      m.WorkflowID,
		WorkflowVersion: m.WorkflowVersion,
		Status:          runtime.Status(m.Status),
		RiskScore:       m.RiskScore,
		Decision:        m.Decision,
		RouteReason:     m.RouteReason,
		Steps:           m.Steps,
		Error:           m.Error,
		StartedAt:       m.StartedAt,
		FinishedAt:      m.FinishedAt,
	}
	if m.RiskLevel != nil {
		e.RiskLevel = *m.RiskLevel
	}
	if len(m.Input) > 0 {
		if err := json.Unmarshal(m.Input, &e.Input); err != nil {
			return nil, fmt.Errorf("decode input of execution %s: %w", m.ID, err)
		}
	}
	if len(m.Output) > 0 {
		if err := json.Unmarshal(m.Output, &e.Output); err != nil {
			return nil, fmt.Errorf("decode output of execution %s: %w", m.ID, err)
		}
	}
	return e, nil
}

// marshalJSON encodes v, mapping nil values to a NULL column.
func marshalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

var _ Repository = (*PostgresRepository)(nil)
