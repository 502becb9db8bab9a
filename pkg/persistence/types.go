package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when creating a record whose id is taken.
	ErrConflict = errors.New("record already exists")
)

// WorkflowStatus is the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowDraft    WorkflowStatus = "DRAFT"
	WorkflowDeployed WorkflowStatus = "DEPLOYED"
)

// Workflow is a stored workflow definition and, once deployed, its plan.
type Workflow struct {
	ID       string         `json:"id"`
	TenantID string         `json:"tenantId"`
	Name     string         `json:"name"`
	Version  int            `json:"version"`
	Status   WorkflowStatus `json:"status"`

	Graph *workflow.Graph `json:"graph"`

	// Plan and Inspection are set by deployment.
	Plan       *workflow.Plan `json:"plan,omitempty"`
	Inspection string         `json:"inspection,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	DeployedAt *time.Time `json:"deployedAt,omitempty"`
}

// Execution is the record of one workflow run.
type Execution struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenantId"`
	WorkflowID      string         `json:"workflowId"`
	WorkflowVersion int            `json:"workflowVersion"`
	Status          runtime.Status `json:"status"`

	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output,omitempty"`

	// RiskScore, RiskLevel and Decision stay empty for FAILED runs.
	RiskScore *float64 `json:"riskScore,omitempty"`
	RiskLevel string   `json:"riskLevel,omitempty"`
	Decision  *string  `json:"decision,omitempty"`

	RouteReason string `json:"routeReason,omitempty"`
	Steps       int    `json:"steps"`
	Error       string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Repository is the CRUD collaborator for workflows and executions.
type Repository interface {
	// CreateWorkflow inserts w. Returns ErrConflict when the id exists.
	CreateWorkflow(ctx context.Context, w *Workflow) error

	// UpdateWorkflow replaces an existing workflow. Returns ErrNotFound when
	// the id does not exist.
	UpdateWorkflow(ctx context.Context, w *Workflow) error

	GetWorkflow(ctx context.Context, id string) (*Workflow, error)

	// ListWorkflows returns the workflows of a tenant ordered by creation.
	// An empty tenant lists every workflow.
	ListWorkflows(ctx context.Context, tenantID string) ([]*Workflow, error)

	// CreateExecution inserts e. Returns ErrConflict when the id exists.
	CreateExecution(ctx context.Context, e *Execution) error

	// UpdateExecution replaces an existing execution.
	UpdateExecution(ctx context.Context, e *Execution) error

	GetExecution(ctx context.Context, id string) (*Execution, error)

	// ListExecutions returns the executions of a workflow ordered by start.
	ListExecutions(ctx context.Context, workflowID string) ([]*Execution, error)

	Close() error
}
