package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	executionIDKey contextKey = "execution_id"
	tenantIDKey    contextKey = "tenant_id"
	workflowIDKey  contextKey = "workflow_id"
)

// WithExecutionID adds an execution ID to the context.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionIDKey, id)
}

// GetExecutionID retrieves the execution ID from the context.
func GetExecutionID(ctx context.Context) string {
	id, _ := ctx.Value(executionIDKey).(string)
	return id
}

// WithTenantID adds a tenant ID to the context.
func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// GetTenantID retrieves the tenant ID from the context.
func GetTenantID(ctx context.Context) string {
	id, _ := ctx.Value(tenantIDKey).(string)
	return id
}

// WithWorkflowID adds a workflow ID to the context.
func WithWorkflowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workflowIDKey, id)
}

// GetWorkflowID retrieves the workflow ID from the context.
func GetWorkflowID(ctx context.Context) string {
	id, _ := ctx.Value(workflowIDKey).(string)
	return id
}

// contextAttrs extracts the identifiers present in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id := GetExecutionID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(executionIDKey), id))
	}
	if id := GetTenantID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(tenantIDKey), id))
	}
	if id := GetWorkflowID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(workflowIDKey), id))
	}
	return attrs
}
