package runtime

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
)

// trail numbers and forwards the audit events of one run. Sink failures are
// logged and never abort the run.
type trail struct {
	sink   audit.Sink
	meta   Meta
	seq    int64
	now    func() time.Time
	logger *slog.Logger
}

func (t *trail) record(ctx context.Context, eventType audit.EventType, node *workflow.CompiledNode, payload map[string]any) {
	t.seq++
	if t.sink == nil {
		return
	}

	event := &audit.Event{
		ExecutionID: t.meta.ExecutionID,
		TenantID:    t.meta.TenantID,
		Sequence:    t.seq,
		Type:        eventType,
		Timestamp:   t.now(),
		Payload:     payload,
	}
	if node != nil {
		event.NodeID = node.ID
		event.NodeType = string(node.Type)
	}

	if err := t.sink.Append(ctx, event); err != nil {
		t.logger.Warn("failed to append audit event",
			"error", err,
			"event_type", eventType,
			"sequence", t.seq,
		)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
