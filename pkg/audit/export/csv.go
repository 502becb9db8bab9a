package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
)

// CSVExporter exports audit events as CSV, one row per event.
// The payload column holds the JSON-encoded payload.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"id", "execution_id", "tenant_id", "sequence", "timestamp",
	"event_type", "node_id", "node_type", "payload",
}

// Export writes the events to w.
func (e *CSVExporter) Export(ctx context.Context, events []*audit.Event, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return audit.NewExportError("csv", len(events), err)
		}
	}

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := eventToRow(event)
		if err != nil {
			return audit.NewExportError("csv", i, err)
		}
		if err := writer.Write(row); err != nil {
			return audit.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(events), err)
	}
	return nil
}

func eventToRow(event *audit.Event) ([]string, error) {
	payload := ""
	if len(event.Payload) > 0 {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, err
		}
		payload = string(data)
	}

	return []string{
		event.ID,
		event.ExecutionID,
		event.TenantID,
		strconv.FormatInt(event.Sequence, 10),
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.Type),
		event.NodeID,
		event.NodeType,
		payload,
	}, nil
}
