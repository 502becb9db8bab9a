package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
)

// JSONExporter exports audit events as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes the events as a JSON array. An empty trail is written as [].
func (e *JSONExporter) Export(ctx context.Context, events []*audit.Event, w io.Writer) error {
	if events == nil {
		events = []*audit.Event{}
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(events, "", "  ")
	} else {
		data, err = json.Marshal(events)
	}
	if err != nil {
		return audit.NewExportError("json", len(events), err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", len(events), err)
	}
	return nil
}
