// Package export writes audit trails as JSON or CSV.
package export

import (
	"context"
	"io"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
)

// Exporter writes audit events to w.
type Exporter interface {
	Export(ctx context.Context, events []*audit.Event, w io.Writer) error
}

// ForFormat returns the exporter for "json" or "csv".
func ForFormat(format string, pretty bool) (Exporter, bool) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), true
	case "csv":
		return NewCSVExporter(true), true
	default:
		return nil, false
	}
}
