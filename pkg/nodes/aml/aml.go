// Package aml implements the watchlist screening node handlers. Each
// screening type writes its own entry under data.aml, keyed by list type,
// leaving the entries of other screenings untouched.
package aml

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/internal/values"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/kyc"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/screening"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Namespace is the data namespace written by every screening handler.
const Namespace = "aml"

// NodeConfig is the per-node screening configuration.
type NodeConfig struct {
	// MatchThreshold overrides the screener threshold when positive.
	MatchThreshold float64 `json:"matchThreshold"`

	// EnableDemoFallback keeps demonstration-list matches when the
	// provider is unavailable. Default: true.
	EnableDemoFallback bool `json:"enableDemoFallback"`
}

// Handlers holds the screening handlers.
type Handlers struct {
	screener *screening.Screener
	logger   *slog.Logger
}

// New creates screening handlers. A nil screener screens against the
// demonstration list only.
func New(screener *screening.Screener) *Handlers {
	if screener == nil {
		screener = screening.NewScreener(nil, screening.Config{})
	}
	return &Handlers{
		screener: screener,
		logger:   slog.Default().With("component", "nodes.aml"),
	}
}

// Register binds the four screening node types.
func (h *Handlers) Register(reg *runtime.Registry) error {
	bindings := map[workflow.NodeType]screening.ListType{
		workflow.NodeAMLSanctionsScreen:    screening.ListSanctions,
		workflow.NodeAMLPEPScreen:          screening.ListPEP,
		workflow.NodeAMLWatchlistScreen:    screening.ListWatchlist,
		workflow.NodeAMLAdverseMediaScreen: screening.ListAdverseMedia,
	}
	for t, list := range bindings {
		if err := reg.Register(t, h.Screen(list)); err != nil {
			return err
		}
	}
	return nil
}

// Screen returns the handler for one list type.
func (h *Handlers) Screen(list screening.ListType) runtime.Handler {
	return func(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
		cfg := NodeConfig{EnableDemoFallback: true}
		if err := values.Decode(node.Config, &cfg); err != nil {
			return nil, fmt.Errorf("%s screening: %w", list, err)
		}

		subject := Subject(ec)
		res := h.screener.Screen(ctx, list, subject, cfg.MatchThreshold)
		if res.Degraded && !cfg.EnableDemoFallback {
			res.Matches = nil
			res.Hit = false
		}

		entry := map[string]any{
			"hit":           res.Hit,
			"matchedEntity": nil,
			"confidence":    0.0,
			"source":        string(res.Source),
			"degraded":      res.Degraded,
			"threshold":     res.Threshold,
			"matchCount":    len(res.Matches),
			"checkedAt":     res.Checked.UTC().Format(time.RFC3339),
		}
		if top, ok := res.TopMatch(); ok && res.Hit {
			entry["matchedEntity"] = top.Candidate.Name
			entry["entityId"] = top.Candidate.EntityID
			entry["confidence"] = top.Similarity / 100
		}
		if res.Error != "" {
			entry["providerError"] = res.Error
		}

		if res.Hit {
			h.logger.Info("screening hit",
				"execution_id", ec.ExecutionID,
				"list", list,
				"subject", subject.Name,
				"source", res.Source,
			)
		}

		return runtime.NewUpdate().Extend(ec, Namespace, map[string]any{string(list): entry}), nil
	}
}

// Subject derives the screening subject from the OCR extraction, then the
// registered client, then "Unknown".
func Subject(ec *runtime.ExecutionContext) screening.Subject {
	name := values.String(ec.Data, "ocr", "extracted", "name")
	if name == "" {
		name = values.String(ec.Data, "client", "givenName")
	}
	if name == "" {
		name = "Unknown"
	}
	client := kyc.Client(ec)
	return screening.Subject{
		Name:        name,
		DateOfBirth: client.DateOfBirth,
		Nationality: client.Nationality,
	}
}
