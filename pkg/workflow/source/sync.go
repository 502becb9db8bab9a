package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/persistence"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/compiler"
)

// Deployer saves and deploys workflows. *engine.Engine satisfies it.
type Deployer interface {
	Save(ctx context.Context, id, tenantID, name string, graph *workflow.Graph) (*persistence.Workflow, error)
	Deploy(ctx context.Context, workflowID string) (*persistence.Workflow, *compiler.Result, error)
}

// SyncReport summarizes one Sync pass.
type SyncReport struct {
	Deployed  []string
	Unchanged []string
	Failed    map[string]error
}

// Syncer deploys the graphs of a FileSource. Files whose content has not
// changed since the last successful deploy are skipped.
type Syncer struct {
	source   *FileSource
	deployer Deployer
	tenantID string
	logger   *slog.Logger

	mu     sync.Mutex
	hashes map[string]string
}

// NewSyncer creates a syncer deploying into tenantID.
func NewSyncer(src *FileSource, deployer Deployer, tenantID string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		source:   src,
		deployer: deployer,
		tenantID: tenantID,
		logger:   logger.With("component", "workflow.sync"),
		hashes:   make(map[string]string),
	}
}

// Sync saves and deploys every changed workflow. A graph that fails to
// compile is reported in SyncReport.Failed and its stored workflow stays
// DRAFT until a valid graph is deployed.
func (s *Syncer) Sync(ctx context.Context) (*SyncReport, error) {
	defs, err := s.source.Load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &SyncReport{Failed: map[string]error{}}
	for _, def := range defs {
		sum, err := digest(def.Graph)
		if err != nil {
			report.Failed[def.ID] = err
			continue
		}
		if s.hashes[def.ID] == sum {
			report.Unchanged = append(report.Unchanged, def.ID)
			continue
		}

		if _, err := s.deployer.Save(ctx, def.ID, s.tenantID, def.ID, def.Graph); err != nil {
			report.Failed[def.ID] = err
			continue
		}
		w, _, err := s.deployer.Deploy(ctx, def.ID)
		if err != nil {
			var compileErr *compiler.CompileError
			if errors.As(err, &compileErr) {
				s.logger.Warn("workflow file does not compile", "workflow_id", def.ID, "path", def.Path, "error", err)
			}
			report.Failed[def.ID] = err
			continue
		}

		s.hashes[def.ID] = sum
		report.Deployed = append(report.Deployed, def.ID)
		s.logger.Info("workflow synced from file", "workflow_id", def.ID, "path", def.Path, "version", w.Version)
	}
	return report, nil
}

// Run syncs once and then redeploys on every file change until ctx is
// cancelled.
func (s *Syncer) Run(ctx context.Context, config *WatcherConfig) error {
	if _, err := s.Sync(ctx); err != nil {
		return err
	}

	if config == nil {
		config = DefaultWatcherConfig()
	}
	config.Path = s.source.Path()
	w, err := NewWatcher(config, s.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Watch(ctx, func(ctx context.Context) error {
		report, err := s.Sync(ctx)
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d workflow(s) failed to deploy", len(report.Failed))
		}
		return nil
	})
}

func digest(g *workflow.Graph) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to encode graph: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
