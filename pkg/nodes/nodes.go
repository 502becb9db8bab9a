// Package nodes wires the four handler families into a registry.
package nodes

import (
	"fmt"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/identity"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/aml"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/kyc"
	noderisk "github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/risk"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/tm"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/risk"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/screening"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Deps are the collaborators shared by the handlers. Nil fields select
// offline defaults: the identity mock, demonstration-list screening, a
// process-local monitoring store and no webhook delivery.
type Deps struct {
	Identity   identity.Provider
	Screener   *screening.Screener
	Monitoring *monitoring.Pipeline
	Poster     noderisk.Poster
	Risk       risk.Config
}

// RegisterAll registers every node handler with reg.
func RegisterAll(reg *runtime.Registry, deps Deps) error {
	families := []struct {
		name     string
		register func(*runtime.Registry) error
	}{
		{"kyc", kyc.New(deps.Identity).Register},
		{"aml", aml.New(deps.Screener).Register},
		{"risk", noderisk.New(deps.Risk, deps.Poster).Register},
		{"tm", tm.New(deps.Monitoring).Register},
	}
	for _, f := range families {
		if err := f.register(reg); err != nil {
			return fmt.Errorf("register %s handlers: %w", f.name, err)
		}
	}
	return nil
}

// NewRegistry returns a registry with every handler registered.
func NewRegistry(deps Deps) (*runtime.Registry, error) {
	reg := runtime.NewRegistry()
	if err := RegisterAll(reg, deps); err != nil {
		return nil, err
	}
	return reg, nil
}
