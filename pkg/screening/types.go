package screening

import (
	"context"
	"fmt"
	"time"
)

// ListType is a screening list category.
type ListType string

const (
	ListSanctions    ListType = "SANCTIONS"
	ListPEP          ListType = "PEP"
	ListWatchlist    ListType = "WATCHLIST"
	ListAdverseMedia ListType = "ADVERSE_MEDIA"
)

// Source identifies where a result came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

// DefaultMatchThreshold is the minimum similarity (0-100) for a hit.
const DefaultMatchThreshold = 80.0

// Subject is the person being screened.
type Subject struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dob,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

// Candidate is a list entry returned by a provider or the demo list.
type Candidate struct {
	EntityID string   `json:"entityId"`
	Name     string   `json:"name"`
	Lists    []string `json:"lists,omitempty"`
	Topics   []string `json:"topics,omitempty"`

	// ProviderScore is the provider's own 0-1 confidence, if reported.
	ProviderScore float64 `json:"providerScore,omitempty"`
}

// Match is a candidate scored against the subject.
type Match struct {
	Candidate
	Similarity float64 `json:"similarity"`
}

// Result is the outcome of screening one subject against one list.
type Result struct {
	List      ListType  `json:"list"`
	Subject   Subject   `json:"subject"`
	Hit       bool      `json:"hit"`
	Matches   []Match   `json:"matches"`
	Threshold float64   `json:"threshold"`
	Source    Source    `json:"source"`
	Degraded  bool      `json:"degraded"`
	Provider  string    `json:"provider,omitempty"`
	Error     string    `json:"providerError,omitempty"`
	Checked   time.Time `json:"checkedAt"`
}

// TopMatch returns the highest scoring match, if any.
func (r *Result) TopMatch() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}

// Provider is an external list-matching service.
type Provider interface {
	Name() string
	Match(ctx context.Context, list ListType, subject Subject) ([]Candidate, error)
}

// ProviderError reports a failed provider call.
type ProviderError struct {
	Provider string
	List     ListType
	Cause    error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("screening provider %s failed for %s: %v", e.Provider, e.List, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}
