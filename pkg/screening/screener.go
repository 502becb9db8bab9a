package screening

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Observer receives one call per screening with the source that answered.
type Observer interface {
	ObserveScreening(list ListType, source Source, hit bool)
}

// Config configures a Screener.
type Config struct {
	// MatchThreshold is the minimum similarity (0-100). Default: 80.
	MatchThreshold float64

	// DisableFallback turns off the demonstration list. A provider failure
	// then yields an empty, degraded result.
	DisableFallback bool
}

// Screener screens subjects against a provider with a demonstration-list
// fallback.
type Screener struct {
	provider Provider
	fallback Provider
	config   Config
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewScreener creates a screener. provider may be nil, in which case every
// call uses the fallback.
func NewScreener(provider Provider, config Config) *Screener {
	if config.MatchThreshold <= 0 {
		config.MatchThreshold = DefaultMatchThreshold
	}
	s := &Screener{
		provider: provider,
		config:   config,
		logger:   slog.Default().With("component", "screening"),
		now:      time.Now,
	}
	if !config.DisableFallback {
		s.fallback = NewDemoList()
	}
	return s
}

// SetObserver attaches an observer.
func (s *Screener) SetObserver(o Observer) {
	s.observer = o
}

// Threshold returns the configured match threshold.
func (s *Screener) Threshold() float64 {
	return s.config.MatchThreshold
}

// Screen checks subject against list. threshold overrides the configured
// threshold when positive. Provider failures never surface as errors.
func (s *Screener) Screen(ctx context.Context, list ListType, subject Subject, threshold float64) *Result {
	if threshold <= 0 {
		threshold = s.config.MatchThreshold
	}
	result := &Result{
		List:      list,
		Subject:   subject,
		Threshold: threshold,
		Matches:   []Match{},
		Checked:   s.now(),
	}

	if s.provider != nil {
		candidates, err := s.provider.Match(ctx, list, subject)
		if err == nil {
			result.Source = SourceProvider
			result.Provider = s.provider.Name()
			s.score(result, candidates, false)
			s.observe(result)
			return result
		}

		perr := &ProviderError{Provider: s.provider.Name(), List: list, Cause: err}
		result.Error = perr.Error()
		s.logger.Warn("screening provider failed, using fallback",
			"provider", s.provider.Name(),
			"list", list,
			"error", err,
		)
	}

	result.Degraded = true
	result.Source = SourceFallback
	if s.fallback != nil {
		result.Provider = s.fallback.Name()
		candidates, _ := s.fallback.Match(ctx, list, subject)
		s.score(result, candidates, true)
	}
	s.observe(result)
	return result
}

// score rates candidates, drops those below the threshold and orders the
// rest by similarity. Demonstration matches are rated DemoConfidence.
func (s *Screener) score(result *Result, candidates []Candidate, demo bool) {
	for _, c := range candidates {
		similarity := Similarity(result.Subject.Name, c.Name)
		if demo {
			similarity = max(similarity, DemoConfidence)
		}
		if similarity < result.Threshold {
			continue
		}
		result.Matches = append(result.Matches, Match{Candidate: c, Similarity: similarity})
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Similarity > result.Matches[j].Similarity
	})
	result.Hit = len(result.Matches) > 0
}

func (s *Screener) observe(result *Result) {
	if s.observer != nil {
		s.observer.ObserveScreening(result.List, result.Source, result.Hit)
	}
}
