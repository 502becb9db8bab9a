package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoCredentials is returned by HTTPProvider when no API key is configured.
var ErrNoCredentials = errors.New("screening provider credentials not configured")

// HTTPConfig configures an HTTP list-matching provider speaking the
// OpenSanctions-style /match API.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. https://api.opensanctions.org.
	BaseURL string

	// APIKey is sent as "Authorization: ApiKey <key>".
	APIKey string

	// Dataset is the collection to match against. Default: "default".
	Dataset string

	// Timeout bounds one request. Default: 5s.
	Timeout time.Duration
}

// HTTPProvider calls a remote match API.
type HTTPProvider struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPProvider creates an HTTP provider.
func NewHTTPProvider(config HTTPConfig) *HTTPProvider {
	if config.Dataset == "" {
		config.Dataset = "default"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &HTTPProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return "http" }

type matchQuery struct {
	Schema     string              `json:"schema"`
	Properties map[string][]string `json:"properties"`
}

type matchRequest struct {
	Queries map[string]matchQuery `json:"queries"`
}

type matchResponse struct {
	Responses map[string]struct {
		Results []struct {
			ID         string              `json:"id"`
			Caption    string              `json:"caption"`
			Score      float64             `json:"score"`
			Datasets   []string            `json:"datasets"`
			Properties map[string][]string `json:"properties"`
		} `json:"results"`
	} `json:"responses"`
}

// listTopics maps a list type to the provider topics that qualify an entity.
// Watchlist accepts any entity.
var listTopics = map[ListType][]string{
	ListSanctions:    {"sanction"},
	ListPEP:          {"role.pep", "role.rca"},
	ListAdverseMedia: {"crime", "crime.fin", "crime.terror", "reg.warn"},
}

// Match implements Provider.
func (p *HTTPProvider) Match(ctx context.Context, list ListType, subject Subject) ([]Candidate, error) {
	if p.config.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if p.config.BaseURL == "" {
		return nil, errors.New("screening provider base URL not configured")
	}

	props := map[string][]string{"name": {subject.Name}}
	if subject.DateOfBirth != "" {
		props["birthDate"] = []string{subject.DateOfBirth}
	}
	if subject.Nationality != "" {
		props["nationality"] = []string{subject.Nationality}
	}
	body, err := json.Marshal(matchRequest{Queries: map[string]matchQuery{
		"subject": {Schema: "Person", Properties: props},
	}})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(p.config.BaseURL, "/") + "/match/" + p.config.Dataset
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ApiKey "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var out []Candidate
	for _, r := range decoded.Responses["subject"].Results {
		topics := r.Properties["topics"]
		if !hasTopic(topics, listTopics[list]) {
			continue
		}
		out = append(out, Candidate{
			EntityID:      r.ID,
			Name:          r.Caption,
			Lists:         r.Datasets,
			Topics:        topics,
			ProviderScore: r.Score,
		})
	}
	return out, nil
}

func hasTopic(topics, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, t := range topics {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}
