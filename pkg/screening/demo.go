package screening

import (
	"context"
	"strings"
)

// DemoEntry is an entry of the built-in demonstration list. A subject matches
// when its name contains any keyword, case-insensitively.
type DemoEntry struct {
	Candidate
	Keywords []string
}

// DemoConfidence is the similarity assigned to a demonstration list match.
const DemoConfidence = 95.0

// DemoList is the offline fallback list.
type DemoList struct {
	entries map[ListType][]DemoEntry
}

// NewDemoList returns the built-in demonstration list.
func NewDemoList() *DemoList {
	return &DemoList{entries: map[ListType][]DemoEntry{
		ListSanctions: {
			{Candidate: Candidate{EntityID: "demo-sdn-001", Name: "Osama Bin Laden", Lists: []string{"DEMO-SDN"}, Topics: []string{"sanction"}}, Keywords: []string{"osama"}},
			{Candidate: Candidate{EntityID: "demo-sdn-002", Name: "Sanctioned Person", Lists: []string{"DEMO-SDN"}, Topics: []string{"sanction"}}, Keywords: []string{"sanctioned person"}},
		},
		ListPEP: {
			{Candidate: Candidate{EntityID: "demo-pep-001", Name: "Joe Biden", Lists: []string{"DEMO-PEP"}, Topics: []string{"role.pep"}}, Keywords: []string{"biden"}},
		},
		ListWatchlist: {
			{Candidate: Candidate{EntityID: "demo-wl-001", Name: "Watched Person", Lists: []string{"DEMO-WATCHLIST"}, Topics: []string{"poi"}}, Keywords: []string{"watched person"}},
		},
		ListAdverseMedia: {
			{Candidate: Candidate{EntityID: "demo-media-001", Name: "Scandal Subject", Lists: []string{"DEMO-MEDIA"}, Topics: []string{"crime"}}, Keywords: []string{"scandal"}},
		},
	}}
}

// Name implements Provider.
func (d *DemoList) Name() string { return "demo" }

// Match implements Provider using keyword containment.
func (d *DemoList) Match(ctx context.Context, list ListType, subject Subject) ([]Candidate, error) {
	name := Normalize(subject.Name)
	if name == "" {
		return nil, nil
	}

	var out []Candidate
	for _, entry := range d.entries[list] {
		for _, keyword := range entry.Keywords {
			if strings.Contains(name, keyword) {
				out = append(out, entry.Candidate)
				break
			}
		}
	}
	return out, nil
}
