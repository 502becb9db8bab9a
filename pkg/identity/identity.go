// Package identity is the identity and document verification collaborator
// used by the KYC nodes. Provider abstracts OCR, document fraud, liveness and
// face matching; Mock returns deterministic canned responses so workflows can
// run without a real vendor.
package identity

import (
	"context"
	"strings"
	"time"
)

// Identity is a client's identity record.
type Identity struct {
	GivenName   string `json:"givenName"`
	FamilyName  string `json:"familyName"`
	DateOfBirth string `json:"dob"`
	DocNumber   string `json:"docNumber"`
	Nationality string `json:"nationality"`
}

// FullName joins the given and family names.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.GivenName + " " + i.FamilyName)
}

// Document is an uploaded identity document.
type Document struct {
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Extraction is the OCR output of a document.
type Extraction struct {
	RawText     string `json:"rawText"`
	Name        string `json:"name"`
	DateOfBirth string `json:"dob"`
	DocNumber   string `json:"docNumber"`
	Expiry      string `json:"expiry"`
	MRZ         string `json:"mrz"`
}

// FraudCheck is the document tampering verdict.
type FraudCheck struct {
	Passed      bool     `json:"passed"`
	TamperScore float64  `json:"tamperScore"`
	Details     []string `json:"details"`
}

// Liveness is the biometric liveness verdict.
type Liveness struct {
	Passed     bool    `json:"passed"`
	Score      float64 `json:"score"`
	Confidence string  `json:"confidence"`
}

// FaceMatch is the selfie-to-document face comparison verdict.
type FaceMatch struct {
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
}

// Provider performs identity verification steps.
type Provider interface {
	UploadDocument(ctx context.Context, client Identity) (*Document, error)
	Extract(ctx context.Context, client Identity) (*Extraction, error)
	CheckFraud(ctx context.Context, extraction *Extraction) (*FraudCheck, error)
	CheckLiveness(ctx context.Context, client Identity) (*Liveness, error)
	MatchFace(ctx context.Context, client Identity) (*FaceMatch, error)
}

// CannedIdentity is the identity used when a client supplies no data.
func CannedIdentity() Identity {
	return Identity{
		GivenName:   "John",
		FamilyName:  "Doe",
		DateOfBirth: "1990-01-01",
		DocNumber:   "A12345678",
		Nationality: "US",
	}
}

// Mock is a deterministic Provider.
//
//   - fraud check fails when the extracted name contains "fraud"
//   - liveness fails when the client name contains "spoof"
//   - face match fails when the client name contains "mismatch"
type Mock struct {
	now func() time.Time
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{now: time.Now}
}

// UploadDocument implements Provider.
func (m *Mock) UploadDocument(ctx context.Context, client Identity) (*Document, error) {
	return &Document{
		Type:       "PASSPORT",
		URL:        "https://example.com/mock-doc.jpg",
		UploadedAt: m.now().UTC(),
	}, nil
}

// Extract implements Provider.
func (m *Mock) Extract(ctx context.Context, client Identity) (*Extraction, error) {
	return &Extraction{
		RawText:     "MOCK PASSPORT DATA...",
		Name:        client.FullName(),
		DateOfBirth: client.DateOfBirth,
		DocNumber:   client.DocNumber,
		Expiry:      "2030-01-01",
		MRZ:         "P<" + mrzCountry(client.Nationality) + "...",
	}, nil
}

// CheckFraud implements Provider.
func (m *Mock) CheckFraud(ctx context.Context, extraction *Extraction) (*FraudCheck, error) {
	name := ""
	if extraction != nil {
		name = extraction.Name
	}
	if strings.Contains(strings.ToLower(name), "fraud") {
		return &FraudCheck{Passed: false, TamperScore: 0.9, Details: []string{"Font mismatch detected"}}, nil
	}
	return &FraudCheck{Passed: true, TamperScore: 0.05, Details: []string{"No tampering detected"}}, nil
}

// CheckLiveness implements Provider.
func (m *Mock) CheckLiveness(ctx context.Context, client Identity) (*Liveness, error) {
	if strings.Contains(strings.ToLower(client.FullName()), "spoof") {
		return &Liveness{Passed: false, Score: 0.12, Confidence: "LOW"}, nil
	}
	return &Liveness{Passed: true, Score: 0.98, Confidence: "HIGH"}, nil
}

// MatchFace implements Provider.
func (m *Mock) MatchFace(ctx context.Context, client Identity) (*FaceMatch, error) {
	if strings.Contains(strings.ToLower(client.FullName()), "mismatch") {
		return &FaceMatch{Matched: false, Score: 0.31}, nil
	}
	return &FaceMatch{Matched: true, Score: 0.99}, nil
}

func mrzCountry(nationality string) string {
	switch strings.ToUpper(nationality) {
	case "", "US":
		return "USA"
	default:
		return strings.ToUpper(nationality)
	}
}
