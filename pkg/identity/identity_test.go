package identity

import (
	"context"
	"testing"
)

func TestMock_Extract(t *testing.T) {
	m := NewMock()
	ext, err := m.Extract(context.Background(), CannedIdentity())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if ext.Name != "John Doe" {
		t.Errorf("Expected name 'John Doe', got %q", ext.Name)
	}
	if ext.DocNumber != "A12345678" || ext.DateOfBirth != "1990-01-01" {
		t.Errorf("Expected canned document fields, got %+v", ext)
	}
}

func TestMock_CheckFraud(t *testing.T) {
	tests := []struct {
		name       string
		wantPassed bool
		wantScore  float64
	}{
		{"John Doe", true, 0.05},
		{"Frank FRAUDSTER", false, 0.9},
		{"", true, 0.05},
	}

	m := NewMock()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := m.CheckFraud(context.Background(), &Extraction{Name: tt.name})
			if got.Passed != tt.wantPassed || got.TamperScore != tt.wantScore {
				t.Errorf("Expected passed=%v score=%v, got %+v", tt.wantPassed, tt.wantScore, got)
			}
		})
	}
}

func TestMock_Biometrics(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	live, _ := m.CheckLiveness(ctx, CannedIdentity())
	if !live.Passed || live.Confidence != "HIGH" {
		t.Errorf("Expected liveness pass, got %+v", live)
	}
	spoof, _ := m.CheckLiveness(ctx, Identity{GivenName: "Spoof", FamilyName: "Attempt"})
	if spoof.Passed {
		t.Error("Expected liveness failure for spoof")
	}

	match, _ := m.MatchFace(ctx, CannedIdentity())
	if !match.Matched {
		t.Error("Expected face match")
	}
	miss, _ := m.MatchFace(ctx, Identity{GivenName: "Mismatch"})
	if miss.Matched {
		t.Error("Expected face mismatch")
	}
}
