// Package kyc implements the identity verification node handlers.
//
// Each handler delegates to an identity.Provider and writes its outcome to a
// top-level data namespace:
//
//	client      KYC_CLIENT_REGISTRATION
//	document    KYC_DOCUMENT_UPLOAD
//	ocr         KYC_OCR_EXTRACT
//	fraudCheck  KYC_DOCUMENT_FRAUD_CHECK
//	liveness    KYC_BIOMETRIC_LIVENESS
//	faceMatch   KYC_FACE_MATCH
package kyc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/identity"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/internal/values"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Handlers holds the KYC handlers and their collaborator.
type Handlers struct {
	provider identity.Provider
	logger   *slog.Logger
	now      func() time.Time
}

// New creates KYC handlers. A nil provider selects identity.NewMock.
func New(provider identity.Provider) *Handlers {
	if provider == nil {
		provider = identity.NewMock()
	}
	return &Handlers{
		provider: provider,
		logger:   slog.Default().With("component", "nodes.kyc"),
		now:      time.Now,
	}
}

// Register binds every KYC node type.
func (h *Handlers) Register(reg *runtime.Registry) error {
	bindings := map[workflow.NodeType]runtime.Handler{
		workflow.NodeKYCClientRegistration: h.ClientRegistration,
		workflow.NodeKYCDocumentUpload:     h.DocumentUpload,
		workflow.NodeKYCOCRExtract:         h.OCRExtract,
		workflow.NodeKYCDocumentFraudCheck: h.FraudCheck,
		workflow.NodeKYCBiometricLiveness:  h.Liveness,
		workflow.NodeKYCFaceMatch:          h.FaceMatch,
	}
	for t, fn := range bindings {
		if err := reg.Register(t, fn); err != nil {
			return err
		}
	}
	return nil
}

// ClientRegistration merges the run input over the canned identity and
// stamps registeredAt.
func (h *Handlers) ClientRegistration(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	client := map[string]any{}
	if err := values.Convert(identity.CannedIdentity(), &client); err != nil {
		return nil, fmt.Errorf("encode canned identity: %w", err)
	}
	for k, v := range ec.Input {
		client[k] = v
	}
	client["registeredAt"] = h.now().UTC().Format(time.RFC3339)
	return runtime.NewUpdate().Set("client", client), nil
}

// DocumentUpload records the uploaded identity document.
func (h *Handlers) DocumentUpload(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	doc, err := h.provider.UploadDocument(ctx, Client(ec))
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	return runtime.NewUpdate().Set("document", map[string]any{
		"type":       doc.Type,
		"url":        doc.URL,
		"uploadedAt": doc.UploadedAt.Format(time.RFC3339),
	}), nil
}

// OCRExtract extracts the document fields of the registered client.
func (h *Handlers) OCRExtract(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	ext, err := h.provider.Extract(ctx, Client(ec))
	if err != nil {
		return nil, fmt.Errorf("extract document: %w", err)
	}
	return runtime.NewUpdate().Set("ocr", map[string]any{
		"rawText": ext.RawText,
		"extracted": map[string]any{
			"name":      ext.Name,
			"dob":       ext.DateOfBirth,
			"docNumber": ext.DocNumber,
			"expiry":    ext.Expiry,
			"mrz":       ext.MRZ,
		},
	}), nil
}

// FraudCheck checks the extracted document for tampering.
func (h *Handlers) FraudCheck(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	ext := &identity.Extraction{}
	if extracted := values.Map(ec.Data, "ocr", "extracted"); extracted != nil {
		if err := values.Convert(extracted, ext); err != nil {
			return nil, fmt.Errorf("decode ocr extraction: %w", err)
		}
	}
	check, err := h.provider.CheckFraud(ctx, ext)
	if err != nil {
		return nil, fmt.Errorf("fraud check: %w", err)
	}
	if !check.Passed {
		h.logger.Info("document fraud check failed",
			"execution_id", ec.ExecutionID,
			"tamper_score", check.TamperScore,
		)
	}
	return runtime.NewUpdate().Set("fraudCheck", map[string]any{
		"passed":      check.Passed,
		"tamperScore": check.TamperScore,
		"details":     check.Details,
	}), nil
}

// Liveness runs the biometric liveness check.
func (h *Handlers) Liveness(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	res, err := h.provider.CheckLiveness(ctx, Client(ec))
	if err != nil {
		return nil, fmt.Errorf("liveness check: %w", err)
	}
	return runtime.NewUpdate().Set("liveness", map[string]any{
		"passed":     res.Passed,
		"score":      res.Score,
		"confidence": res.Confidence,
	}), nil
}

// FaceMatch compares the selfie with the document portrait.
func (h *Handlers) FaceMatch(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	res, err := h.provider.MatchFace(ctx, Client(ec))
	if err != nil {
		return nil, fmt.Errorf("face match: %w", err)
	}
	return runtime.NewUpdate().Set("faceMatch", map[string]any{
		"matched": res.Matched,
		"score":   res.Score,
	}), nil
}

// Client returns the registered client, falling back to the run input and
// then the canned identity for missing fields.
func Client(ec *runtime.ExecutionContext) identity.Identity {
	id := identity.CannedIdentity()
	_ = values.Convert(ec.Input, &id)
	if client := values.Map(ec.Data, "client"); client != nil {
		_ = values.Convert(client, &id)
	}
	return id
}
