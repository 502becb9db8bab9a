package workflow

// NodeType identifies the domain behaviour of a node.
type NodeType string

const (
	// KYC
	NodeKYCClientRegistration NodeType = "KYC_CLIENT_REGISTRATION"
	NodeKYCDocumentUpload     NodeType = "KYC_DOCUMENT_UPLOAD"
	NodeKYCOCRExtract         NodeType = "KYC_OCR_EXTRACT"
	NodeKYCDocumentFraudCheck NodeType = "KYC_DOCUMENT_FRAUD_CHECK"
	NodeKYCBiometricLiveness  NodeType = "KYC_BIOMETRIC_LIVENESS"
	NodeKYCFaceMatch          NodeType = "KYC_FACE_MATCH"

	// AML
	NodeAMLSanctionsScreen    NodeType = "AML_SANCTIONS_SCREEN"
	NodeAMLPEPScreen          NodeType = "AML_PEP_SCREEN"
	NodeAMLWatchlistScreen    NodeType = "AML_WATCHLIST_SCREEN"
	NodeAMLAdverseMediaScreen NodeType = "AML_ADVERSE_MEDIA_SCREEN"

	// Risk and decisions
	NodeRiskCalculator       NodeType = "RISK_CALCULATOR"
	NodeRiskGate             NodeType = "RISK_GATE"
	NodeDecisionApprove      NodeType = "DECISION_APPROVE"
	NodeDecisionReject       NodeType = "DECISION_REJECT"
	NodeDecisionManualReview NodeType = "DECISION_MANUAL_REVIEW"
	NodeCallbackWebhook      NodeType = "CALLBACK_WEBHOOK"
	NodeAuditLog             NodeType = "AUDIT_LOG"

	// Transaction monitoring
	NodeTMSchemaValidate NodeType = "TM_SCHEMA_VALIDATE"
	NodeTMFXNormalize    NodeType = "TM_FX_NORMALIZE"
	NodeTMDeduplicate    NodeType = "TM_DEDUPLICATE"
	NodeTMScenarioRule   NodeType = "TM_SCENARIO_RULE"
	NodeTMCreateAlert    NodeType = "TM_CREATE_ALERT"
)

// knownTypes lists every node type the catalog defines.
var knownTypes = map[NodeType]bool{
	NodeKYCClientRegistration: true,
	NodeKYCDocumentUpload:     true,
	NodeKYCOCRExtract:         true,
	NodeKYCDocumentFraudCheck: true,
	NodeKYCBiometricLiveness:  true,
	NodeKYCFaceMatch:          true,
	NodeAMLSanctionsScreen:    true,
	NodeAMLPEPScreen:          true,
	NodeAMLWatchlistScreen:    true,
	NodeAMLAdverseMediaScreen: true,
	NodeRiskCalculator:        true,
	NodeRiskGate:              true,
	NodeDecisionApprove:       true,
	NodeDecisionReject:        true,
	NodeDecisionManualReview:  true,
	NodeCallbackWebhook:       true,
	NodeAuditLog:              true,
	NodeTMSchemaValidate:      true,
	NodeTMFXNormalize:         true,
	NodeTMDeduplicate:         true,
	NodeTMScenarioRule:        true,
	NodeTMCreateAlert:         true,
}

// IsKnown reports whether t is part of the node catalog.
func (t NodeType) IsKnown() bool {
	return knownTypes[t]
}

// IsGate reports whether t is the branching gate type whose routes come from
// node config rather than edges.
func (t NodeType) IsGate() bool {
	return t == NodeRiskGate
}

// Position is the display-only location of a node in the editor canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a single typed processing step in a workflow graph.
type Node struct {
	ID       string         `json:"id" yaml:"id"`
	Type     NodeType       `json:"type" yaml:"type"`
	Position Position       `json:"position" yaml:"position"`
	Label    string         `json:"label,omitempty" yaml:"label,omitempty"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Graph is the editable description of a workflow.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Route is a guarded successor of a gate node. Routes are evaluated in
// declaration order and the first whose condition holds wins.
type Route struct {
	Condition string `json:"condition" yaml:"condition"`
	TargetID  string `json:"targetId" yaml:"targetId"`
}

// CompiledNode is the executable form of a graph node.
type CompiledNode struct {
	ID     string         `json:"id" yaml:"id"`
	Type   NodeType       `json:"type" yaml:"type"`
	Config map[string]any `json:"config" yaml:"config"`
	Next   []string       `json:"next" yaml:"next"`
	Routes []Route        `json:"routes,omitempty" yaml:"routes,omitempty"`
}

// HasRoutes reports whether the node resolves its successor through routes.
// Routes take precedence over Next during execution.
func (n *CompiledNode) HasRoutes() bool {
	return n.Routes != nil
}

// Plan is a compiled, executable workflow.
type Plan struct {
	EntryNodeID string                   `json:"entryNodeId" yaml:"entryNodeId"`
	Nodes       map[string]*CompiledNode `json:"nodes" yaml:"nodes"`
}

// IsEmpty reports whether the plan has no nodes to execute.
func (p *Plan) IsEmpty() bool {
	return p == nil || len(p.Nodes) == 0
}

// Node returns the compiled node with the given id, or nil.
func (p *Plan) Node(id string) *CompiledNode {
	if p == nil || id == "" {
		return nil
	}
	return p.Nodes[id]
}
