// kycaml compiles and runs compliance workflows: identity verification
// (KYC), watchlist screening (AML), risk scoring and transaction monitoring.
//
// Usage:
//
//	# Print the execution plan of a workflow graph
//	kycaml compile workflows/onboarding.json
//
//	# Run a workflow against one or more inputs
//	kycaml run workflows/onboarding.json --input applicant.json
//
//	# Show or export the audit trail of an execution
//	kycaml audit show <execution-id>
//	kycaml audit export --format csv --since 2026-01-01T00:00:00Z
//
//	# Deploy a workflow directory and keep it in sync, serving metrics and probes
//	kycaml serve --config config.yaml
package main

func main() {
	Execute()
}
