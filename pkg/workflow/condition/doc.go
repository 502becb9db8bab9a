// Package condition implements the restricted guard grammar used by gate
// routes.
//
// The grammar has exactly four productions:
//
//	true
//	IDENT == 'STRING'      (or a bare NUMBER, compared as text)
//	IDENT > NUMBER
//	IDENT < NUMBER
//
// IDENT must belong to the parser's identifier allowlist (riskScore and
// riskLevel by default). Expressions are parsed into a small tagged AST and
// evaluated against an Env. Evaluation is fail-closed: anything that does not
// parse, names an unknown identifier, or cannot be coerced evaluates to false.
package condition
