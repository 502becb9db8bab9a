package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DefaultIdentifiers is the identifier allowlist for gate routes.
var DefaultIdentifiers = []string{"riskScore", "riskLevel"}

// ParseError describes why an expression was rejected.
type ParseError struct {
	Expr    string
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("condition %q: %s at offset %d", e.Expr, e.Message, e.Pos)
}

// Parser parses guard expressions against a fixed identifier allowlist.
type Parser struct {
	idents map[string]bool
}

// NewParser creates a parser that accepts the given identifiers.
// With no identifiers, DefaultIdentifiers is used.
func NewParser(identifiers ...string) *Parser {
	if len(identifiers) == 0 {
		identifiers = DefaultIdentifiers
	}
	p := &Parser{idents: make(map[string]bool, len(identifiers))}
	for _, id := range identifiers {
		p.idents[id] = true
	}
	return p
}

// Identifiers returns the allowlist in no particular order.
func (p *Parser) Identifiers() []string {
	out := make([]string, 0, len(p.idents))
	for id := range p.idents {
		out = append(out, id)
	}
	return out
}

var defaultParser = NewParser()

// Parse parses expr with the default identifier allowlist.
func Parse(expr string) (Expr, error) {
	return defaultParser.Parse(expr)
}

// Parse parses a single guard expression.
func (p *Parser) Parse(expr string) (Expr, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}

	if len(toks) == 1 && toks[0].kind == tokIdent && toks[0].text == "true" {
		return &Literal{Value: true}, nil
	}

	if len(toks) != 3 {
		return nil, &ParseError{Expr: expr, Pos: 0, Message: fmt.Sprintf("expected 3 tokens, got %d", len(toks))}
	}

	ident, op, rhs := toks[0], toks[1], toks[2]
	if ident.kind != tokIdent {
		return nil, &ParseError{Expr: expr, Pos: ident.pos, Message: "expected identifier"}
	}
	if !p.idents[ident.text] {
		return nil, &ParseError{Expr: expr, Pos: ident.pos, Message: fmt.Sprintf("identifier %q is not allowed", ident.text)}
	}
	if op.kind != tokOp {
		return nil, &ParseError{Expr: expr, Pos: op.pos, Message: "expected operator"}
	}

	cmp := &Comparison{Ident: ident.text, Op: Operator(op.text)}
	switch rhs.kind {
	case tokString:
		if cmp.Op != OpEqual {
			return nil, &ParseError{Expr: expr, Pos: rhs.pos, Message: "string operand requires =="}
		}
		cmp.Value = Value{Kind: ValueString, Text: rhs.text}
	case tokNumber:
		n, err := strconv.ParseFloat(rhs.text, 64)
		if err != nil {
			return nil, &ParseError{Expr: expr, Pos: rhs.pos, Message: "invalid number"}
		}
		cmp.Value = Value{Kind: ValueNumber, Text: rhs.text, Number: n}
	default:
		return nil, &ParseError{Expr: expr, Pos: rhs.pos, Message: "expected string or number literal"}
	}

	return cmp, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokOp
	tokString
	tokNumber
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits an expression into tokens. Only ==, > and < are recognized as
// operators; anything else (>=, !=, &&, parentheses) is a lexing error.
func lex(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := rune(expr[i])
		switch {
		case unicode.IsSpace(c):
			i++

		case c == '=':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: "==", pos: i})
				i += 2
				continue
			}
			return nil, &ParseError{Expr: expr, Pos: i, Message: "single '=' is not an operator"}

		case c == '>' || c == '<':
			if i+1 < len(expr) && expr[i+1] == '=' {
				return nil, &ParseError{Expr: expr, Pos: i, Message: "unsupported operator"}
			}
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++

		case c == '\'' || c == '"':
			end := strings.IndexByte(expr[i+1:], byte(c))
			if end < 0 {
				return nil, &ParseError{Expr: expr, Pos: i, Message: "unterminated string"}
			}
			toks = append(toks, token{kind: tokString, text: expr[i+1 : i+1+end], pos: i})
			i += end + 2

		case c == '-' || c == '.' || unicode.IsDigit(c):
			start := i
			i++
			for i < len(expr) && (expr[i] == '.' || unicode.IsDigit(rune(expr[i]))) {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: expr[start:i], pos: start})

		case c == '_' || unicode.IsLetter(c):
			start := i
			for i < len(expr) && (expr[i] == '_' || unicode.IsLetter(rune(expr[i])) || unicode.IsDigit(rune(expr[i]))) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: expr[start:i], pos: start})

		default:
			return nil, &ParseError{Expr: expr, Pos: i, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}

	if len(toks) == 0 {
		return nil, &ParseError{Expr: expr, Pos: 0, Message: "empty expression"}
	}
	return toks, nil
}
