// Package parser turns a generic pkg/sexpr tree into a typed pkg/ast
// program: identifier and reserved-word validation, special-form shape
// dispatch, duplicate-binding/parameter/function-name checks, and the
// function-definitions-then-main-expression split.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"snek-compiler/pkg/ast"
	"snek-compiler/pkg/sexpr"
)

// ----------------------------------------------------------------------------
// Errors

// ParseError is returned for every unrecoverable parse-time failure. It
// carries the diagnostic Keyword as a typed field (rather than relying on
// callers to substring-match Error()), per the ambient error-handling
// convention: tests and the CLI layer can both use errors.As.
type ParseError struct {
	Keyword  string // one of: Invalid, Duplicate binding, keyword
	Reason   string
	Fragment string // the offending piece of source, rendered for humans
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%s: %s", e.Keyword, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Keyword, e.Reason, e.Fragment)
}

func invalid(reason string, fragment sexpr.Sexpr) error {
	return &ParseError{Keyword: "Invalid", Reason: reason, Fragment: render(fragment)}
}

func keyword(name string) error {
	return &ParseError{Keyword: "keyword", Reason: "Invalid identifier or keyword", Fragment: name}
}

func duplicateBinding(fragment sexpr.Sexpr) error {
	return &ParseError{Keyword: "Duplicate binding", Reason: "Invalid bindings", Fragment: render(fragment)}
}

// render gives a best-effort human-readable rendering of a Sexpr fragment
// for error messages; it doesn't need to be a faithful pretty-printer.
func render(s sexpr.Sexpr) string {
	switch v := s.(type) {
	case sexpr.Integer:
		return strconv.FormatInt(int64(v), 10)
	case sexpr.Symbol:
		return string(v)
	case sexpr.String:
		return strconv.Quote(string(v))
	case sexpr.List:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = render(e)
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("%v", s)
	}
}

// ----------------------------------------------------------------------------
// Identifier rules

// reservedWords mirrors original_source/src/parser.rs's RESERVED_WORDS,
// extended with the tuple-extension keywords restored per SPEC_FULL.md §8.
var reservedWords = map[string]bool{
	"true": true, "false": true, "input": true, "let": true, "set!": true,
	"if": true, "block": true, "loop": true, "break": true, "print": true,
	"fun": true, "tuple": true, "index": true,
	"add1": true, "sub1": true, "isnum": true, "isbool": true,
	"+": true, "-": true, "*": true, "=": true, "<": true, "<=": true, ">": true, ">=": true,
	"tuple-set!": true, "tuple-len": true,
}

// isValidIdent mirrors is_valid_id: starts with a lowercase letter,
// remaining characters alphanumeric or underscore, and not reserved.
func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	first := rune(s[0])
	if first < 'a' || first > 'z' {
		return false
	}
	for _, r := range s[1:] {
		alnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !alnum && r != '_' {
			return false
		}
	}
	return !reservedWords[s]
}

// ----------------------------------------------------------------------------
// Entry point

// Parse reads a complete SNEK source string and returns its Program, or a
// fatal *ParseError. Per distilled-spec §4.1, the source is wrapped in an
// outer pair of parentheses so that every top-level form (function
// definitions and the main expression) reads as the elements of one list.
func Parse(source string) (*ast.Program, error) {
	reader := sexpr.NewReader(strings.NewReader("(" + source + ")"))

	root, err := reader.Parse()
	if err != nil {
		return nil, &ParseError{Keyword: "Invalid", Reason: "malformed S-expression syntax", Fragment: err.Error()}
	}

	top, ok := root.(sexpr.List)
	if !ok {
		return nil, invalid("program must be a list", root)
	}

	return parseProgram(top)
}

// ----------------------------------------------------------------------------
// Program / function definitions

func parseProgram(forms sexpr.List) (*ast.Program, error) {
	defs := []ast.FuncDef{}
	seen := map[string]bool{}

	for i, form := range forms {
		if !isFuncDef(form) {
			// The first non-'fun' element is main; everything after it is
			// ignored, matching the source's "the first one is the main
			// expression" behaviour exactly.
			main, err := parseExpr(form)
			if err != nil {
				return nil, err
			}
			return &ast.Program{Defs: defs, Main: main}, nil
		}

		def, err := parseFuncDef(form.(sexpr.List), seen)
		if err != nil {
			return nil, err
		}
		seen[def.Name] = true
		defs = append(defs, *def)

		if i == len(forms)-1 {
			// We ran out of forms without ever finding a main expression:
			// restored from original_source/src/parser.rs, kept distinct
			// from other "Invalid" messages so tests can tell them apart.
			return nil, invalid("Only definitions found in program", forms)
		}
	}

	return nil, invalid("empty program", forms)
}

func isFuncDef(s sexpr.Sexpr) bool {
	list, ok := s.(sexpr.List)
	if !ok || len(list) != 3 {
		return false
	}
	head, ok := list[0].(sexpr.Symbol)
	return ok && head == "fun"
}

func parseFuncDef(list sexpr.List, seen map[string]bool) (*ast.FuncDef, error) {
	name, params, err := parseSignature(list[1])
	if err != nil {
		return nil, err
	}
	if seen[name] {
		return nil, invalid("Function name must be unique", list)
	}

	body, err := parseExpr(list[2])
	if err != nil {
		return nil, err
	}

	return &ast.FuncDef{Name: name, Params: params, Body: body}, nil
}

func parseSignature(s sexpr.Sexpr) (name string, params []string, err error) {
	list, ok := s.(sexpr.List)
	if !ok {
		return "", nil, invalid("Function signature must be a list", s)
	}
	if len(list) == 0 {
		return "", nil, invalid("Function must have a name", s)
	}

	idents := make([]string, len(list))
	for i, elem := range list {
		sym, ok := elem.(sexpr.Symbol)
		if !ok {
			return "", nil, invalid("All elements in function signature must be identifiers", s)
		}
		if !isValidIdent(string(sym)) {
			return "", nil, keyword(string(sym))
		}
		idents[i] = string(sym)
	}

	name, params = idents[0], idents[1:]
	unique := map[string]bool{}
	for _, p := range params {
		if unique[p] {
			return "", nil, invalid("Function parameters must be unique", s)
		}
		unique[p] = true
	}

	return name, params, nil
}

// ----------------------------------------------------------------------------
// Expressions

func parseExpr(s sexpr.Sexpr) (ast.Expr, error) {
	switch v := s.(type) {
	case sexpr.Integer:
		return ast.Number{Value: int64(v)}, nil

	case sexpr.Symbol:
		return parseAtomSymbol(string(v))

	case sexpr.List:
		return parseListExpr(v)

	default:
		return nil, invalid("Invalid expression", s)
	}
}

func parseAtomSymbol(s string) (ast.Expr, error) {
	switch s {
	case "true":
		return ast.Bool{Value: true}, nil
	case "false":
		return ast.Bool{Value: false}, nil
	case "input":
		return ast.Var{Name: "input"}, nil
	}
	if !isValidIdent(s) {
		return nil, keyword(s)
	}
	return ast.Var{Name: s}, nil
}

// unaryOps/binaryOps map surface operator symbols to their ast enum, ranked
// by specificity the same way original_source/src/parser.rs's match arms
// are ordered (Call must come last, since any symbol head would match it).
var unaryOps = map[string]ast.UnaryOp{
	"add1": ast.Add1, "sub1": ast.Sub1, "isnum": ast.IsNum, "isbool": ast.IsBool,
}

var binaryOps = map[string]ast.BinaryOp{
	"+": ast.Plus, "-": ast.Minus, "*": ast.Times, "=": ast.Equal,
	"<": ast.Less, "<=": ast.LessEqual, ">": ast.Greater, ">=": ast.GreaterEqual,
}

func parseListExpr(list sexpr.List) (ast.Expr, error) {
	if len(list) == 0 {
		return nil, invalid("Invalid expression", list)
	}
	head, ok := list[0].(sexpr.Symbol)
	if !ok {
		return nil, invalid("Invalid expression", list)
	}
	op := string(head)

	switch {
	case op == "let":
		if len(list) != 3 {
			return nil, invalid("Invalid let form", list)
		}
		return parseLet(list)

	case isUnaryOp(op):
		if len(list) != 2 {
			return nil, invalid(fmt.Sprintf("Invalid %s form", op), list)
		}
		e, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		return ast.UnOp{Op: unaryOps[op], Operand: e}, nil

	case isBinaryOp(op):
		if len(list) != 3 {
			return nil, invalid(fmt.Sprintf("Invalid %s form", op), list)
		}
		e1, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		e2, err := parseExpr(list[2])
		if err != nil {
			return nil, err
		}
		return ast.BinOp{Op: binaryOps[op], Left: e1, Right: e2}, nil

	case op == "if":
		if len(list) != 4 {
			return nil, invalid("Invalid if form", list)
		}
		cond, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		then, err := parseExpr(list[2])
		if err != nil {
			return nil, err
		}
		els, err := parseExpr(list[3])
		if err != nil {
			return nil, err
		}
		return ast.If{Cond: cond, Then: then, Else: els}, nil

	case op == "loop":
		if len(list) != 2 {
			return nil, invalid("Invalid loop form", list)
		}
		body, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		return ast.Loop{Body: body}, nil

	case op == "break":
		if len(list) != 2 {
			return nil, invalid("Invalid break form", list)
		}
		e, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		return ast.Break{Value: e}, nil

	case op == "set!":
		if len(list) != 3 {
			return nil, invalid("Invalid set! form", list)
		}
		name, ok := list[1].(sexpr.Symbol)
		if !ok || !isValidIdent(string(name)) {
			return nil, keyword(render(list[1]))
		}
		e, err := parseExpr(list[2])
		if err != nil {
			return nil, err
		}
		return ast.Set{Name: string(name), Value: e}, nil

	case op == "block":
		if len(list) < 2 {
			return nil, invalid("Invalid block", list)
		}
		exprs := make([]ast.Expr, len(list)-1)
		for i, e := range list[1:] {
			parsed, err := parseExpr(e)
			if err != nil {
				return nil, err
			}
			exprs[i] = parsed
		}
		return ast.Block{Exprs: exprs}, nil

	case op == "print":
		if len(list) != 2 {
			return nil, invalid("Invalid print form", list)
		}
		e, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		return ast.Print{Value: e}, nil

	case op == "tuple":
		// Tuples accept zero or more elements, per distilled-spec §3 and
		// original_source's explicit comment to that effect.
		elems := make([]ast.Expr, len(list)-1)
		for i, e := range list[1:] {
			parsed, err := parseExpr(e)
			if err != nil {
				return nil, err
			}
			elems[i] = parsed
		}
		return ast.Tuple{Elements: elems}, nil

	case op == "index":
		if len(list) != 3 {
			return nil, invalid("Invalid index form", list)
		}
		target, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		idx, err := parseExpr(list[2])
		if err != nil {
			return nil, err
		}
		return ast.Index{Target: target, Idx: idx}, nil

	case op == "tuple-set!":
		if len(list) != 4 {
			return nil, invalid("Invalid tuple-set! form", list)
		}
		target, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		idx, err := parseExpr(list[2])
		if err != nil {
			return nil, err
		}
		val, err := parseExpr(list[3])
		if err != nil {
			return nil, err
		}
		return ast.TupleSet{Target: target, Idx: idx, Value: val}, nil

	case op == "tuple-len":
		if len(list) != 2 {
			return nil, invalid("Invalid tuple-len form", list)
		}
		target, err := parseExpr(list[1])
		if err != nil {
			return nil, err
		}
		return ast.TupleLen{Target: target}, nil

	default:
		// Function calls must be tried last: any symbol head would
		// otherwise be captured by this arm first, per
		// original_source/src/parser.rs's ordering.
		if !isValidIdent(op) {
			return nil, keyword(op)
		}
		args := make([]ast.Expr, len(list)-1)
		for i, e := range list[1:] {
			parsed, err := parseExpr(e)
			if err != nil {
				return nil, err
			}
			args[i] = parsed
		}
		return ast.Call{Name: op, Args: args}, nil
	}
}

func isBinaryOp(op string) bool {
	_, ok := binaryOps[op]
	return ok
}

func isUnaryOp(op string) bool {
	_, ok := unaryOps[op]
	return ok
}

func parseLet(list sexpr.List) (ast.Expr, error) {
	bindingsList, ok := list[1].(sexpr.List)
	if !ok || len(bindingsList) == 0 {
		return nil, invalid("Invalid bindings", list[1])
	}

	bindings := make([]ast.Binding, len(bindingsList))
	names := map[string]bool{}
	for i, b := range bindingsList {
		binding, err := parseBinding(b)
		if err != nil {
			return nil, err
		}
		if names[binding.Name] {
			return nil, duplicateBinding(list[1])
		}
		names[binding.Name] = true
		bindings[i] = *binding
	}

	body, err := parseExpr(list[2])
	if err != nil {
		return nil, err
	}

	return ast.Let{Bindings: bindings, Body: body}, nil
}

func parseBinding(s sexpr.Sexpr) (*ast.Binding, error) {
	list, ok := s.(sexpr.List)
	if !ok || len(list) != 2 {
		return nil, invalid("Invalid binding", s)
	}
	name, ok := list[0].(sexpr.Symbol)
	if !ok || !isValidIdent(string(name)) {
		return nil, keyword(render(list[0]))
	}
	value, err := parseExpr(list[1])
	if err != nil {
		return nil, err
	}
	return &ast.Binding{Name: string(name), Value: value}, nil
}
