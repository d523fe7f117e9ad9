// Package sexpr implements the surface reader: SNEK source text to a
// generic, untyped S-expression tree. Nothing here knows about SNEK's
// special forms — that's pkg/parser's job, one layer up.
package sexpr

// ----------------------------------------------------------------------------
// General information

// Sexpr is the marker interface for the four leaf/compound shapes a reader
// can produce, matching distilled-spec §3's surface syntax value: Integer,
// Symbol, String (carried through but unused by higher layers), and List.

// Sexpr is implemented by Integer, Symbol, String and List.
type Sexpr interface{}

// Integer is a signed integer atom.
type Integer int64

// Symbol is a bare identifier-shaped atom (includes special-form keywords
// and operator symbols like "+", "let", "tuple-set!").
type Symbol string

// String is a double-quoted string atom. Parsed for completeness; no SNEK
// special form or operator currently consumes one.
type String string

// List is a parenthesized sequence of zero or more Sexpr.
type List []Sexpr
