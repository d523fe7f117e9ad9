// Package ast defines the SNEK abstract expression tree produced by
// pkg/parser and consumed by pkg/codegen. Every node is an immutable value;
// there is no sharing or mutation once a tree is built.
package ast

// ----------------------------------------------------------------------------
// General information

// This section declares a shared 'Expr' interface for every expression
// variant, mirroring the teacher's "interface{} marker + one concrete
// struct per variant" style: a type switch in the consumer (pkg/codegen)
// disambiguates, rather than a visitor pattern.

// Expr is the marker interface implemented by every expression node.
type Expr interface{}

// Binding is one (name, value-expression) pair inside a Let.
type Binding struct {
	Name  string
	Value Expr
}

// ----------------------------------------------------------------------------
// Literals and variable references

// Number is a signed integer literal.
type Number struct{ Value int64 }

// Bool is a boolean literal.
type Bool struct{ Value bool }

// Var is an identifier reference. The distinguished name "input" refers to
// the program's single runtime argument rather than a Let/Set binding.
type Var struct{ Name string }

// ----------------------------------------------------------------------------
// Binding forms

// Let evaluates each binding in Bindings in order, in an environment
// extended with the *previous* bindings of the same Let, then evaluates
// Body in an environment extended with all of them.
type Let struct {
	Bindings []Binding
	Body     Expr
}

// Set re-assigns an existing binding (Let-bound name or function
// parameter) and evaluates to the assigned value.
type Set struct {
	Name  string
	Value Expr
}

// ----------------------------------------------------------------------------
// Operators

// UnOp is an enumerated single-operand form: Add1, Sub1, IsNum, IsBool.
type UnOp struct {
	Op      UnaryOp
	Operand Expr
}

// UnaryOp enumerates the unary operators.
type UnaryOp uint8

const (
	Add1 UnaryOp = iota
	Sub1
	IsNum
	IsBool
)

// BinOp is an enumerated two-operand form over the arithmetic and
// comparison operators.
type BinOp struct {
	Op          BinaryOp
	Left, Right Expr
}

// BinaryOp enumerates the binary operators.
type BinaryOp uint8

const (
	Plus BinaryOp = iota
	Minus
	Times
	Equal
	Less
	LessEqual
	Greater
	GreaterEqual
)

// ----------------------------------------------------------------------------
// Control flow

// If branches on Cond: any value other than the false encoding is truthy,
// including numbers (no static type check is performed).
type If struct {
	Cond, Then, Else Expr
}

// Loop repeats Body until a Break inside it fires.
type Loop struct{ Body Expr }

// Break is legal only lexically inside a Loop; this is checked during code
// generation, not parsing, since parsing has no notion of enclosing forms.
type Break struct{ Value Expr }

// Block evaluates a non-empty sequence of expressions in order and
// evaluates to the last one.
type Block struct{ Exprs []Expr }

// ----------------------------------------------------------------------------
// Side effects

// Print evaluates Value, prints it via the runtime's snek_print, and
// evaluates to the same value.
type Print struct{ Value Expr }

// ----------------------------------------------------------------------------
// Tuples

// Tuple constructs a heap-allocated tuple from zero or more elements.
type Tuple struct{ Elements []Expr }

// Index reads the element of Target at 0-based position Idx (heap word
// Idx+1, just past the length word). Unchecked: an
// out-of-range Idx reads arbitrary heap memory, matching the source this
// was distilled from.
type Index struct{ Target, Idx Expr }

// TupleSet writes Value into the Idx-th element of Target and evaluates to
// the (re-tagged) tuple pointer. One of the two tuple extensions attested
// in the original source and restored here.
type TupleSet struct {
	Target, Idx, Value Expr
}

// TupleLen reads a tuple's element count. The other restored extension.
type TupleLen struct{ Target Expr }

// ----------------------------------------------------------------------------
// Function calls

// Call invokes a user-defined function by name.
type Call struct {
	Name string
	Args []Expr
}

// ----------------------------------------------------------------------------
// Top-level program structure

// FuncDef is a top-level function definition: name, unique parameters, body.
type FuncDef struct {
	Name   string
	Params []string
	Body   Expr
}

// Program is a whole compilation unit: zero or more function definitions
// (unique names) followed by a single main expression.
type Program struct {
	Defs []FuncDef
	Main Expr
}
