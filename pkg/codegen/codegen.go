// Package codegen lowers a pkg/ast.Program to the pkg/x86 instruction IR:
// environment and stack-index threading, the tagged-value runtime checks,
// tuple heap layout, the calling convention, and deterministic label
// minting.
package codegen

import (
	"fmt"
	"maps"

	"snek-compiler/pkg/ast"
	"snek-compiler/pkg/utils"
	"snek-compiler/pkg/value"
	"snek-compiler/pkg/x86"
)

// ----------------------------------------------------------------------------
// Errors

// CompileError is returned for every unrecoverable lowering-time failure:
// an unbound identifier, a break outside any loop, an out-of-range
// integer literal, or a call to an undefined function. Keyword is one of the diagnostic fragments tests can
// match on via errors.As, matching pkg/parser.ParseError's shape.
type CompileError struct {
	Keyword  string
	Reason   string
	Fragment string
}

func (e *CompileError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%s: %s", e.Keyword, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Keyword, e.Reason, e.Fragment)
}

func unboundVariable(name string) error {
	return &CompileError{Keyword: "Unbound variable identifier", Reason: "name not in scope", Fragment: name}
}

func breakOutsideLoop() error {
	return &CompileError{Keyword: "break", Reason: "break outside of loop"}
}

func overflow(n int64) error {
	return &CompileError{Keyword: "overflow", Reason: "Invalid integer constant", Fragment: fmt.Sprint(n)}
}

func undefinedFunction(name string) error {
	return &CompileError{Keyword: "Invalid", Reason: "call to undefined function", Fragment: name}
}

// ----------------------------------------------------------------------------
// Generator

// env maps an identifier to the stack byte offset of its slot, relative to
// RSP: Var/Set lowering always reads/writes [RSP - env[x]]. A positive
// offset is a Let-bound local (below RSP); a negative one is a function
// parameter (above RSP, per the calling convention below). Extended by
// cloning, never by mutating a shared map in place — the persistent-map
// discipline distilled-spec §9/original_source's im::HashMap gets for
// free, reproduced here via the stdlib "maps" package's Clone.
type env map[string]int64

// Generator threads the code generator's state, named per distilled-spec
// §4.3 and grounded on the teacher's Lowerer (counter field) /
// ScopeTable (push/pop stack) shapes.
type Generator struct {
	labels int            // monotonic counter; mints "<prefix>_<n>" labels in DFS order
	funcs  map[string]int // function name -> arity, populated once per Generate call
	breaks utils.Stack[string]
}

// New returns a ready-to-use Generator.
func New() *Generator {
	return &Generator{funcs: map[string]int{}}
}

// Output is the three-part instruction stream a driver assembles into the
// fixed NASM frame: the shared error-handler prologue, the function
// definitions, and the main expression's body.
type Output struct {
	Prelude []x86.Inst
	Defs    []x86.Inst
	Main    []x86.Inst
}

// Generate lowers an entire program.
func (g *Generator) Generate(prog *ast.Program) (*Output, error) {
	g.funcs = make(map[string]int, len(prog.Defs))
	for _, def := range prog.Defs {
		g.funcs[def.Name] = len(def.Params)
	}

	defs := []x86.Inst{}
	for _, def := range prog.Defs {
		insts, err := g.compileFuncDef(def)
		if err != nil {
			return nil, fmt.Errorf("compiling function %q: %w", def.Name, err)
		}
		defs = append(defs, insts...)
	}

	main, err := g.lower(prog.Main, 2, env{})
	if err != nil {
		return nil, fmt.Errorf("compiling main expression: %w", err)
	}

	return &Output{Prelude: errorHandlerPrologue(), Defs: defs, Main: main}, nil
}

// compileFuncDef lowers one function definition. Per distilled-spec §4.4's
// "function prologue/epilogue": the body is entered at stack index 2
// (leaving two scratch slots) with each parameter i mapped to -(i+1)*8, a
// negative offset so Var's "[RSP - env[x]]" formula reads it as
// [RSP + (i+1)*8] — where the caller (pkg/codegen's Call lowering) placed
// it. There is no frame pointer.
func (g *Generator) compileFuncDef(def ast.FuncDef) ([]x86.Inst, error) {
	body := make(env, len(def.Params))
	for i, param := range def.Params {
		body[param] = -(int64(i) + 1) * 8
	}

	bodyInsts, err := g.lower(def.Body, 2, body)
	if err != nil {
		return nil, err
	}

	insts := []x86.Inst{x86.Label{Name: def.Name}}
	insts = append(insts, bodyInsts...)
	insts = append(insts, x86.Ret{})
	return insts, nil
}

func (g *Generator) newLabel(prefix string) string {
	label := fmt.Sprintf("%s_%d", prefix, g.labels)
	g.labels++
	return label
}

// slot renders the stack slot at byte offset i*8 below RSP: [RSP - i*8].
func slot(i int64) x86.Mem { return x86.Mem{Base: x86.RSP, Disp: -i * 8} }

// ----------------------------------------------------------------------------
// Runtime error stubs (distilled-spec §4.5)

// errorHandlerPrologue moves the error code (set by the callsite into RBX)
// into RDI and calls the runtime's snek_error.
func errorHandlerPrologue() []x86.Inst {
	return []x86.Inst{
		x86.Label{Name: "snek_error_handler"},
		x86.Mov{Dst: x86.RDI, Src: x86.RBX},
		x86.Call{Target: "snek_error"},
	}
}

// checkNumber errors with code 2 if RAX is not tagged as a number.
func checkNumber() []x86.Inst {
	return []x86.Inst{
		x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: 2}},
		x86.Test{Dst: x86.RAX, Src: x86.Imm{Value: 1}},
		x86.Jne{Target: "snek_error_handler"},
	}
}

// checkOverflow errors with code 3 if the preceding arithmetic instruction
// set the overflow flag.
func checkOverflow() []x86.Inst {
	return []x86.Inst{
		x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: 3}},
		x86.Jo{Target: "snek_error_handler"},
	}
}

// checkSameType errors with code 1 if RAX and RCX carry different tags.
func checkSameType() []x86.Inst {
	return []x86.Inst{
		x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: 1}},
		x86.Xor{Dst: x86.RCX, Src: x86.RAX},
		x86.Test{Dst: x86.RCX, Src: x86.Imm{Value: 1}},
		x86.Jne{Target: "snek_error_handler"},
	}
}

// checkTuple errors with code 4 if RAX is not tagged as a tuple pointer.
func checkTuple() []x86.Inst {
	return []x86.Inst{
		x86.Mov{Dst: x86.RCX, Src: x86.RAX},
		x86.And{Dst: x86.RCX, Src: x86.Imm{Value: 3}},
		x86.Cmp{Dst: x86.RCX, Src: x86.Imm{Value: 1}},
		x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: 4}},
		x86.Jne{Target: "snek_error_handler"},
	}
}

// ----------------------------------------------------------------------------
// Lowering

// lower compiles e into a straight-line block leaving its result in RAX.
// si is the next free stack slot index; env maps bound identifiers to
// their stack offset. The type switch below is the recursive analogue of
// the teacher's CodeGenerator.GenerateXxx per-kind dispatch — recursive
// because, unlike the teacher's flat instruction streams, this AST nests.
func (g *Generator) lower(e ast.Expr, si int64, en env) ([]x86.Inst, error) {
	switch expr := e.(type) {

	case ast.Number:
		encoded, ok := value.Encode(expr.Value)
		if !ok {
			return nil, overflow(expr.Value)
		}
		return []x86.Inst{x86.Mov{Dst: x86.RAX, Src: x86.Imm{Value: encoded}}}, nil

	case ast.Bool:
		encoding := value.False
		if expr.Value {
			encoding = value.True
		}
		return []x86.Inst{x86.Mov{Dst: x86.RAX, Src: x86.Imm{Value: encoding}}}, nil

	case ast.Var:
		if expr.Name == "input" {
			return []x86.Inst{x86.Mov{Dst: x86.RAX, Src: x86.RDI}}, nil
		}
		offset, ok := en[expr.Name]
		if !ok {
			return nil, unboundVariable(expr.Name)
		}
		return []x86.Inst{x86.Mov{Dst: x86.RAX, Src: x86.Mem{Base: x86.RSP, Disp: -offset}}}, nil

	case ast.Let:
		return g.lowerLet(expr, si, en)

	case ast.UnOp:
		return g.lowerUnOp(expr, si, en)

	case ast.BinOp:
		return g.lowerBinOp(expr, si, en)

	case ast.If:
		return g.lowerIf(expr, si, en)

	case ast.Loop:
		return g.lowerLoop(expr, si, en)

	case ast.Break:
		return g.lowerBreak(expr, si, en)

	case ast.Set:
		return g.lowerSet(expr, si, en)

	case ast.Block:
		instrs := []x86.Inst{}
		for _, sub := range expr.Exprs {
			subInstrs, err := g.lower(sub, si, en)
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, subInstrs...)
		}
		return instrs, nil

	case ast.Print:
		return g.lowerPrint(expr, si, en)

	case ast.Tuple:
		return g.lowerTuple(expr, si, en)

	case ast.Index:
		return g.lowerIndex(expr, si, en)

	case ast.TupleSet:
		return g.lowerTupleSet(expr, si, en)

	case ast.TupleLen:
		return g.lowerTupleLen(expr, si, en)

	case ast.Call:
		return g.lowerCall(expr, si, en)

	default:
		return nil, fmt.Errorf("unrecognized expression %#v", e)
	}
}

func (g *Generator) lowerLet(expr ast.Let, si int64, en env) ([]x86.Inst, error) {
	instrs := []x86.Inst{}
	extended := maps.Clone(en)

	for i, binding := range expr.Bindings {
		stackOffset := si + int64(i)

		valInstrs, err := g.lower(binding.Value, si+1, extended)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, valInstrs...)
		instrs = append(instrs, x86.Mov{Dst: slot(stackOffset), Src: x86.RAX})

		// Mutating our own fresh clone, not the caller's env: this is the
		// same thing original_source's `let mut new_env = env.clone()`
		// does, and is why later bindings in the same Let see earlier ones
		// while sibling expressions elsewhere never observe this mutation.
		extended[binding.Name] = stackOffset * 8
	}

	bodyInstrs, err := g.lower(expr.Body, si+int64(len(expr.Bindings)), extended)
	if err != nil {
		return nil, err
	}
	return append(instrs, bodyInstrs...), nil
}

func (g *Generator) lowerUnOp(expr ast.UnOp, si int64, en env) ([]x86.Inst, error) {
	instrs, err := g.lower(expr.Operand, si, en)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case ast.Add1:
		instrs = append(instrs, checkNumber()...)
		instrs = append(instrs, x86.Add{Dst: x86.RAX, Src: x86.Imm{Value: 2}})
		instrs = append(instrs, checkOverflow()...)
	case ast.Sub1:
		instrs = append(instrs, checkNumber()...)
		instrs = append(instrs, x86.Sub{Dst: x86.RAX, Src: x86.Imm{Value: 2}})
		instrs = append(instrs, checkOverflow()...)
	case ast.IsNum:
		instrs = append(instrs,
			x86.Test{Dst: x86.RAX, Src: x86.Imm{Value: 1}},
			x86.Mov{Dst: x86.RAX, Src: x86.Imm{Value: value.False}},
			x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: value.True}},
			x86.Cmove{Dst: x86.RAX, Src: x86.RBX},
		)
	case ast.IsBool:
		// Deliberately the same "test rax, 1" check as IsNum, not the
		// stricter value.IsBool predicate: this reproduces the source's
		// isbool behaviour exactly (any odd-tagged value, including nil
		// and tuple pointers, reads as boolean). See distilled-spec §9.
		instrs = append(instrs,
			x86.Test{Dst: x86.RAX, Src: x86.Imm{Value: 1}},
			x86.Mov{Dst: x86.RAX, Src: x86.Imm{Value: value.True}},
			x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: value.False}},
			x86.Cmove{Dst: x86.RAX, Src: x86.RBX},
		)
	}

	return instrs, nil
}

func (g *Generator) lowerBinOp(expr ast.BinOp, si int64, en env) ([]x86.Inst, error) {
	if expr.Op == ast.Equal {
		return g.lowerEqual(expr, si, en)
	}

	e1Instrs, err := g.lower(expr.Left, si, en)
	if err != nil {
		return nil, err
	}
	instrs := append(e1Instrs, checkNumber()...)
	instrs = append(instrs, x86.Mov{Dst: slot(si), Src: x86.RAX})

	e2Instrs, err := g.lower(expr.Right, si+1, en)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, e2Instrs...)
	instrs = append(instrs, checkNumber()...)

	switch expr.Op {
	case ast.Plus:
		instrs = append(instrs, x86.Add{Dst: x86.RAX, Src: slot(si)})
		instrs = append(instrs, checkOverflow()...)
	case ast.Minus:
		// Operand order matters: result = e1 - e2, but `sub` computes
		// dst -= src, so the subtraction runs with operands swapped and
		// the result is read back out of the slot.
		instrs = append(instrs, x86.Sub{Dst: slot(si), Src: x86.RAX})
		instrs = append(instrs, checkOverflow()...)
		instrs = append(instrs, x86.Mov{Dst: x86.RAX, Src: slot(si)})
	case ast.Times:
		// Exactly one operand is de-tagged first so the product keeps a
		// single tag shift rather than two.
		instrs = append(instrs, x86.Sar{Dst: x86.RAX, Src: x86.Imm{Value: 1}})
		instrs = append(instrs, x86.Imul{Dst: x86.RAX, Src: slot(si)})
		instrs = append(instrs, checkOverflow()...)
	default: // the four comparisons
		instrs = append(instrs,
			x86.Cmp{Dst: slot(si), Src: x86.RAX},
			x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: value.True}},
			x86.Mov{Dst: x86.RAX, Src: x86.Imm{Value: value.False}},
		)
		switch expr.Op {
		case ast.Less:
			instrs = append(instrs, x86.Cmovl{Dst: x86.RAX, Src: x86.RBX})
		case ast.LessEqual:
			instrs = append(instrs, x86.Cmovle{Dst: x86.RAX, Src: x86.RBX})
		case ast.Greater:
			instrs = append(instrs, x86.Cmovg{Dst: x86.RAX, Src: x86.RBX})
		case ast.GreaterEqual:
			instrs = append(instrs, x86.Cmovge{Dst: x86.RAX, Src: x86.RBX})
		}
	}

	return instrs, nil
}

func (g *Generator) lowerEqual(expr ast.BinOp, si int64, en env) ([]x86.Inst, error) {
	e1Instrs, err := g.lower(expr.Left, si, en)
	if err != nil {
		return nil, err
	}
	instrs := append(e1Instrs, x86.Mov{Dst: slot(si), Src: x86.RAX})

	e2Instrs, err := g.lower(expr.Right, si+1, en)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, e2Instrs...)

	instrs = append(instrs, x86.Mov{Dst: x86.RCX, Src: slot(si)})
	instrs = append(instrs, checkSameType()...)
	instrs = append(instrs,
		x86.Cmp{Dst: x86.RAX, Src: slot(si)},
		x86.Mov{Dst: x86.RAX, Src: x86.Imm{Value: value.False}},
		x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: value.True}},
		x86.Cmove{Dst: x86.RAX, Src: x86.RBX},
	)
	return instrs, nil
}

func (g *Generator) lowerIf(expr ast.If, si int64, en env) ([]x86.Inst, error) {
	elseLabel := g.newLabel("ifelse")
	endLabel := g.newLabel("ifend")

	condInstrs, err := g.lower(expr.Cond, si, en)
	if err != nil {
		return nil, err
	}
	thenInstrs, err := g.lower(expr.Then, si, en)
	if err != nil {
		return nil, err
	}
	elseInstrs, err := g.lower(expr.Else, si, en)
	if err != nil {
		return nil, err
	}

	instrs := append(condInstrs, x86.Cmp{Dst: x86.RAX, Src: x86.Imm{Value: value.False}}, x86.Je{Target: elseLabel})
	instrs = append(instrs, thenInstrs...)
	instrs = append(instrs, x86.Jmp{Target: endLabel}, x86.Label{Name: elseLabel})
	instrs = append(instrs, elseInstrs...)
	instrs = append(instrs, x86.Label{Name: endLabel})
	return instrs, nil
}

func (g *Generator) lowerLoop(expr ast.Loop, si int64, en env) ([]x86.Inst, error) {
	startLabel := g.newLabel("loop")
	endLabel := g.newLabel("loopend")

	g.breaks.Push(endLabel)
	bodyInstrs, err := g.lower(expr.Body, si, en)
	if _, popErr := g.breaks.Pop(); popErr != nil {
		return nil, fmt.Errorf("internal error: loop-break stack underflow: %w", popErr)
	}
	if err != nil {
		return nil, err
	}

	instrs := []x86.Inst{x86.Label{Name: startLabel}}
	instrs = append(instrs, bodyInstrs...)
	instrs = append(instrs, x86.Jmp{Target: startLabel}, x86.Label{Name: endLabel})
	return instrs, nil
}

func (g *Generator) lowerBreak(expr ast.Break, si int64, en env) ([]x86.Inst, error) {
	target, err := g.breaks.Top()
	if err != nil {
		return nil, breakOutsideLoop()
	}
	instrs, err := g.lower(expr.Value, si, en)
	if err != nil {
		return nil, err
	}
	return append(instrs, x86.Jmp{Target: target}), nil
}

func (g *Generator) lowerSet(expr ast.Set, si int64, en env) ([]x86.Inst, error) {
	offset, ok := en[expr.Name]
	if !ok {
		return nil, unboundVariable(expr.Name)
	}
	instrs, err := g.lower(expr.Value, si, en)
	if err != nil {
		return nil, err
	}
	return append(instrs, x86.Mov{Dst: x86.Mem{Base: x86.RSP, Disp: -offset}, Src: x86.RAX}), nil
}

func (g *Generator) lowerPrint(expr ast.Print, si int64, en env) ([]x86.Inst, error) {
	instrs, err := g.lower(expr.Value, si, en)
	if err != nil {
		return nil, err
	}

	// Use a 16-byte aligned stack offset, as `call` requires.
	index := si
	if si%2 != 0 {
		index = si + 1
	}

	instrs = append(instrs,
		x86.Mov{Dst: slot(index), Src: x86.RDI},
		x86.Mov{Dst: x86.RDI, Src: x86.RAX},
		x86.Sub{Dst: x86.RSP, Src: x86.Imm{Value: index * 8}},
		x86.Call{Target: "snek_print"},
		x86.Add{Dst: x86.RSP, Src: x86.Imm{Value: index * 8}},
		x86.Mov{Dst: x86.RDI, Src: slot(index)},
	)
	return instrs, nil
}

func (g *Generator) lowerTuple(expr ast.Tuple, si int64, en env) ([]x86.Inst, error) {
	size := int64(len(expr.Elements))
	instrs := []x86.Inst{}

	for i, elem := range expr.Elements {
		current := si + int64(i)
		elemInstrs, err := g.lower(elem, current, en)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, elemInstrs...)
		instrs = append(instrs, x86.Mov{Dst: slot(current), Src: x86.RAX})
	}

	// Length word first, stored already number-encoded so tuple-len needs
	// no re-encoding on read.
	instrs = append(instrs,
		x86.Mov{Dst: x86.RBX, Src: x86.Imm{Value: size << 1}},
		x86.Mov{Dst: x86.Mem{Base: x86.R15}, Src: x86.RBX},
	)

	for i := int64(0); i < size; i++ {
		current := si + i
		instrs = append(instrs,
			x86.Mov{Dst: x86.RAX, Src: slot(current)},
			x86.Mov{Dst: x86.Mem{Base: x86.R15, Disp: (i + 1) * 8}, Src: x86.RAX},
		)
	}

	instrs = append(instrs,
		x86.Mov{Dst: x86.RAX, Src: x86.R15},
		x86.Add{Dst: x86.RAX, Src: x86.Imm{Value: 1}},
		x86.Add{Dst: x86.R15, Src: x86.Imm{Value: (size + 1) * 8}},
	)
	return instrs, nil
}

func (g *Generator) lowerIndex(expr ast.Index, si int64, en env) ([]x86.Inst, error) {
	idxInstrs, err := g.lower(expr.Idx, si, en)
	if err != nil {
		return nil, err
	}
	instrs := append(idxInstrs, checkNumber()...)
	instrs = append(instrs, x86.Mov{Dst: slot(si), Src: x86.RAX})

	targetInstrs, err := g.lower(expr.Target, si+1, en)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, targetInstrs...)
	instrs = append(instrs, checkTuple()...)

	instrs = append(instrs, x86.Sub{Dst: x86.RAX, Src: x86.Imm{Value: 1}})
	instrs = append(instrs, x86.Mov{Dst: x86.RBX, Src: slot(si)})
	instrs = append(instrs, x86.Sar{Dst: x86.RBX, Src: x86.Imm{Value: 1}})
	instrs = append(instrs, x86.Add{Dst: x86.RBX, Src: x86.Imm{Value: 1}})
	instrs = append(instrs, x86.Mov{Dst: x86.RAX, Src: x86.Mem{Base: x86.RAX, Index: regPtr(x86.RBX), Scale: 8}})
	return instrs, nil
}

func (g *Generator) lowerTupleSet(expr ast.TupleSet, si int64, en env) ([]x86.Inst, error) {
	idxInstrs, err := g.lower(expr.Idx, si, en)
	if err != nil {
		return nil, err
	}
	instrs := append(idxInstrs, checkNumber()...)
	instrs = append(instrs, x86.Mov{Dst: slot(si), Src: x86.RAX})

	valInstrs, err := g.lower(expr.Value, si+1, en)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, valInstrs...)
	instrs = append(instrs, x86.Mov{Dst: slot(si + 1), Src: x86.RAX})

	targetInstrs, err := g.lower(expr.Target, si+2, en)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, targetInstrs...)
	instrs = append(instrs, checkTuple()...)

	instrs = append(instrs,
		x86.Sub{Dst: x86.RAX, Src: x86.Imm{Value: 1}},
		x86.Mov{Dst: x86.RBX, Src: slot(si)},
		x86.Sar{Dst: x86.RBX, Src: x86.Imm{Value: 1}},
		x86.Add{Dst: x86.RBX, Src: x86.Imm{Value: 1}},
		x86.Mov{Dst: x86.RCX, Src: slot(si + 1)},
		x86.Mov{Dst: x86.Mem{Base: x86.RAX, Index: regPtr(x86.RBX), Scale: 8}, Src: x86.RCX},
		x86.Add{Dst: x86.RAX, Src: x86.Imm{Value: 1}},
	)
	return instrs, nil
}

func (g *Generator) lowerTupleLen(expr ast.TupleLen, si int64, en env) ([]x86.Inst, error) {
	instrs, err := g.lower(expr.Target, si, en)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, checkTuple()...)
	instrs = append(instrs,
		x86.Sub{Dst: x86.RAX, Src: x86.Imm{Value: 1}},
		x86.Mov{Dst: x86.RAX, Src: x86.Mem{Base: x86.RAX}},
	)
	return instrs, nil
}

func (g *Generator) lowerCall(expr ast.Call, si int64, en env) ([]x86.Inst, error) {
	if _, ok := g.funcs[expr.Name]; !ok {
		return nil, undefinedFunction(expr.Name)
	}

	nArgs := int64(len(expr.Args))
	newRspOffset := si + nArgs

	instrs := []x86.Inst{}
	for i, arg := range expr.Args {
		argInstrs, err := g.lower(arg, newRspOffset+1, en)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, argInstrs...)
		instrs = append(instrs, x86.Mov{
			Dst: x86.Mem{Base: x86.RSP, Disp: (int64(i) - newRspOffset) * 8},
			Src: x86.RAX,
		})
	}

	instrs = append(instrs,
		x86.Mov{Dst: slot(si), Src: x86.RDI},
		x86.Sub{Dst: x86.RSP, Src: x86.Imm{Value: newRspOffset * 8}},
		x86.Call{Target: expr.Name},
		x86.Add{Dst: x86.RSP, Src: x86.Imm{Value: newRspOffset * 8}},
		x86.Mov{Dst: x86.RDI, Src: slot(si)},
	)
	return instrs, nil
}

func regPtr(r x86.Reg) *x86.Reg { return &r }
