package codegen_test

import (
	"errors"
	"strings"
	"testing"

	"snek-compiler/pkg/ast"
	"snek-compiler/pkg/codegen"
	"snek-compiler/pkg/x86"
)

func render(t *testing.T, insts []x86.Inst) string {
	t.Helper()
	out, err := x86.NewPrinter().Generate(insts)
	if err != nil {
		t.Fatalf("unexpected error rendering instructions: %s", err)
	}
	return out
}

func generate(t *testing.T, prog *ast.Program) *codegen.Output {
	t.Helper()
	out, err := codegen.New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	return out
}

func TestLowerLiterals(t *testing.T) {
	test := func(main ast.Expr, want string) {
		out := generate(t, &ast.Program{Main: main})
		if got := render(t, out.Main); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}

	t.Run("number is shifted left to encode its tag", func(t *testing.T) {
		test(ast.Number{Value: 5}, "mov rax, 10")
	})

	t.Run("true encodes to 7", func(t *testing.T) {
		test(ast.Bool{Value: true}, "mov rax, 7")
	})

	t.Run("false encodes to 3", func(t *testing.T) {
		test(ast.Bool{Value: false}, "mov rax, 3")
	})

	t.Run("input reads rdi", func(t *testing.T) {
		test(ast.Var{Name: "input"}, "mov rax, rdi")
	})
}

func TestLowerNumberOverflow(t *testing.T) {
	_, err := codegen.New().Generate(&ast.Program{Main: ast.Number{Value: 1 << 62}})
	if err == nil {
		t.Fatal("expected an overflow error")
	}
	var compileErr *codegen.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected a *CompileError, got %T", err)
	}
	if compileErr.Keyword != "overflow" {
		t.Fatalf("expected keyword 'overflow', got %q", compileErr.Keyword)
	}
}

func TestLowerUnboundVariable(t *testing.T) {
	_, err := codegen.New().Generate(&ast.Program{Main: ast.Var{Name: "y"}})
	var compileErr *codegen.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected a *CompileError, got %T (%v)", err, err)
	}
	if compileErr.Keyword != "Unbound variable identifier" {
		t.Fatalf("unexpected keyword %q", compileErr.Keyword)
	}
}

func TestLowerBreakOutsideLoop(t *testing.T) {
	_, err := codegen.New().Generate(&ast.Program{Main: ast.Break{Value: ast.Number{Value: 1}}})
	var compileErr *codegen.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected a *CompileError, got %T", err)
	}
	if compileErr.Keyword != "break" {
		t.Fatalf("unexpected keyword %q", compileErr.Keyword)
	}
}

func TestLowerUndefinedFunctionCall(t *testing.T) {
	_, err := codegen.New().Generate(&ast.Program{Main: ast.Call{Name: "ghost"}})
	var compileErr *codegen.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected a *CompileError, got %T", err)
	}
	if compileErr.Keyword != "Invalid" {
		t.Fatalf("unexpected keyword %q", compileErr.Keyword)
	}
}

func TestLowerLetBindingsSeePreviousBindingsOnly(t *testing.T) {
	// (let ((x 5) (y (add1 x))) y): y's initializer must resolve x, but x's
	// own initializer must not see y.
	prog := &ast.Program{
		Main: ast.Let{
			Bindings: []ast.Binding{
				{Name: "x", Value: ast.Number{Value: 5}},
				{Name: "y", Value: ast.UnOp{Op: ast.Add1, Operand: ast.Var{Name: "x"}}},
			},
			Body: ast.Var{Name: "y"},
		},
	}
	out := generate(t, prog)
	got := render(t, out.Main)

	// The main expression is lowered at stack index 2, so x takes slot 2
	// ([rsp - 16]) and y slot 3 ([rsp - 24]).
	if !strings.Contains(got, "mov [rsp - 16], rax") {
		t.Fatalf("expected x's slot (stack index 2) to be written: %s", got)
	}
	if !strings.Contains(got, "mov rax, [rsp - 16]") {
		t.Fatalf("expected y's initializer to read x's slot: %s", got)
	}
	if !strings.Contains(got, "mov rax, [rsp - 24]") {
		t.Fatalf("expected the body to read y's slot (stack index 3): %s", got)
	}
}

func TestLowerIfProducesDistinctLabelsPerCall(t *testing.T) {
	prog := &ast.Program{
		Main: ast.Block{Exprs: []ast.Expr{
			ast.If{Cond: ast.Bool{Value: true}, Then: ast.Number{Value: 1}, Else: ast.Number{Value: 2}},
			ast.If{Cond: ast.Bool{Value: false}, Then: ast.Number{Value: 3}, Else: ast.Number{Value: 4}},
		}},
	}
	out := generate(t, prog)
	got := render(t, out.Main)

	for _, label := range []string{"ifelse_0:", "ifend_1:", "ifelse_2:", "ifend_3:"} {
		if !strings.Contains(got, label) {
			t.Fatalf("expected label %q in:\n%s", label, got)
		}
	}
}

func TestLowerLoopAndBreak(t *testing.T) {
	prog := &ast.Program{
		Main: ast.Loop{Body: ast.Break{Value: ast.Number{Value: 1}}},
	}
	out := generate(t, prog)
	got := render(t, out.Main)

	if !strings.Contains(got, "loop_0:") || !strings.Contains(got, "loopend_1:") {
		t.Fatalf("expected loop start/end labels in:\n%s", got)
	}
	if !strings.Contains(got, "jmp loopend_1") {
		t.Fatalf("expected break to jump to the loop's end label: %s", got)
	}
	if !strings.Contains(got, "jmp loop_0") {
		t.Fatalf("expected the loop body to jump back to its start label: %s", got)
	}
}

func TestLowerNestedLoopsBreakToTheirOwnEnd(t *testing.T) {
	// (loop (loop (break 1))): the inner break must target the inner
	// loop's end label, not the outer one's.
	prog := &ast.Program{
		Main: ast.Loop{Body: ast.Loop{Body: ast.Break{Value: ast.Number{Value: 1}}}},
	}
	out := generate(t, prog)
	got := render(t, out.Main)

	if !strings.Contains(got, "jmp loopend_3") {
		t.Fatalf("expected the inner break to target the inner loop's end label: %s", got)
	}
}

func TestLowerTupleLayout(t *testing.T) {
	prog := &ast.Program{
		Main: ast.Tuple{Elements: []ast.Expr{ast.Number{Value: 1}, ast.Number{Value: 2}}},
	}
	out := generate(t, prog)
	got := render(t, out.Main)

	if !strings.Contains(got, "mov [r15], rbx") {
		t.Fatalf("expected the length word to be written first: %s", got)
	}
	if !strings.Contains(got, "mov [r15 + 8], rax") || !strings.Contains(got, "mov [r15 + 16], rax") {
		t.Fatalf("expected each element to land at its 1-based word offset: %s", got)
	}
	if !strings.Contains(got, "add rax, 1") {
		t.Fatalf("expected the result pointer to be tagged: %s", got)
	}
	if !strings.Contains(got, "add r15, 24") {
		t.Fatalf("expected the heap cursor to advance by (len+1)*8: %s", got)
	}
}

func TestLowerIndexSkipsTheLengthWord(t *testing.T) {
	prog := &ast.Program{
		Main: ast.Index{Target: ast.Var{Name: "input"}, Idx: ast.Number{Value: 1}},
	}
	out := generate(t, prog)
	got := render(t, out.Main)

	if !strings.Contains(got, "sub rax, 1") {
		t.Fatalf("expected the tuple pointer to be untagged before dereferencing: %s", got)
	}
	if !strings.Contains(got, "add rbx, 1") {
		t.Fatalf("expected the decoded index to be offset by one past the length word: %s", got)
	}
	if !strings.Contains(got, "mov rax, [rax + rbx * 8]") {
		t.Fatalf("expected an indexed load: %s", got)
	}
}

func TestLowerFuncDefParametersAboveTheFrame(t *testing.T) {
	prog := &ast.Program{
		Defs: []ast.FuncDef{
			{Name: "addone", Params: []string{"x"}, Body: ast.UnOp{Op: ast.Add1, Operand: ast.Var{Name: "x"}}},
		},
		Main: ast.Call{Name: "addone", Args: []ast.Expr{ast.Number{Value: 1}}},
	}
	out := generate(t, prog)
	got := render(t, out.Defs)

	if !strings.HasPrefix(got, "addone:") {
		t.Fatalf("expected the function body to start with its label: %s", got)
	}
	if !strings.Contains(got, "mov rax, [rsp + 8]") {
		t.Fatalf("expected parameter x (param index 0) to be read from [rsp + 8]: %s", got)
	}
	if !strings.HasSuffix(got, "ret") {
		t.Fatalf("expected the function body to end with ret: %s", got)
	}
}

func TestLowerCallSavesAndRestoresRDIAroundTheCall(t *testing.T) {
	prog := &ast.Program{
		Defs: []ast.FuncDef{{Name: "id", Params: []string{"x"}, Body: ast.Var{Name: "x"}}},
		Main: ast.Call{Name: "id", Args: []ast.Expr{ast.Number{Value: 9}}},
	}
	out := generate(t, prog)
	got := render(t, out.Main)

	if !strings.Contains(got, "call id") {
		t.Fatalf("expected a call to the function label: %s", got)
	}
	if !strings.Contains(got, "mov [rsp - 16], rdi") || !strings.Contains(got, "mov rdi, [rsp - 16]") {
		t.Fatalf("expected rdi to be saved before the call and restored after: %s", got)
	}
}
