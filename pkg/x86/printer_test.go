package x86_test

import (
	"testing"

	"snek-compiler/pkg/x86"
)

func TestRenderTwoOperandInstructions(t *testing.T) {
	printer := x86.NewPrinter()

	test := func(inst x86.Inst, expected string) {
		got, err := printer.Generate([]x86.Inst{inst})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if got != expected {
			t.Fatalf("expected %q, got %q", expected, got)
		}
	}

	t.Run("register to register", func(t *testing.T) {
		test(x86.Mov{Dst: x86.RAX, Src: x86.RDI}, "mov rax, rdi")
	})

	t.Run("register to immediate", func(t *testing.T) {
		test(x86.Mov{Dst: x86.RAX, Src: x86.Imm{Value: 4}}, "mov rax, 4")
	})

	t.Run("arithmetic and shifts", func(t *testing.T) {
		test(x86.Add{Dst: x86.RAX, Src: x86.Imm{Value: 2}}, "add rax, 2")
		test(x86.Sar{Dst: x86.RAX, Src: x86.Imm{Value: 1}}, "sar rax, 1")
	})

	t.Run("conditional moves", func(t *testing.T) {
		test(x86.Cmovl{Dst: x86.RAX, Src: x86.RBX}, "cmovl rax, rbx")
		test(x86.Cmovge{Dst: x86.RAX, Src: x86.RBX}, "cmovge rax, rbx")
	})
}

func TestRenderMemoryOperands(t *testing.T) {
	printer := x86.NewPrinter()

	t.Run("zero displacement", func(t *testing.T) {
		got, _ := printer.Generate([]x86.Inst{x86.Mov{Dst: x86.RAX, Src: x86.Mem{Base: x86.RSP}}})
		if got != "mov rax, [rsp]" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("negative displacement", func(t *testing.T) {
		got, _ := printer.Generate([]x86.Inst{x86.Mov{Dst: x86.RAX, Src: x86.Mem{Base: x86.RSP, Disp: -8}}})
		if got != "mov rax, [rsp - 8]" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("positive displacement", func(t *testing.T) {
		got, _ := printer.Generate([]x86.Inst{x86.Mov{Dst: x86.Mem{Base: x86.R15, Disp: 8}, Src: x86.RAX}})
		if got != "mov [r15 + 8], rax" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("indexed addressing", func(t *testing.T) {
		index := x86.RBX
		got, _ := printer.Generate([]x86.Inst{x86.Mov{Dst: x86.RAX, Src: x86.Mem{Base: x86.RAX, Index: &index, Scale: 8}}})
		if got != "mov rax, [rax + rbx * 8]" {
			t.Fatalf("got %q", got)
		}
	})
}

func TestRenderControlFlow(t *testing.T) {
	printer := x86.NewPrinter()

	insts := []x86.Inst{
		x86.Label{Name: "loop_0"},
		x86.Jmp{Target: "loop_0"},
		x86.Label{Name: "loopend_1"},
		x86.Call{Target: "snek_print"},
		x86.Ret{},
	}

	got, err := printer.Generate(insts)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := "loop_0:\njmp loop_0\nloopend_1:\ncall snek_print\nret"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
