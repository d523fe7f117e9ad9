// Package x86 defines the typed instruction IR pkg/codegen lowers into and
// the printer that renders it as NASM assembly text.
package x86

// ----------------------------------------------------------------------------
// General information

// This section declares the closed sum of instruction kinds (Inst) and the
// closed sum of argument kinds (Arg) the distilled spec's design notes call
// for: one concrete struct per instruction/argument shape, disambiguated by
// a type switch in the printer (see printer.go), mirroring the teacher's
// hack.Instruction/vm.Operation tagged-union style — applied here to a
// richer x86-64 subset instead of the 16-bit Hack ISA or the stack VM.

// Inst is the marker interface implemented by every instruction kind.
type Inst interface{}

// Arg is the marker interface implemented by every operand kind: Reg, Imm, Mem.
type Arg interface{}

// ----------------------------------------------------------------------------
// Registers

// Reg names one of the fixed set of general-purpose registers this subset
// of x86-64 uses. A Reg value is itself a valid Arg.
type Reg string

const (
	RAX Reg = "rax"
	RBX Reg = "rbx"
	RCX Reg = "rcx"
	RDX Reg = "rdx"
	RSP Reg = "rsp"
	RBP Reg = "rbp"
	RSI Reg = "rsi"
	RDI Reg = "rdi"
	R15 Reg = "r15"
)

// Imm is a 64-bit immediate operand.
type Imm struct{ Value int64 }

// Mem is a memory operand of the form [Base + Index*Scale + Disp]; Index
// and Scale are optional (Index == nil means no index register).
type Mem struct {
	Base  Reg
	Index *Reg
	Scale int
	Disp  int64
}

// ----------------------------------------------------------------------------
// Instructions

// Label declares a jump/call target at the current position.
type Label struct{ Name string }

// Two-operand instructions: every one of these follows the destination,
// source operand order the NASM printer renders them in (`op dst, src`).
type (
	Mov   struct{ Dst, Src Arg }
	Add   struct{ Dst, Src Arg }
	Sub   struct{ Dst, Src Arg }
	Imul  struct{ Dst, Src Arg }
	Sar   struct{ Dst, Src Arg }
	And   struct{ Dst, Src Arg }
	Or    struct{ Dst, Src Arg }
	Xor   struct{ Dst, Src Arg }
	Cmp   struct{ Dst, Src Arg }
	Test  struct{ Dst, Src Arg }
	Cmove struct{ Dst, Src Arg }
	// Cmovl/Cmovle/Cmovg/Cmovge back the four comparison operators.
	Cmovl  struct{ Dst, Src Arg }
	Cmovle struct{ Dst, Src Arg }
	Cmovg  struct{ Dst, Src Arg }
	Cmovge struct{ Dst, Src Arg }
)

// One-operand conditional/unconditional jumps, targeting a Label by name.
type (
	Jmp struct{ Target string }
	Je  struct{ Target string }
	Jne struct{ Target string }
	Jo  struct{ Target string }
)

// Call invokes another label (a defined function, or an external symbol
// such as snek_print/snek_error) as a subroutine.
type Call struct{ Target string }

// Ret returns from the current function.
type Ret struct{}
