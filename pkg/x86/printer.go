package x86

import (
	"fmt"
	"strconv"
	"strings"
)

// ----------------------------------------------------------------------------
// Printer

// Printer renders a straight-line Inst sequence as NASM assembly text.
//
// Like the teacher's asm.CodeGenerator, translation needs no state beyond
// the instructions themselves: each one is evaluated, validated, and
// converted to its textual form independently.
type Printer struct{}

// NewPrinter returns a Printer. It carries no state; the zero value works
// just as well, this constructor exists for symmetry with the rest of the
// pipeline's NewXxx functions.
func NewPrinter() Printer { return Printer{} }

// Generate renders insts, one NASM line per instruction, in order.
func (p Printer) Generate(insts []Inst) (string, error) {
	lines := make([]string, 0, len(insts))

	for _, inst := range insts {
		line, err := p.render(inst)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n"), nil
}

func (p Printer) render(inst Inst) (string, error) {
	switch i := inst.(type) {
	case Label:
		return i.Name + ":", nil

	case Mov:
		return p.renderTwoOp("mov", i.Dst, i.Src)
	case Add:
		return p.renderTwoOp("add", i.Dst, i.Src)
	case Sub:
		return p.renderTwoOp("sub", i.Dst, i.Src)
	case Imul:
		return p.renderTwoOp("imul", i.Dst, i.Src)
	case Sar:
		return p.renderTwoOp("sar", i.Dst, i.Src)
	case And:
		return p.renderTwoOp("and", i.Dst, i.Src)
	case Or:
		return p.renderTwoOp("or", i.Dst, i.Src)
	case Xor:
		return p.renderTwoOp("xor", i.Dst, i.Src)
	case Cmp:
		return p.renderTwoOp("cmp", i.Dst, i.Src)
	case Test:
		return p.renderTwoOp("test", i.Dst, i.Src)
	case Cmove:
		return p.renderTwoOp("cmove", i.Dst, i.Src)
	case Cmovl:
		return p.renderTwoOp("cmovl", i.Dst, i.Src)
	case Cmovle:
		return p.renderTwoOp("cmovle", i.Dst, i.Src)
	case Cmovg:
		return p.renderTwoOp("cmovg", i.Dst, i.Src)
	case Cmovge:
		return p.renderTwoOp("cmovge", i.Dst, i.Src)

	case Jmp:
		return "jmp " + i.Target, nil
	case Je:
		return "je " + i.Target, nil
	case Jne:
		return "jne " + i.Target, nil
	case Jo:
		return "jo " + i.Target, nil

	case Call:
		return "call " + i.Target, nil
	case Ret:
		return "ret", nil

	default:
		return "", fmt.Errorf("unrecognized instruction %#v", inst)
	}
}

func (p Printer) renderTwoOp(mnemonic string, dst, src Arg) (string, error) {
	dstText, err := p.renderArg(dst)
	if err != nil {
		return "", err
	}
	srcText, err := p.renderArg(src)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s, %s", mnemonic, dstText, srcText), nil
}

func (p Printer) renderArg(arg Arg) (string, error) {
	switch a := arg.(type) {
	case Reg:
		return string(a), nil
	case Imm:
		return strconv.FormatInt(a.Value, 10), nil
	case Mem:
		return p.renderMem(a), nil
	default:
		return "", fmt.Errorf("unrecognized operand %#v", arg)
	}
}

// renderMem follows original_source/src/compiler.rs's val_to_str exactly
// for the base+disp shapes this compiler actually emits ([base], [base -
// N], [base + N]) and generalizes to the indexed form ([base + index *
// scale] and [base + index * scale + disp]) for pkg/codegen's Index
// lowering.
func (p Printer) renderMem(m Mem) string {
	if m.Index == nil {
		switch {
		case m.Disp == 0:
			return fmt.Sprintf("[%s]", m.Base)
		case m.Disp < 0:
			return fmt.Sprintf("[%s - %d]", m.Base, -m.Disp)
		default:
			return fmt.Sprintf("[%s + %d]", m.Base, m.Disp)
		}
	}

	if m.Disp == 0 {
		return fmt.Sprintf("[%s + %s * %d]", m.Base, *m.Index, m.Scale)
	}
	if m.Disp < 0 {
		return fmt.Sprintf("[%s + %s * %d - %d]", m.Base, *m.Index, m.Scale, -m.Disp)
	}
	return fmt.Sprintf("[%s + %s * %d + %d]", m.Base, *m.Index, m.Scale, m.Disp)
}
