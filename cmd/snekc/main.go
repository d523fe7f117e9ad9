package main

import (
	"fmt"
	"os"
	"strings"

	"snek-compiler/pkg/codegen"
	"snek-compiler/pkg/parser"
	"snek-compiler/pkg/x86"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The SNEK Compiler translates a SNEK source file (a small Lisp-like expression
language) ahead-of-time into x86-64 NASM assembly text. The resulting .s file
is meant to be assembled and linked against the runtime's snek_error and
snek_print symbols, not run directly.
`, "\n", " ")

var SnekCompiler = cli.New(Description).
	WithArg(cli.NewArg("input", "The SNEK source file to compile")).
	WithArg(cli.NewArg("output", "Where to write the generated NASM assembly").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	input := args[0]
	output := strings.TrimSuffix(input, ".snek") + ".s"
	if len(args) > 1 {
		output = args[1]
	}

	source, err := os.ReadFile(input)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	program, err := parser.Parse(string(source))
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}

	ir, err := codegen.New().Generate(program)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	asm, err := assemble(ir)
	if err != nil {
		fmt.Printf("ERROR: Unable to render generated instructions: %s\n", err)
		return -1
	}

	if err := os.WriteFile(output, []byte(asm), 0644); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

// assemble renders the three Output sections and stitches them into the
// fixed NASM frame every compiled program shares: a prelude (the shared
// error handler), the function definitions, then the entry point, which
// stashes the heap cursor argument (passed in rsi) into r15 before running
// the main expression.
func assemble(ir *codegen.Output) (string, error) {
	printer := x86.NewPrinter()

	prelude, err := printer.Generate(ir.Prelude)
	if err != nil {
		return "", err
	}
	defs, err := printer.Generate(ir.Defs)
	if err != nil {
		return "", err
	}
	main, err := printer.Generate(ir.Main)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`section .text
global our_code_starts_here
extern snek_error
extern snek_print
%s
%s
our_code_starts_here:
mov r15, rsi
%s
ret
`, prelude, defs, main), nil
}

func main() { os.Exit(SnekCompiler.Run(os.Args, os.Stdout)) }
