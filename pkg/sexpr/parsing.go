package sexpr

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token and shape of
// the S-expression surface syntax. Unlike the teacher's Assembler/Jack
// grammars (flat, bounded nesting) a list of S-expressions is genuinely
// recursive, so pList below uses the standard goparsec forward-reference
// trick: it holds a pointer to pSexpr, which is declared without an
// initializer and assigned in init(), breaking what would otherwise be an
// initialization cycle.

// Top level object, generates the traversable AST from the combinators below.
var ast = pc.NewAST("sexpr", 0)

var (
	// Parser combinator for a parenthesized, possibly empty, list; the
	// elements are read through &pSexpr, see note above.
	pList = ast.And("list", nil, pc.Atom("(", "("), ast.Kleene("elems", nil, &pSexpr), pc.Atom(")", ")"))

	// Parser combinator for a double-quoted string atom.
	pString = pc.Token(`"(?:\\.|[^"\\])*"`, "STRING")

	// Parser combinator for a bare symbol atom: anything but whitespace and
	// parens. Keyword/identifier validation happens one layer up, in
	// pkg/parser — the surface reader accepts any such token.
	pSymbol = pc.Token(`[^\s()]+`, "SYMBOL")

	// Parser combinator for a single S-expression: integer, string, symbol,
	// or list, tried in that order so a leading digit is read as Integer
	// rather than Symbol. Assigned in init().
	pSexpr pc.Parser
)

func init() {
	pSexpr = ast.OrdChoice("sexpr", nil, pc.Int(), pString, pSymbol, pList)
}

// ----------------------------------------------------------------------------
// Sexpr Reader

// Reader reads the two-phase pipeline text -> generic tree -> Sexpr, the
// same split the teacher's asm.Parser/jack.Parser use, applied to a
// recursive grammar instead of a flat one.
//
// Feature flags (env vars), same as the teacher's parsers:
// - PARSEC_DEBUG: verbose logging of which combinators match
// - PRINT_AST:    prints a textual representation of the AST to stdout
type Reader struct{ reader io.Reader }

// NewReader returns a Reader over r. r must be valid and readable.
func NewReader(r io.Reader) Reader {
	return Reader{reader: r}
}

// Parse reads the entirety of the underlying reader and returns the single
// top-level Sexpr found there (a program is read as one big List once the
// caller has wrapped its source in an outer pair of parens).
func (p *Reader) Parse() (Sexpr, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from 'io.Reader': %s", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return nil, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(root)
}

// FromSource scans the textual input and returns a traversable, generic
// AST that FromAST can walk to build a typed Sexpr tree.
func (p *Reader) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, scanner := ast.Parsewith(pSexpr, pc.NewScanner(source))

	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	// A successful parse must have consumed the entire input modulo
	// trailing whitespace; anything left over is a malformed program.
	remainder, _ := scanner.Match(`^\s*$`)
	return root, root != nil && remainder != nil
}

// FromAST walks the generic tree produced by FromSource and builds the
// typed Sexpr counterpart, dispatching on GetName() exactly like the
// teacher's FromAST passes do.
func (p *Reader) FromAST(node pc.Queryable) (Sexpr, error) {
	switch node.GetName() {
	case "INT":
		n, err := strconv.ParseInt(node.GetValue(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed integer literal %q: %w", node.GetValue(), err)
		}
		return Integer(n), nil

	case "STRING":
		unquoted := node.GetValue()
		if len(unquoted) >= 2 {
			unquoted = unquoted[1 : len(unquoted)-1]
		}
		return String(unquoted), nil

	case "SYMBOL":
		// pc.Int() doesn't reliably claim a leading '-' ahead of pSymbol in
		// the OrdChoice above, so a negative literal like "-5" can surface
		// here as a SYMBOL token instead of an INT one. No valid identifier
		// can start with '-' (isValidIdent requires a lowercase first
		// letter, enforced one layer up in pkg/parser), so reparsing as an
		// integer here is unambiguous and restores negative literals.
		if n, err := strconv.ParseInt(node.GetValue(), 10, 64); err == nil {
			return Integer(n), nil
		}
		return Symbol(node.GetValue()), nil

	case "list":
		elems := node.GetChildren()[1] // skip the '(' and ')' atom nodes
		out := make(List, 0, len(elems.GetChildren()))
		for _, child := range elems.GetChildren() {
			sexpr, err := p.FromAST(child)
			if err != nil {
				return nil, err
			}
			out = append(out, sexpr)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unrecognized node '%s'", node.GetName())
	}
}
