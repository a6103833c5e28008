// Package asm assembles UMVM assembly source into program images.
//
// Source is line-oriented. Each line is one of:
//
//	mov 1, 2, 3        ; instruction (commas between args optional)
//	ldi 0, 'A'         ; ldi takes a register and a 25-bit immediate
//	ldi 7, @loop       ; immediates may reference labels
//	label @loop        ; bind a label to the next word's address
//	0xdeadbeef         ; raw word, emitted verbatim
//	"hi\x00"           ; string data, packed 4 bytes per word
//
// Comments run from ';' to end of line. Label references may appear
// before the label is declared; they are patched once the whole source
// has been read.
package asm

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/akhildatla/umvm/pkg/vm"
)

// Error definitions
var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrBadArgCount        = errors.New("wrong number of arguments")
	ErrBadArgument        = errors.New("bad argument")
	ErrDuplicateLabel     = errors.New("duplicate label")
	ErrUndefinedLabel     = errors.New("undefined label")
	ErrProgramTooLarge    = errors.New("program size exceeds 25-bit limit")
)

// Grammar. Participle builds the AST from these tagged structs.

type program struct {
	Lines []*line `parser:"(@@ | Newline)*"`
}

type line struct {
	Pos lexer.Position

	LabelDecl *string `parser:"  \"label\" @Label"`
	Str       *string `parser:"| @String"`
	Raw       *string `parser:"| @Hex"`
	Instr     *instr  `parser:"| @@"`
}

type instr struct {
	Pos lexer.Position

	Op   string `parser:"@Ident"`
	Args []*arg `parser:"(@@ (\",\"? @@)*)?"`
}

type arg struct {
	Pos lexer.Position

	Label *string `parser:"  @Label"`
	Char  *string `parser:"| @Char"`
	Hex   *string `parser:"| @Hex"`
	Int   *string `parser:"| @Int"`
}

var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "Newline", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\n])*"`},
	{Name: "Char", Pattern: `'(?:\\.|[^'\n])'`},
	{Name: "Hex", Pattern: `0[xX][0-9a-fA-F]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Label", Pattern: `@[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Comma", Pattern: `,`},
})

var parser = participle.MustBuild[program](
	participle.Lexer(asmLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// value resolves an argument to a number, or records a patch for a
// label reference.
func (a *arg) value(at int, patches map[string][]int) (uint32, error) {
	switch {
	case a.Label != nil:
		name := (*a.Label)[1:]
		patches[name] = append(patches[name], at)
		return 0, nil
	case a.Char != nil:
		s, err := strconv.Unquote(*a.Char)
		if err != nil {
			return 0, fmt.Errorf("%s: %w: %s", a.Pos, ErrBadArgument, *a.Char)
		}
		return uint32([]rune(s)[0]), nil
	case a.Hex != nil:
		v, err := strconv.ParseUint((*a.Hex)[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: %w: %s", a.Pos, ErrBadArgument, *a.Hex)
		}
		return uint32(v), nil
	default:
		v, err := strconv.ParseUint(*a.Int, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: %w: %s", a.Pos, ErrBadArgument, *a.Int)
		}
		return uint32(v), nil
	}
}

// Assemble converts assembly source to a program image.
func Assemble(source string) ([]uint32, error) {
	ast, err := parser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	symtab := make(map[string]uint32) // label -> address
	patches := make(map[string][]int) // label -> words to patch
	data := make([]uint32, 0, len(ast.Lines))

	for _, ln := range ast.Lines {
		switch {
		case ln.LabelDecl != nil:
			name := (*ln.LabelDecl)[1:]
			if _, dup := symtab[name]; dup {
				return nil, fmt.Errorf("%s: %w: @%s", ln.Pos, ErrDuplicateLabel, name)
			}
			symtab[name] = uint32(len(data))

		case ln.Str != nil:
			s, err := strconv.Unquote(*ln.Str)
			if err != nil {
				return nil, fmt.Errorf("%s: %w: %s", ln.Pos, ErrBadArgument, *ln.Str)
			}
			data = append(data, packString(s)...)

		case ln.Raw != nil:
			v, err := strconv.ParseUint((*ln.Raw)[2:], 16, 32)
			if err != nil {
				return nil, fmt.Errorf("%s: %w: %s", ln.Pos, ErrBadArgument, *ln.Raw)
			}
			data = append(data, uint32(v))

		case ln.Instr != nil:
			word, err := assembleInstr(ln.Instr, len(data), patches)
			if err != nil {
				return nil, err
			}
			data = append(data, word)
		}

		if len(data) > vm.MaxImm {
			return nil, ErrProgramTooLarge
		}
	}

	for name, addrs := range patches {
		addr, ok := symtab[name]
		if !ok {
			return nil, fmt.Errorf("%w: @%s", ErrUndefinedLabel, name)
		}
		for _, a := range addrs {
			data[a] |= addr
		}
	}

	return data, nil
}

func assembleInstr(in *instr, at int, patches map[string][]int) (uint32, error) {
	op, ok := vm.OpcodeFromString(in.Op)
	if !ok {
		return 0, fmt.Errorf("%s: %w: %s", in.Pos, ErrUnknownInstruction, in.Op)
	}
	argc := op.RegArgs()
	if len(in.Args) != argc {
		return 0, fmt.Errorf("%s: %w: %s takes %d, got %d",
			in.Pos, ErrBadArgCount, in.Op, argc, len(in.Args))
	}

	if op == vm.OpLdi {
		reg, err := in.Args[0].value(at, patches)
		if err != nil {
			return 0, err
		}
		imm, err := in.Args[1].value(at, patches)
		if err != nil {
			return 0, err
		}
		return uint32(vm.EncodeLdi(reg, imm)), nil
	}

	word := uint32(op) << 28
	for i, a := range in.Args {
		v, err := a.value(at, patches)
		if err != nil {
			return 0, err
		}
		word |= (v & 7) << (3 * (argc - i - 1))
	}
	return word, nil
}

// packString packs a string into words, 4 bytes per word, big-endian,
// padded with NUL to a word boundary.
func packString(s string) []uint32 {
	b := []byte(s)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	words := make([]uint32, 0, len(b)/4)
	for i := 0; i < len(b); i += 4 {
		words = append(words,
			uint32(b[i])<<24|uint32(b[i+1])<<16|uint32(b[i+2])<<8|uint32(b[i+3]))
	}
	return words
}
