package fabric

import (
	"fmt"
	"io"
	"os"

	"smiroute/topology"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// wiringLexer tokenizes the wiring list format. Identifiers may contain
// single dashes between characters (fpga-0014), so "a->b" still splits.
var wiringLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Arrow", Pattern: `->|--`},
	{Name: "Punct", Pattern: `[:=]`},
	{Name: "Ident", Pattern: `[A-Za-z0-9_.]+(?:-[A-Za-z0-9_.]+)*`},
})

type wiringFile struct {
	Entries []*wiringEntry `@@*`
}

type wiringEntry struct {
	Pos        lexer.Position
	Assignment *wiringAssignment `  @@`
	Wire       *wiringWire       `| @@`
}

// fpga node:slot = program
type wiringAssignment struct {
	Node    string `"fpga" @Ident ":"`
	Slot    string `@Ident "="`
	Program string `@Ident`
}

type wiringEndpoint struct {
	Node    string `@Ident ":"`
	Slot    string `@Ident ":"`
	Channel string `@Ident`
}

type wiringWire struct {
	From *wiringEndpoint `@@ ("->" | "--")`
	To   *wiringEndpoint `@@`
}

var wiringParser = participle.MustBuild[wiringFile](
	participle.Lexer(wiringLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(3),
)

// LoadWiring reads a wiring list file
func LoadWiring(path string) (*Fabric, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fabric file: %w", err)
	}
	defer file.Close()

	return ParseWiring(path, file)
}

// ParseWiring parses a wiring list read from r; name is used in error positions
func ParseWiring(name string, r io.Reader) (*Fabric, error) {
	parsed, err := wiringParser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	a := newAssembler()
	for _, entry := range parsed.Entries {
		switch {
		case entry.Assignment != nil:
			device, err := ParseDeviceKey(entry.Assignment.Node + ":" + entry.Assignment.Slot)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", entry.Pos, err)
			}
			if err := a.assign(device, entry.Assignment.Program); err != nil {
				return nil, fmt.Errorf("%s: %w", entry.Pos, err)
			}
		case entry.Wire != nil:
			from, err := entry.Wire.From.endpoint()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", entry.Pos, err)
			}
			to, err := entry.Wire.To.endpoint()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", entry.Pos, err)
			}
			a.wire(from, to)
		}
	}
	return a.fabric(), nil
}

func (e *wiringEndpoint) endpoint() (topology.Endpoint, error) {
	return ParseEndpoint(e.Node + ":" + e.Slot + ":" + e.Channel)
}
