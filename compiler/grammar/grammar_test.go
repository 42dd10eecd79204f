package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/lexer"
)

func parseSource(t *testing.T, input string) (errorTokens []int) {
	t.Helper()
	wavelangParser, _, err := Get()
	require.NoError(t, err)

	sink := &diag.Sink{}
	tokens, ok := lexer.Process(0, []byte(input), sink)
	require.True(t, ok)

	cursor := 0
	_, errorTokens = wavelangParser.Parse(func() (int, bool) {
		if tokens[cursor].Kind == lexer.KindEOF {
			return 0, false
		}
		terminal := int(tokens[cursor].Kind)
		cursor++
		return terminal, true
	})
	return errorTokens
}

func TestGrammar_TablesGenerate(t *testing.T) {
	_, productions, err := Get()
	require.NoError(t, err)
	assert.NotNil(t, productions)
}

func TestGrammar_ParsesPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "empty file", source: ""},
		{name: "import", source: "import lib;"},
		{name: "relative import with alias", source: "import ..util.osc as o;"},
		{name: "native import", source: "import native core as .;"},
		{name: "instrument global", source: "#sample_rate 44100 48000;"},
		{
			name:   "module with body",
			source: "module voice_main(out real x) : bool {\n\tx = 1.0 + 2.0;\n\treturn true;\n}",
		},
		{
			name:   "qualified types",
			source: "module m(in const real a, in const? bool b, out real c) : void { c = a; }",
		},
		{
			name:   "value declarations and calls",
			source: "public const real freq = 440.0;\nmodule voice_main(out real x) : bool {\n\treal y = freq * 2.0;\n\tosc(y, out x);\n\treturn true;\n}",
		},
		{
			name:   "control flow",
			source: "module m(out real x) : bool {\n\tif (true) { x = 1.0; } else if (false) { x = 2.0; } else { x = 3.0; }\n\tfor (const real v : [1.0, 2.0]) { x = x + v; }\n\treturn true;\n}",
		},
		{
			name:   "namespace and dotted call",
			source: "namespace util { module double(in real v) : real { return v * 2.0; } }\nmodule voice_main(out real x) : bool {\n\tx = util.double(3.0);\n\treturn true;\n}",
		},
		{
			name:   "named and out call arguments",
			source: "module m(out real x) : bool {\n\tmix(a = 1.0, b = 2.0, result = out x);\n\treturn true;\n}",
		},
		{
			name:   "arrays and subscripts",
			source: "module m(out real x) : bool {\n\tconst real[] values = [1.0, 2.0, 3.0];\n\tx = values[1];\n\treturn true;\n}",
		},
		{name: "upsampled type", source: "module m(in real@2 a, out real@2 b) : void { b = a; }"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, parseSource(t, tc.source))
		})
	}
}

func TestGrammar_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "missing semicolon", source: "import lib"},
		{name: "statement outside module", source: "x = 1.0;"},
		{name: "unbalanced brace", source: "module m(out real x) : bool { return true;"},
		{name: "if without parens", source: "module m(out real x) : bool { if true { } return true; }"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEmpty(t, parseSource(t, tc.source))
		})
	}
}
