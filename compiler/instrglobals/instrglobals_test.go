package instrglobals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/wavelang/compiler/ast"
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/grammar"
	"github.com/viant/wavelang/compiler/lexer"
)

func parseGlobals(t *testing.T, input string, isTopLevel bool) (*Context, *diag.Sink) {
	t.Helper()
	wavelangParser, productions, err := grammar.Get()
	require.NoError(t, err)

	sink := &diag.Sink{}
	tokens, ok := lexer.Process(0, []byte(input), sink)
	require.True(t, ok)

	cursor := 0
	tree, errorTokens := wavelangParser.Parse(func() (int, bool) {
		if tokens[cursor].Kind == lexer.KindEOF {
			return 0, false
		}
		terminal := int(tokens[cursor].Kind)
		cursor++
		return terminal, true
	})
	require.Empty(t, errorTokens)

	unit := &ast.FileUnit{Tokens: tokens, Tree: tree}
	context := &Context{}
	Parse(sink, unit, productions, isTopLevel, context)
	return context, sink
}

func TestParse_AllCommands(t *testing.T) {
	context, sink := parseGlobals(t, `
#max_voices 8;
#sample_rate 44100 48000 96000;
#chunk_size 256;
#activate_fx_immediately true;
`, true)
	assert.Zero(t, sink.ErrorCount())
	assert.Equal(t, uint32(8), context.MaxVoices)
	assert.Equal(t, []uint32{44100, 48000, 96000}, context.SampleRates)
	assert.Equal(t, uint32(256), context.ChunkSize)
	assert.True(t, context.ActivateFXImmediately)
}

func TestParse_Defaults(t *testing.T) {
	context, sink := parseGlobals(t, "", true)
	assert.Zero(t, sink.ErrorCount())
	context.AssignDefaults()
	assert.Equal(t, uint32(1), context.MaxVoices)
	assert.Equal(t, []uint32{0}, context.SampleRates)
	assert.Equal(t, uint32(0), context.ChunkSize)
	assert.False(t, context.ActivateFXImmediately)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		isTopLevel bool
		code       diag.Error
	}{
		{
			name:       "unknown command",
			input:      "#bogus 1;",
			isTopLevel: true,
			code:       diag.ErrorUnrecognizedInstrumentGlobal,
		},
		{
			name:       "outside top-level file",
			input:      "#max_voices 1;",
			isTopLevel: false,
			code:       diag.ErrorIllegalInstrumentGlobal,
		},
		{
			name:       "duplicate command",
			input:      "#chunk_size 128;\n#chunk_size 256;",
			isTopLevel: true,
			code:       diag.ErrorDuplicateInstrumentGlobal,
		},
		{
			name:       "zero voices",
			input:      "#max_voices 0;",
			isTopLevel: true,
			code:       diag.ErrorInvalidInstrumentGlobalParameters,
		},
		{
			name:       "fractional sample rate",
			input:      "#sample_rate 44100.5;",
			isTopLevel: true,
			code:       diag.ErrorInvalidInstrumentGlobalParameters,
		},
		{
			name:       "duplicate sample rate value",
			input:      "#sample_rate 44100 44100;",
			isTopLevel: true,
			code:       diag.ErrorInvalidInstrumentGlobalParameters,
		},
		{
			name:       "wrong value count",
			input:      "#chunk_size 128 256;",
			isTopLevel: true,
			code:       diag.ErrorInvalidInstrumentGlobalParameters,
		},
		{
			name:       "bool expected",
			input:      "#activate_fx_immediately 1;",
			isTopLevel: true,
			code:       diag.ErrorInvalidInstrumentGlobalParameters,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, sink := parseGlobals(t, tc.input, tc.isTopLevel)
			require.Greater(t, sink.ErrorCount(), 0)
			found := false
			for _, message := range sink.Messages() {
				if message.Severity == diag.SeverityError && message.Code == int(tc.code) {
					found = true
				}
			}
			assert.True(t, found, "expected code %d in %v", tc.code, sink.Messages())
		})
	}
}

func TestBuildGlobalsSet_ProductOverSampleRates(t *testing.T) {
	context := &Context{}
	context.MaxVoices = 4
	context.SampleRates = []uint32{44100, 48000}
	context.ChunkSize = 512

	set := context.BuildGlobalsSet()
	require.Len(t, set, 2)
	assert.Equal(t, uint32(44100), set[0].SampleRate)
	assert.Equal(t, uint32(48000), set[1].SampleRate)
	assert.Equal(t, uint32(4), set[0].MaxVoices)
	assert.Equal(t, uint32(4), set[1].MaxVoices)
}
