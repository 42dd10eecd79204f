package compiler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/execgraph"
)

var testCaseCounter int

// compileFiles uploads the given sources into an in-memory file
// system and compiles "main.wl".
func compileFiles(t *testing.T, files map[string]string) *Result {
	t.Helper()
	ctx := context.Background()
	fs := afs.New()
	testCaseCounter++
	base := fmt.Sprintf("mem://localhost/wavelang/case%03d", testCaseCounter)
	for name, content := range files {
		require.NoError(t, fs.Upload(ctx, base+"/"+name, os.FileMode(0644), strings.NewReader(content)))
	}
	c, err := New(nil, WithFS(fs))
	require.NoError(t, err)
	return c.Compile(ctx, base+"/main.wl")
}

func compileSource(t *testing.T, source string) *Result {
	t.Helper()
	return compileFiles(t, map[string]string{"main.wl": source})
}

// outputConstant returns the real constant feeding the labelled graph
// output.
func outputConstant(t *testing.T, g *execgraph.Graph, label int) float32 {
	t.Helper()
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == execgraph.NodeOutput && g.OutputIndexOf(index) == label {
			src := g.Incoming(index, 0)
			require.Equal(t, execgraph.NodeConstant, g.NodeKindOf(src))
			return g.ConstantRealValue(src)
		}
	}
	t.Fatalf("graph output %d not found", label)
	return 0
}

func countCalls(g *execgraph.Graph) int {
	count := 0
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == execgraph.NodeNativeModuleCall {
			count++
		}
	}
	return count
}

func TestCompile_FoldsConstantExpression(t *testing.T) {
	result := compileSource(t, `
module voice_main(out real x) : bool {
	x = 1.0 + 2.0;
	return true;
}
`)
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	require.Equal(t, 1, result.Instrument.VariantCount())
	g := result.Instrument.Variant(0)
	assert.Zero(t, countCalls(g))
	assert.Equal(t, float32(3), outputConstant(t, g, 0))
}

func TestCompile_SampleRateVariants(t *testing.T) {
	result := compileSource(t, `
#sample_rate 44100 48000;
#max_voices 8;
#chunk_size 512;
#activate_fx_immediately true;

module voice_main(out real x) : bool {
	x = sample_rate / 2.0;
	return true;
}
`)
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	require.Equal(t, 2, result.Instrument.VariantCount())

	first := result.Instrument.Variant(0)
	second := result.Instrument.Variant(1)
	assert.Equal(t, uint32(44100), first.Globals().SampleRate)
	assert.Equal(t, uint32(48000), second.Globals().SampleRate)
	assert.Equal(t, uint32(8), first.Globals().MaxVoices)
	assert.Equal(t, uint32(512), first.Globals().ChunkSize)
	assert.True(t, first.Globals().ActivateFXImmediately)
	assert.Equal(t, float32(22050), outputConstant(t, first, 0))
	assert.Equal(t, float32(24000), outputConstant(t, second, 0))
}

func TestCompile_ScriptModulesAndCalls(t *testing.T) {
	result := compileSource(t, `
module double(in real v) : real {
	return v * 2.0;
}

module scale(in real v, in real factor = 10.0, out real result) : void {
	result = v * factor;
}

module voice_main(out real x, out real y) : bool {
	x = double(3.0);
	scale(2.0, result = out y);
	return true;
}
`)
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	g := result.Instrument.Variant(0)
	assert.Equal(t, float32(6), outputConstant(t, g, 0))
	assert.Equal(t, float32(20), outputConstant(t, g, 1))
}

func TestCompile_ControlFlowUnrolls(t *testing.T) {
	result := compileSource(t, `
module voice_main(out real x) : bool {
	real total = 0.0;
	for (const real v : [1.0, 2.0, 3.0, 4.0]) {
		if (v == 3.0) {
			continue;
		}
		total = total + v;
	}
	x = total;
	return true;
}
`)
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	assert.Equal(t, float32(7), outputConstant(t, result.Instrument.Variant(0), 0))
}

func TestCompile_NamespacesAndGlobals(t *testing.T) {
	result := compileSource(t, `
const real base = 100.0;

namespace util {
	module offset(in real v) : real {
		return v + base;
	}
}

module voice_main(out real x) : bool {
	x = util.offset(11.0);
	return true;
}
`)
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	assert.Equal(t, float32(111), outputConstant(t, result.Instrument.Variant(0), 0))
}

func TestCompile_Imports(t *testing.T) {
	result := compileFiles(t, map[string]string{
		"main.wl": `
import lib;
import lib;
import helper as h;

module voice_main(out real x) : bool {
	x = lib.triple(h.offset(1.0));
	return true;
}
`,
		"lib.wl": `
module triple(in real v) : real {
	return v * 3.0;
}
`,
		"helper.wl": `
module offset(in real v) : real {
	return v + 9.0;
}
`,
	})
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	assert.Equal(t, float32(30), outputConstant(t, result.Instrument.Variant(0), 0))
}

func TestCompile_ImportAsLocal(t *testing.T) {
	result := compileFiles(t, map[string]string{
		"main.wl": `
import lib as .;

module voice_main(out real x) : bool {
	x = triple(2.0);
	return true;
}
`,
		"lib.wl": `
module triple(in real v) : real {
	return v * 3.0;
}
`,
	})
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	assert.Equal(t, float32(6), outputConstant(t, result.Instrument.Variant(0), 0))
}

func TestCompile_NativeLibraryImport(t *testing.T) {
	result := compileFiles(t, map[string]string{
		"main.wl": `
import native core as .;

module voice_main(out real x) : bool {
	x = max(sqrt(16.0), 3.0);
	return true;
}
`,
	})
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	assert.Equal(t, float32(4), outputConstant(t, result.Instrument.Variant(0), 0))
}

func TestCompile_VoiceAndFXEntryPoints(t *testing.T) {
	result := compileSource(t, `
module voice_main(out real x) : bool {
	x = 5.0;
	return true;
}

module fx_main(in real x, out real y) : bool {
	y = x * 2.0;
	return true;
}
`)
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	g := result.Instrument.Variant(0)
	assert.Equal(t, float32(5), outputConstant(t, g, 0))
	assert.Equal(t, float32(10), outputConstant(t, g, 1))
}

func hasErrorCode(sink *diag.Sink, code diag.Error) bool {
	for _, message := range sink.Messages() {
		if message.Severity == diag.SeverityError && message.Code == int(code) {
			return true
		}
	}
	return false
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		code  diag.Error
	}{
		{
			name:  "missing entry point",
			files: map[string]string{"main.wl": "module helper(in real v) : real { return v; }"},
			code:  diag.ErrorMissingEntryPoint,
		},
		{
			name: "unresolved identifier",
			files: map[string]string{"main.wl": `
module voice_main(out real x) : bool {
	x = missing;
	return true;
}
`},
			code: diag.ErrorIdentifierResolutionFailed,
		},
		{
			name: "type mismatch",
			files: map[string]string{"main.wl": `
module voice_main(out real x) : bool {
	x = true;
	return true;
}
`},
			code: diag.ErrorTypeMismatch,
		},
		{
			name: "missing return",
			files: map[string]string{"main.wl": `
module helper(in real v) : real { v = v; }
module voice_main(out real x) : bool {
	x = 1.0;
	return true;
}
`},
			code: diag.ErrorMissingReturnStatement,
		},
		{
			name: "unresolved import",
			files: map[string]string{"main.wl": `
import nowhere;
module voice_main(out real x) : bool {
	x = 1.0;
	return true;
}
`},
			code: diag.ErrorFailedToResolveImport,
		},
		{
			name: "self import",
			files: map[string]string{"main.wl": `
import main;
module voice_main(out real x) : bool {
	x = 1.0;
	return true;
}
`},
			code: diag.ErrorSelfReferentialImport,
		},
		{
			name: "globals outside top-level file",
			files: map[string]string{
				"main.wl": `
import lib;
module voice_main(out real x) : bool {
	x = 1.0;
	return true;
}
`,
				"lib.wl": "#max_voices 4;\n",
			},
			code: diag.ErrorIllegalInstrumentGlobal,
		},
		{
			name: "duplicate instrument global",
			files: map[string]string{"main.wl": `
#max_voices 2;
#max_voices 4;
module voice_main(out real x) : bool {
	x = 1.0;
	return true;
}
`},
			code: diag.ErrorDuplicateInstrumentGlobal,
		},
		{
			name: "entry point bad signature",
			files: map[string]string{"main.wl": `
module voice_main(in real x) : bool {
	return true;
}
`},
			code: diag.ErrorInvalidEntryPoint,
		},
		{
			name: "self referential constant",
			files: map[string]string{"main.wl": `
const real loop = loop + 1.0;
module voice_main(out real x) : bool {
	x = loop;
	return true;
}
`},
			code: diag.ErrorSelfReferentialConstant,
		},
		{
			name: "array index out of bounds",
			files: map[string]string{"main.wl": `
module voice_main(out real x) : bool {
	const real[] values = [1.0, 2.0];
	x = values[5.0];
	return true;
}
`},
			code: diag.ErrorArrayIndexOutOfBounds,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := compileFiles(t, tc.files)
			assert.Nil(t, result.Instrument)
			assert.True(t, hasErrorCode(result.Sink, tc.code),
				"expected error code %d in %v", tc.code, result.Sink.Messages())
		})
	}
}

func TestCompile_MissingFile(t *testing.T) {
	ctx := context.Background()
	c, err := New(nil, WithFS(afs.New()))
	require.NoError(t, err)
	result := c.Compile(ctx, "mem://localhost/wavelang/absent/main.wl")
	assert.Nil(t, result.Instrument)
	assert.True(t, hasErrorCode(result.Sink, diag.ErrorFailedToFindFile))
}

func TestCompile_WarningsDoNotFail(t *testing.T) {
	result := compileSource(t, `
module voice_main(out real x = 1.0) : bool {
	x = 2.0;
	return true;
}
`)
	require.NotNil(t, result.Instrument, "diagnostics: %v", result.Sink.Messages())
	assert.Greater(t, result.Sink.WarningCount(), 0)
	assert.Zero(t, result.Sink.ErrorCount())
}
