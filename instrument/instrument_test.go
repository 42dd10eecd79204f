package instrument

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/wavelang/execgraph"
	"github.com/viant/wavelang/nativemodule"
	"github.com/viant/wavelang/nativemodule/corelib"
)

func testRegistry(t *testing.T) *nativemodule.Registry {
	t.Helper()
	registry := nativemodule.NewRegistry()
	require.NoError(t, registry.BeginRegistration(true))
	require.NoError(t, corelib.Register(registry))
	require.NoError(t, registry.EndRegistration())
	return registry
}

func variantGraph(t *testing.T, registry *nativemodule.Registry, sampleRate uint32, constant float32) *execgraph.Graph {
	t.Helper()
	g := execgraph.New(registry)
	g.SetGlobals(nativemodule.InstrumentGlobals{MaxVoices: 4, SampleRate: sampleRate, ChunkSize: 256})
	node := g.AddConstantReal(constant)
	output := g.AddOutputNode(0)
	g.AddEdge(node, output)
	require.NoError(t, g.Validate())
	return g
}

func TestInstrument_SaveLoadRoundTrip(t *testing.T) {
	registry := testRegistry(t)
	saved := New()
	saved.AddVariant(variantGraph(t, registry, 44100, 1.5))
	saved.AddVariant(variantGraph(t, registry, 48000, 2.5))

	var buffer bytes.Buffer
	require.NoError(t, saved.Save(&buffer))

	loaded, err := Load(&buffer, registry)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.VariantCount())
	assert.Equal(t, uint32(44100), loaded.Variant(0).Globals().SampleRate)
	assert.Equal(t, uint32(48000), loaded.Variant(1).Globals().SampleRate)
	assert.NoError(t, loaded.Validate())
}

func TestLoad_RejectsBadHeader(t *testing.T) {
	registry := testRegistry(t)

	_, err := Load(bytes.NewReader([]byte("notwavelang")), registry)
	assert.Error(t, err)

	saved := New()
	saved.AddVariant(variantGraph(t, registry, 44100, 1))
	var buffer bytes.Buffer
	require.NoError(t, saved.Save(&buffer))
	data := buffer.Bytes()

	// Corrupt the version field
	corrupted := append([]byte{}, data...)
	corrupted[8] = 0xff
	_, err = Load(bytes.NewReader(corrupted), registry)
	assert.Error(t, err)
}

func TestVariantForRequirements(t *testing.T) {
	registry := testRegistry(t)
	compiled := New()
	compiled.AddVariant(variantGraph(t, registry, 44100, 1))
	compiled.AddVariant(variantGraph(t, registry, 48000, 2))

	index, err := compiled.VariantForRequirements(Requirements{SampleRate: 48000})
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	_, err = compiled.VariantForRequirements(Requirements{SampleRate: 96000})
	assert.Error(t, err)
}

func TestVariantForRequirements_UnconstrainedMatchesAny(t *testing.T) {
	registry := testRegistry(t)
	compiled := New()
	compiled.AddVariant(variantGraph(t, registry, 0, 1))

	index, err := compiled.VariantForRequirements(Requirements{SampleRate: 96000})
	require.NoError(t, err)
	assert.Equal(t, 0, index)
}
