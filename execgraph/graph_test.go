package execgraph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func testGlobals() nativemodule.InstrumentGlobals {
	return nativemodule.InstrumentGlobals{MaxVoices: 1, SampleRate: 44100, ChunkSize: 512}
}

// addCall wires constant or slot sources into a fresh call node and
// returns (call, output slot).
func addCall(g *Graph, uid nativemodule.UID, sources ...int) (int, int) {
	call := g.AddNativeModuleCall(uid)
	for index, src := range sources {
		g.AddEdge(src, g.Incoming(call, index))
	}
	return call, g.Outgoing(call, 0)
}

func TestGraph_CallNodeSlots(t *testing.T) {
	g := New(testRegistry(t))
	call := g.AddNativeModuleCall(corelib.UIDAddition)
	assert.Equal(t, 2, g.IncomingCount(call))
	assert.Equal(t, 1, g.OutgoingCount(call))
	assert.Equal(t, NodeNativeModuleInput, g.NodeKindOf(g.Incoming(call, 0)))
	assert.Equal(t, NodeNativeModuleOutput, g.NodeKindOf(g.Outgoing(call, 0)))
}

func TestGraph_Validate(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := g.AddConstantReal(1)
	b := g.AddConstantReal(2)
	_, addOut := addCall(g, corelib.UIDAddition, a, b)
	output := g.AddOutputNode(0)
	g.AddEdge(addOut, output)
	assert.NoError(t, g.Validate())
}

func TestGraph_ValidateEdgeLattice(t *testing.T) {
	g := New(testRegistry(t))
	constant := g.AddConstantReal(1)
	other := g.AddConstantReal(2)
	output := g.AddOutputNode(0)
	assert.Error(t, g.ValidateEdge(constant, other), "constant cannot feed constant")
	assert.NoError(t, g.ValidateEdge(constant, output))
	assert.Error(t, g.ValidateEdge(output, constant), "graph output has no outgoing edges")
}

func TestGraph_ValidateRejectsDuplicateOutputLabels(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	constant := g.AddConstantReal(1)
	first := g.AddOutputNode(0)
	second := g.AddOutputNode(0)
	g.AddEdge(constant, first)
	g.AddEdge(constant, second)
	assert.Error(t, g.Validate())
}

func TestGraph_RemoveCallRemovesSlots(t *testing.T) {
	g := New(testRegistry(t))
	a := g.AddConstantReal(1)
	b := g.AddConstantReal(2)
	call, _ := addCall(g, corelib.UIDAddition, a, b)
	g.RemoveNode(call)
	for index := 0; index < g.NodeCount(); index++ {
		kind := g.NodeKindOf(index)
		assert.NotEqual(t, NodeNativeModuleInput, kind)
		assert.NotEqual(t, NodeNativeModuleOutput, kind)
	}
	assert.Zero(t, g.OutgoingCount(a))
}

func TestGraph_CompactRemapsIndices(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	removed := g.AddConstantReal(99)
	kept := g.AddConstantReal(1)
	output := g.AddOutputNode(0)
	g.AddEdge(kept, output)
	g.RemoveNode(removed)

	g.Compact()
	assert.Equal(t, 2, g.NodeCount())
	assert.NoError(t, g.Validate())
	for index := 0; index < g.NodeCount(); index++ {
		assert.NotEqual(t, NodeInvalid, g.NodeKindOf(index))
	}
}

func TestGraph_SaveLoadRoundTrip(t *testing.T) {
	registry := testRegistry(t)
	g := New(registry)
	g.SetGlobals(testGlobals())
	a := g.AddConstantReal(1.5)
	flag := g.AddConstantBool(true)
	name := g.AddConstantString("wave")
	b := g.AddConstantReal(2.5)
	_, addOut := addCall(g, corelib.UIDAddition, a, b)
	_, selOut := addCall(g, corelib.UIDSelectString, flag, name, g.AddConstantString("lang"))
	first := g.AddOutputNode(0)
	second := g.AddOutputNode(1)
	g.AddEdge(addOut, first)
	g.AddEdge(selOut, second)
	require.NoError(t, g.Validate())

	var buffer bytes.Buffer
	require.NoError(t, g.Save(&buffer))
	loaded, err := Load(&buffer, registry)
	require.NoError(t, err)

	assert.Equal(t, g.Globals(), loaded.Globals())
	require.Equal(t, g.NodeCount(), loaded.NodeCount())
	for index := 0; index < g.NodeCount(); index++ {
		assert.Equal(t, g.NodeKindOf(index), loaded.NodeKindOf(index))
		assert.Equal(t, g.IncomingCount(index), loaded.IncomingCount(index))
		assert.Equal(t, g.OutgoingCount(index), loaded.OutgoingCount(index))
	}
	assert.Equal(t, float32(1.5), loaded.ConstantRealValue(a))
	assert.Equal(t, "wave", loaded.ConstantStringValue(name))
}

func TestLoad_RejectsCorruptPayloads(t *testing.T) {
	registry := testRegistry(t)
	g := New(registry)
	g.SetGlobals(testGlobals())
	constant := g.AddConstantReal(1)
	output := g.AddOutputNode(0)
	g.AddEdge(constant, output)

	var buffer bytes.Buffer
	require.NoError(t, g.Save(&buffer))
	data := buffer.Bytes()

	truncated := data[:len(data)-3]
	_, err := Load(bytes.NewReader(truncated), registry)
	assert.Error(t, err)
}
