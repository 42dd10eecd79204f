package taskgraph

import (
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

func testGraph(t *testing.T) *execgraph.Graph {
	t.Helper()
	g := execgraph.New(testRegistry(t))
	g.SetGlobals(nativemodule.InstrumentGlobals{MaxVoices: 1, SampleRate: 44100, ChunkSize: 512})
	return g
}

// source builds a producer task so downstream calls see buffer
// inputs: a sqrt over a constant, lowered to a constant-input task
// writing a fresh buffer.
func source(g *execgraph.Graph) int {
	call := g.AddNativeModuleCall(corelib.UIDSqrt)
	g.AddEdge(g.AddConstantReal(2), g.Incoming(call, 0))
	return g.Outgoing(call, 0)
}

func taskByFunctionPrefix(graph *Graph, prefix string) *Task {
	for _, task := range graph.Tasks {
		if len(task.Function) >= len(prefix) && task.Function[:len(prefix)] == prefix {
			return task
		}
	}
	return nil
}

// Inout selection: for mul(a, b) where a has exactly one consumer and
// b has two, the bufferio_buffer variant is selected with a as the
// inout slot and the mapping is [IO(0), I(0), IO(0)].
func TestBuild_InoutSelection(t *testing.T) {
	g := testGraph(t)
	a := source(g)
	b := source(g)
	mul := g.AddNativeModuleCall(corelib.UIDMultiplication)
	g.AddEdge(a, g.Incoming(mul, 0))
	g.AddEdge(b, g.Incoming(mul, 1))
	// Give b a second consumer so it cannot be reused as inout
	neg := g.AddNativeModuleCall(corelib.UIDNegation)
	g.AddEdge(b, g.Incoming(neg, 0))
	first := g.AddOutputNode(0)
	second := g.AddOutputNode(1)
	g.AddEdge(g.Outgoing(mul, 0), first)
	g.AddEdge(g.Outgoing(neg, 0), second)
	require.NoError(t, g.Validate())

	graph, err := Build(g)
	require.NoError(t, err)

	task := taskByFunctionPrefix(graph, "mul")
	require.NotNil(t, task)
	assert.Equal(t, "mul_bufferio_buffer", task.Function)
	assert.Equal(t, []Mapping{IO(0), I(0), IO(0)}, task.Mappings)
	assert.Len(t, task.InOutBuffers, 1)
	assert.Len(t, task.InBuffers, 1)
	assert.Empty(t, task.OutBuffers)
}

// When both inputs branch, the plain buffer_buffer variant with a
// dedicated output buffer is selected.
func TestBuild_NoInoutWhenBranching(t *testing.T) {
	g := testGraph(t)
	a := source(g)
	add := g.AddNativeModuleCall(corelib.UIDAddition)
	g.AddEdge(a, g.Incoming(add, 0))
	g.AddEdge(a, g.Incoming(add, 1))
	first := g.AddOutputNode(0)
	g.AddEdge(g.Outgoing(add, 0), first)
	require.NoError(t, g.Validate())

	graph, err := Build(g)
	require.NoError(t, err)

	task := taskByFunctionPrefix(graph, "add")
	require.NotNil(t, task)
	assert.Equal(t, "add_buffer_buffer", task.Function)
	assert.Equal(t, []Mapping{I(0), I(1), O(0)}, task.Mappings)
}

// Constant inputs are baked into the task, not given buffers.
func TestBuild_ConstantInputs(t *testing.T) {
	g := testGraph(t)
	a := source(g)
	add := g.AddNativeModuleCall(corelib.UIDAddition)
	g.AddEdge(a, g.Incoming(add, 0))
	g.AddEdge(g.AddConstantReal(4), g.Incoming(add, 1))
	output := g.AddOutputNode(0)
	g.AddEdge(g.Outgoing(add, 0), output)
	require.NoError(t, g.Validate())

	graph, err := Build(g)
	require.NoError(t, err)

	task := taskByFunctionPrefix(graph, "add")
	require.NotNil(t, task)
	assert.Equal(t, "add_bufferio_constant", task.Function)
	assert.Equal(t, []Mapping{IO(0), C(0), IO(0)}, task.Mappings)
	require.Len(t, task.Constants, 1)
	assert.Equal(t, float32(4), task.Constants[0].Real)
}

// Buffer sharing: a producer's output and its consumer's input resolve
// to the same buffer index.
func TestBuild_BufferSharing(t *testing.T) {
	g := testGraph(t)
	a := source(g)
	b := source(g)
	add := g.AddNativeModuleCall(corelib.UIDAddition)
	g.AddEdge(a, g.Incoming(add, 0))
	g.AddEdge(b, g.Incoming(add, 1))
	neg := g.AddNativeModuleCall(corelib.UIDNegation)
	g.AddEdge(g.Outgoing(add, 0), g.Incoming(neg, 0))
	first := g.AddOutputNode(0)
	second := g.AddOutputNode(1)
	g.AddEdge(g.Outgoing(add, 0), first)
	g.AddEdge(g.Outgoing(neg, 0), second)
	require.NoError(t, g.Validate())

	graph, err := Build(g)
	require.NoError(t, err)

	addTask := taskByFunctionPrefix(graph, "add")
	negTask := taskByFunctionPrefix(graph, "neg")
	require.NotNil(t, addTask)
	require.NotNil(t, negTask)

	// add reuses its first input's buffer as inout; its result
	// branches to neg and a graph output, so neg reads the same
	// buffer as a plain input
	require.Len(t, addTask.InOutBuffers, 1)
	addOutput := addTask.InOutBuffers[0]
	require.Len(t, negTask.InBuffers, 1)
	assert.Equal(t, addOutput, negTask.InBuffers[0])
}

// Each task's formals appear exactly once across its mapping lists.
func TestBuild_TaskMappingCoversFormals(t *testing.T) {
	g := testGraph(t)
	a := source(g)
	b := source(g)
	add := g.AddNativeModuleCall(corelib.UIDAddition)
	g.AddEdge(a, g.Incoming(add, 0))
	g.AddEdge(b, g.Incoming(add, 1))
	output := g.AddOutputNode(0)
	g.AddEdge(g.Outgoing(add, 0), output)
	require.NoError(t, g.Validate())

	graph, err := Build(g)
	require.NoError(t, err)

	for _, task := range graph.Tasks {
		constants, ins, outs, inouts := 0, 0, 0, 0
		for _, mapping := range task.Mappings {
			switch mapping.Location {
			case MappingConstant:
				constants++
			case MappingBufferIn:
				ins++
			case MappingBufferOut:
				outs++
			case MappingBufferInOut:
				inouts++
			}
		}
		assert.Equal(t, len(task.Constants), constants)
		assert.Equal(t, len(task.InBuffers), ins)
		assert.Equal(t, len(task.OutBuffers), outs)
		// Each inout buffer is referenced by one input and one output
		// formal
		assert.Equal(t, len(task.InOutBuffers)*2, inouts)
	}
}

func TestBuild_BufferSummary(t *testing.T) {
	g := testGraph(t)
	a := source(g)
	b := source(g)
	add := g.AddNativeModuleCall(corelib.UIDAddition)
	g.AddEdge(a, g.Incoming(add, 0))
	g.AddEdge(b, g.Incoming(add, 1))
	output := g.AddOutputNode(0)
	g.AddEdge(g.Outgoing(add, 0), output)
	require.NoError(t, g.Validate())

	graph, err := Build(g)
	require.NoError(t, err)

	assert.Greater(t, graph.BufferCount, 0)
	assert.Greater(t, graph.MaxBufferConcurrency, 0)
	assert.LessOrEqual(t, graph.MaxBufferConcurrency, graph.BufferCount)

	for _, task := range graph.Tasks {
		for _, buffer := range append(append(append([]int{}, task.InBuffers...), task.OutBuffers...), task.InOutBuffers...) {
			assert.GreaterOrEqual(t, buffer, 0)
			assert.Less(t, buffer, graph.BufferCount)
		}
	}
}

// Tasks are emitted in dataflow order: producers precede consumers.
func TestBuild_TopologicalOrder(t *testing.T) {
	g := testGraph(t)
	a := source(g)
	neg := g.AddNativeModuleCall(corelib.UIDNegation)
	g.AddEdge(a, g.Incoming(neg, 0))
	sqrtCall := g.AddNativeModuleCall(corelib.UIDSqrt)
	g.AddEdge(g.Outgoing(neg, 0), g.Incoming(sqrtCall, 0))
	output := g.AddOutputNode(0)
	g.AddEdge(g.Outgoing(sqrtCall, 0), output)
	require.NoError(t, g.Validate())

	graph, err := Build(g)
	require.NoError(t, err)
	require.Len(t, graph.Tasks, 3)

	var order []string
	for _, task := range graph.Tasks {
		order = append(order, task.Function)
	}
	assert.Equal(t, []string{"sqrt_constant", "neg_bufferio", "sqrt_bufferio"}, order)
}
