package execgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/nativemodule"
	"github.com/viant/wavelang/nativemodule/corelib"
)

// variableSource builds a value source the optimizer cannot fold: the
// real subscript module has no compile-time implementation, so its
// output stays non-constant through optimization.
func variableSource(g *Graph) int {
	call := g.AddNativeModuleCall(corelib.UIDSubscriptReal)
	g.AddEdge(g.AddConstantReal(0), g.Incoming(call, 0))
	g.AddEdge(g.AddConstantReal(0), g.Incoming(call, 1))
	return g.Outgoing(call, 0)
}

func countKind(g *Graph, kind NodeKind) int {
	count := 0
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == kind {
			count++
		}
	}
	return count
}

func countCalls(g *Graph, uid nativemodule.UID) int {
	count := 0
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == NodeNativeModuleCall && g.CallModuleUID(index) == uid {
			count++
		}
	}
	return count
}

func outputSource(t *testing.T, g *Graph, label int) int {
	t.Helper()
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == NodeOutput && g.OutputIndexOf(index) == label {
			return g.Incoming(index, 0)
		}
	}
	t.Fatalf("graph output %d not found", label)
	return InvalidIndex
}

func optimize(t *testing.T, g *Graph) *diag.Sink {
	t.Helper()
	sink := &diag.Sink{}
	Optimize(g, sink)
	require.NoError(t, g.Validate())
	return sink
}

// Fold add-of-constants: 1.0 + 2.0 becomes a single constant 3.0
// feeding graph output 0 with no calls left.
func TestOptimize_FoldsConstantAdd(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	_, addOut := addCall(g, corelib.UIDAddition, g.AddConstantReal(1), g.AddConstantReal(2))
	output := g.AddOutputNode(0)
	g.AddEdge(addOut, output)

	optimize(t, g)

	assert.Zero(t, countKind(g, NodeNativeModuleCall))
	src := outputSource(t, g, 0)
	require.Equal(t, NodeConstant, g.NodeKindOf(src))
	assert.Equal(t, float32(3), g.ConstantRealValue(src))
}

// Fold neg-of-neg: neg(neg(a)) reduces to a direct edge from a's
// source to graph output 0.
func TestOptimize_NegOfNegRule(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := variableSource(g)
	_, innerOut := addCall(g, corelib.UIDNegation, a)
	_, outerOut := addCall(g, corelib.UIDNegation, innerOut)
	output := g.AddOutputNode(0)
	g.AddEdge(outerOut, output)

	optimize(t, g)

	assert.Zero(t, countCalls(g, corelib.UIDNegation))
	src := outputSource(t, g, 0)
	assert.Equal(t, NodeNativeModuleOutput, g.NodeKindOf(src))
	assert.Equal(t, corelib.UIDSubscriptReal, g.CallModuleUID(g.Incoming(src, 0)))
}

// Add zero: a + 0.0 reduces to a direct edge from a's source with no
// add call, in both operand orders.
func TestOptimize_AddZeroRule(t *testing.T) {
	for _, zeroFirst := range []bool{false, true} {
		g := New(testRegistry(t))
		g.SetGlobals(testGlobals())
		a := variableSource(g)
		zero := g.AddConstantReal(0)
		var addOut int
		if zeroFirst {
			_, addOut = addCall(g, corelib.UIDAddition, zero, a)
		} else {
			_, addOut = addCall(g, corelib.UIDAddition, a, zero)
		}
		output := g.AddOutputNode(0)
		g.AddEdge(addOut, output)

		optimize(t, g)

		assert.Zero(t, countCalls(g, corelib.UIDAddition))
		src := outputSource(t, g, 0)
		assert.Equal(t, NodeNativeModuleOutput, g.NodeKindOf(src))
	}
}

// 0 - x rewrites to neg(x).
func TestOptimize_SubZeroRewritesToNeg(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := variableSource(g)
	_, subOut := addCall(g, corelib.UIDSubtraction, g.AddConstantReal(0), a)
	output := g.AddOutputNode(0)
	g.AddEdge(subOut, output)

	optimize(t, g)

	assert.Zero(t, countCalls(g, corelib.UIDSubtraction))
	assert.Equal(t, 1, countCalls(g, corelib.UIDNegation))
}

// Dedup identical adds: two structurally identical a+b calls merge
// into one whose output feeds both consumers.
func TestOptimize_DeduplicatesIdenticalCalls(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := variableSource(g)
	b := variableSource(g)
	_, firstOut := addCall(g, corelib.UIDAddition, a, b)
	_, secondOut := addCall(g, corelib.UIDAddition, a, b)
	first := g.AddOutputNode(0)
	second := g.AddOutputNode(1)
	g.AddEdge(firstOut, first)
	g.AddEdge(secondOut, second)

	optimize(t, g)

	assert.Equal(t, 1, countCalls(g, corelib.UIDAddition))
	assert.Equal(t, outputSource(t, g, 0), outputSource(t, g, 1))
}

// Equal constants merge into one node.
func TestOptimize_DeduplicatesConstants(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := variableSource(g)
	_, firstOut := addCall(g, corelib.UIDMultiplication, a, g.AddConstantReal(7))
	_, secondOut := addCall(g, corelib.UIDDivision, a, g.AddConstantReal(7))
	first := g.AddOutputNode(0)
	second := g.AddOutputNode(1)
	g.AddEdge(firstOut, first)
	g.AddEdge(secondOut, second)

	optimize(t, g)

	sevens := 0
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == NodeConstant && g.ConstantTypeOf(index) == ConstantReal &&
			g.ConstantRealValue(index) == 7 {
			sevens++
		}
	}
	assert.Equal(t, 1, sevens)
}

// Intermediate value nodes are spliced out.
func TestOptimize_SplicesIntermediateValues(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	constant := g.AddConstantReal(5)
	intermediate := g.AddIntermediateValueNode()
	g.AddEdge(constant, intermediate)
	output := g.AddOutputNode(0)
	g.AddEdge(intermediate, output)

	optimize(t, g)

	assert.Zero(t, countKind(g, NodeIntermediateValue))
	src := outputSource(t, g, 0)
	assert.Equal(t, NodeConstant, g.NodeKindOf(src))
	assert.Equal(t, float32(5), g.ConstantRealValue(src))
}

// No-op calls are spliced out even when the input is not constant.
func TestOptimize_RemovesNoops(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := variableSource(g)
	_, noopOut := addCall(g, corelib.UIDNoop, a)
	output := g.AddOutputNode(0)
	g.AddEdge(noopOut, output)

	optimize(t, g)

	assert.Zero(t, countCalls(g, corelib.UIDNoop))
	assert.Equal(t, NodeNativeModuleOutput, g.NodeKindOf(outputSource(t, g, 0)))
}

// Dead subgraphs unreachable from outputs are removed.
func TestOptimize_RemovesDeadNodes(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	live := g.AddConstantReal(1)
	output := g.AddOutputNode(0)
	g.AddEdge(live, output)
	dead := variableSource(g)
	_ = dead

	optimize(t, g)

	for index := 0; index < g.NodeCount(); index++ {
		assert.NotEqual(t, NodeInvalid, g.NodeKindOf(index))
	}
	assert.Zero(t, countCalls(g, corelib.UIDSubscriptReal))
}

func graphSignature(g *Graph) [][3]int {
	var signature [][3]int
	for index := 0; index < g.NodeCount(); index++ {
		signature = append(signature, [3]int{int(g.NodeKindOf(index)), g.IncomingCount(index), g.OutgoingCount(index)})
	}
	return signature
}

// Running the optimizer twice produces the same graph the second time.
func TestOptimize_Idempotent(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := variableSource(g)
	_, negOut := addCall(g, corelib.UIDNegation, a)
	_, addOut := addCall(g, corelib.UIDAddition, negOut, g.AddConstantReal(0))
	_, mulOut := addCall(g, corelib.UIDMultiplication, addOut, g.AddConstantReal(1))
	output := g.AddOutputNode(0)
	g.AddEdge(mulOut, output)

	optimize(t, g)
	first := graphSignature(g)
	optimize(t, g)
	assert.Equal(t, first, graphSignature(g))
}

// Constant-required inputs that stay non-constant surface as errors.
func TestOptimize_ValidatesConstantInputs(t *testing.T) {
	g := New(testRegistry(t))
	g.SetGlobals(testGlobals())
	a := variableSource(g)
	call := g.AddNativeModuleCall(corelib.UIDSubscriptReal)
	g.AddEdge(a, g.Incoming(call, 0))
	g.AddEdge(a, g.Incoming(call, 1))
	output := g.AddOutputNode(0)
	g.AddEdge(g.Outgoing(call, 0), output)

	sink := &diag.Sink{}
	Optimize(g, sink)
	assert.Greater(t, sink.ErrorCount(), 0)
}
