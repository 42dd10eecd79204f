package execgraph

import (
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/nativemodule"
)

// Optimize rewrites the graph to a semantically equivalent, compacted
// form: intermediate values and no-ops are spliced out, fully-constant
// calls are folded through their compile-time implementations,
// registered rules are applied to a fixed point, dead nodes are
// removed, and equivalent constants and calls are deduplicated.
// Remaining constant-required inputs are validated last.
func Optimize(g *Graph, sink *diag.Sink) {
	noopName := g.registry.OperatorModule(nativemodule.OperatorNoop)

	for {
		optimized := false
		for index := 0; index < g.NodeCount(); index++ {
			optimized = optimizeNode(g, index, noopName, sink) || optimized
		}
		removeUselessNodes(g)
		if !optimized {
			break
		}
	}

	g.Compact()
	deduplicateNodes(g)
	g.Compact()

	validateOptimizedConstants(g, sink)
}

func optimizeNode(g *Graph, index int, noopName string, sink *diag.Sink) bool {
	switch g.NodeKindOf(index) {
	case NodeIntermediateValue:
		// Splice the scratch node out: rewire its source directly to
		// its consumers
		if g.IncomingCount(index) == 1 {
			transferOutputs(g, g.Incoming(index, 0), index)
		}
		g.RemoveNode(index)
		return true

	case NodeNativeModuleCall:
		return optimizeCall(g, index, noopName, sink)
	}
	return false
}

func optimizeCall(g *Graph, index int, noopName string, sink *diag.Sink) bool {
	module := g.registry.ModuleByUID(g.CallModuleUID(index))

	if module.Name == noopName {
		inputSlot := g.Incoming(index, 0)
		outputSlot := g.Outgoing(index, 0)
		source := g.InputSource(inputSlot)
		transferOutputs(g, source, outputSlot)
		g.RemoveNode(index)
		return true
	}

	if module.CompileTime != nil && allInputsConstant(g, index) {
		foldCall(g, index, module, sink)
		return true
	}

	for _, rule := range g.registry.Rules() {
		if tryApplyRule(g, index, rule) {
			return true
		}
	}
	return false
}

func allInputsConstant(g *Graph, callIndex int) bool {
	for edge := 0; edge < g.IncomingCount(callIndex); edge++ {
		source := g.InputSource(g.Incoming(callIndex, edge))
		if g.NodeKindOf(source) != NodeConstant {
			return false
		}
	}
	return true
}

// sinkDiagnostics adapts the compiler sink to the native-module
// diagnostic interface.
type sinkDiagnostics struct {
	sink *diag.Sink
}

func (d *sinkDiagnostics) Messagef(format string, args ...interface{}) {
	d.sink.Messagef(nil, format, args...)
}

func (d *sinkDiagnostics) Warningf(format string, args ...interface{}) {
	d.sink.Warningf(diag.WarningNativeModuleWarning, nil, format, args...)
}

func (d *sinkDiagnostics) Errorf(format string, args ...interface{}) {
	d.sink.Errorf(diag.ErrorNativeModuleError, nil, format, args...)
}

// foldCall invokes a module's compile-time implementation over its
// constant inputs, materializes each out-argument as a constant node,
// redirects consumers, and removes the call.
func foldCall(g *Graph, callIndex int, module *nativemodule.Module, sink *diag.Sink) {
	arguments := make([]*nativemodule.Value, len(module.Arguments))
	nextInput := 0
	for argIndex, argument := range module.Arguments {
		if argument.Direction == nativemodule.DirectionIn {
			source := g.InputSource(g.Incoming(callIndex, nextInput))
			nextInput++
			switch g.ConstantTypeOf(source) {
			case ConstantReal:
				arguments[argIndex] = nativemodule.RealValue(g.ConstantRealValue(source))
			case ConstantBool:
				arguments[argIndex] = nativemodule.BoolValue(g.ConstantBoolValue(source))
			case ConstantString:
				arguments[argIndex] = nativemodule.StringValue(g.ConstantStringValue(source))
			}
		} else {
			arguments[argIndex] = &nativemodule.Value{}
		}
	}

	globals := g.globals
	context := &nativemodule.Context{
		Diagnostics: &sinkDiagnostics{sink: sink},
		Globals:     &globals,
	}
	module.CompileTime(context, arguments)

	nextOutput := 0
	for argIndex, argument := range module.Arguments {
		if argument.Direction != nativemodule.DirectionOut {
			continue
		}
		var constant int
		switch arguments[argIndex].Kind {
		case nativemodule.ValueKindReal:
			constant = g.AddConstantReal(arguments[argIndex].Real)
		case nativemodule.ValueKindBool:
			constant = g.AddConstantBool(arguments[argIndex].Bool)
		case nativemodule.ValueKindString:
			constant = g.AddConstantString(arguments[argIndex].String)
		default:
			sink.Errorf(diag.ErrorInvalidNativeModuleImplementation, nil,
				"Native module '%s' did not assign out argument '%s'", module.Name, argument.Name)
			constant = g.AddConstantReal(0)
		}
		outputSlot := g.Outgoing(callIndex, nextOutput)
		nextOutput++
		transferOutputs(g, constant, outputSlot)
	}
	g.RemoveNode(callIndex)
}

// transferOutputs redirects every consumer of source to destination.
func transferOutputs(g *Graph, destination, source int) {
	for g.OutgoingCount(source) > 0 {
		to := g.Outgoing(source, 0)
		g.RemoveEdge(source, to)
		g.AddEdge(destination, to)
	}
}

// removeUselessNodes marks nodes reachable backwards from graph
// outputs and deletes the rest. Slot nodes are only removed through
// their owning call.
func removeUselessNodes(g *Graph) {
	visited := make([]bool, g.NodeCount())
	var stack []int
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == NodeOutput {
			visited[index] = true
			stack = append(stack, index)
		}
	}
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for edge := 0; edge < g.IncomingCount(index); edge++ {
			from := g.Incoming(index, edge)
			if !visited[from] {
				visited[from] = true
				stack = append(stack, from)
			}
		}
	}
	for index := 0; index < g.NodeCount(); index++ {
		if visited[index] {
			continue
		}
		switch g.NodeKindOf(index) {
		case NodeInvalid, NodeNativeModuleInput, NodeNativeModuleOutput:
		default:
			g.RemoveNode(index)
		}
	}
}

// deduplicateNodes merges equal constants, then repeatedly merges
// calls with identical module and input sources.
func deduplicateNodes(g *Graph) {
	buckets := map[uint64][]int{}
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) != NodeConstant {
			continue
		}
		key := g.constantFingerprint(index)
		merged := false
		for _, canonical := range buckets[key] {
			if g.constantsEqual(canonical, index) {
				transferOutputs(g, canonical, index)
				g.RemoveNode(index)
				merged = true
				break
			}
		}
		if !merged {
			buckets[key] = append(buckets[key], index)
		}
	}

	for {
		changed := false
		callBuckets := map[uint64][]int{}
		for index := 0; index < g.NodeCount(); index++ {
			if g.NodeKindOf(index) != NodeNativeModuleCall {
				continue
			}
			key := g.callFingerprint(index)
			merged := false
			for _, canonical := range callBuckets[key] {
				if callsEqual(g, canonical, index) {
					mergeCalls(g, canonical, index)
					merged = true
					changed = true
					break
				}
			}
			if !merged {
				callBuckets[key] = append(callBuckets[key], index)
			}
		}
		if !changed {
			break
		}
	}
}

func callsEqual(g *Graph, a, b int) bool {
	if g.CallModuleUID(a) != g.CallModuleUID(b) {
		return false
	}
	if g.IncomingCount(a) != g.IncomingCount(b) {
		return false
	}
	for edge := 0; edge < g.IncomingCount(a); edge++ {
		if g.InputSource(g.Incoming(a, edge)) != g.InputSource(g.Incoming(b, edge)) {
			return false
		}
	}
	return true
}

// mergeCalls rewires consumers of b's output slots to a's and removes
// b.
func mergeCalls(g *Graph, a, b int) {
	for edge := 0; edge < g.OutgoingCount(a); edge++ {
		outputA := g.Outgoing(a, edge)
		outputB := g.Outgoing(b, edge)
		transferOutputs(g, outputA, outputB)
	}
	g.RemoveNode(b)
}

// validateOptimizedConstants checks that arguments declared with
// constant data-mutability are driven by constant nodes.
func validateOptimizedConstants(g *Graph, sink *diag.Sink) {
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) != NodeNativeModuleCall {
			continue
		}
		module := g.registry.ModuleByUID(g.CallModuleUID(index))
		input := 0
		for _, argument := range module.Arguments {
			if argument.Direction != nativemodule.DirectionIn {
				continue
			}
			if argument.Type.Mutability == nativemodule.MutabilityConstant {
				source := g.InputSource(g.Incoming(index, input))
				if g.NodeKindOf(source) != NodeConstant {
					sink.Errorf(diag.ErrorConstantExpected, nil,
						"Input argument '%s' to native module call '%s' does not resolve to a constant",
						argument.Name, module.Name)
				}
			}
			input++
		}
	}
}
