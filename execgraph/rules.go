package execgraph

import "github.com/viant/wavelang/nativemodule"

// Rule matching and emission. A pattern is matched with a single
// traversal over an explicit stack: module-open descends into the next
// input of the current parent, module-close ascends, a leaf consumes
// the next input and tests it. Output slot nodes between a call and
// its consumer are transparently skipped; when a variable slot binds
// through such a skip, the slot remembers the output node so later
// rewiring targets the correct hookup point.

type matchState struct {
	node      int
	nextInput int
}

func (s *matchState) hasMoreInputs(g *Graph) bool {
	return s.nextInput < g.IncomingCount(s.node)
}

// followNextInput resolves the current parent's next input source,
// skipping the input slot and, when present, the producer's output
// slot. It returns the resolved node and the skipped output slot (or
// InvalidIndex).
func (s *matchState) followNextInput(g *Graph) (resolved, outputSlot int) {
	inputSlot := g.Incoming(s.node, s.nextInput)
	s.nextInput++
	resolved = g.InputSource(inputSlot)
	outputSlot = InvalidIndex
	if g.NodeKindOf(resolved) == NodeNativeModuleOutput {
		outputSlot = resolved
		resolved = g.Incoming(resolved, 0)
	}
	return resolved, outputSlot
}

// tryApplyRule matches the rule's source pattern rooted at callIndex
// and, on success, emits the target pattern and reroutes consumers.
// Rules are limited to modules with a single output used as the return
// value.
func tryApplyRule(g *Graph, callIndex int, rule *nativemodule.OptimizationRule) bool {
	var stack []matchState
	var matchedVariables [nativemodule.MaxMatchedSymbols]int
	var matchedConstants [nativemodule.MaxMatchedSymbols]int
	for index := range matchedVariables {
		matchedVariables[index] = InvalidIndex
		matchedConstants[index] = InvalidIndex
	}

	for _, symbol := range rule.Source {
		switch symbol.Kind {
		case nativemodule.PatternSymbolModule:
			var candidate int
			if len(stack) == 0 {
				candidate = callIndex
			} else {
				top := &stack[len(stack)-1]
				if !top.hasMoreInputs(g) {
					return false
				}
				candidate, _ = top.followNextInput(g)
			}
			if g.NodeKindOf(candidate) != NodeNativeModuleCall || g.CallModuleUID(candidate) != symbol.UID {
				return false
			}
			stack = append(stack, matchState{node: candidate})

		case nativemodule.PatternSymbolModuleEnd:
			stack = stack[:len(stack)-1]

		default:
			top := &stack[len(stack)-1]
			if !top.hasMoreInputs(g) {
				return false
			}
			resolved, outputSlot := top.followNextInput(g)
			switch symbol.Kind {
			case nativemodule.PatternSymbolVariable:
				// Match anything except a constant; remember the
				// output slot when one was skipped, because that is
				// what consumers hook up to
				if g.NodeKindOf(resolved) == NodeConstant {
					return false
				}
				if outputSlot != InvalidIndex {
					matchedVariables[symbol.Index] = outputSlot
				} else {
					matchedVariables[symbol.Index] = resolved
				}
			case nativemodule.PatternSymbolConstant:
				if g.NodeKindOf(resolved) != NodeConstant {
					return false
				}
				matchedConstants[symbol.Index] = resolved
			case nativemodule.PatternSymbolRealValue:
				if g.NodeKindOf(resolved) != NodeConstant ||
					g.ConstantTypeOf(resolved) != ConstantReal ||
					g.ConstantRealValue(resolved) != symbol.Real {
					return false
				}
			case nativemodule.PatternSymbolBoolValue:
				if g.NodeKindOf(resolved) != NodeConstant ||
					g.ConstantTypeOf(resolved) != ConstantBool ||
					g.ConstantBoolValue(resolved) != symbol.Bool {
					return false
				}
			}
		}
	}

	// Matched; emit the target pattern
	oldOutputSlot := g.Outgoing(callIndex, 0)

	// A target consisting of one leaf replaces the call with an
	// already-present node (or a fresh literal constant)
	if len(rule.Target) == 1 {
		symbol := rule.Target[0]
		replacement := InvalidIndex
		switch symbol.Kind {
		case nativemodule.PatternSymbolVariable:
			replacement = matchedVariables[symbol.Index]
		case nativemodule.PatternSymbolConstant:
			replacement = matchedConstants[symbol.Index]
		case nativemodule.PatternSymbolRealValue:
			replacement = g.AddConstantReal(symbol.Real)
		case nativemodule.PatternSymbolBoolValue:
			replacement = g.AddConstantBool(symbol.Bool)
		}
		transferOutputs(g, replacement, oldOutputSlot)
		return true
	}

	stack = stack[:0]
	rootCall := InvalidIndex
	for _, symbol := range rule.Target {
		switch symbol.Kind {
		case nativemodule.PatternSymbolModule:
			newCall := g.AddNativeModuleCall(symbol.UID)
			if rootCall == InvalidIndex {
				rootCall = newCall
			} else {
				top := &stack[len(stack)-1]
				inputSlot := g.Incoming(top.node, top.nextInput)
				top.nextInput++
				g.AddEdge(g.Outgoing(newCall, 0), inputSlot)
			}
			stack = append(stack, matchState{node: newCall})

		case nativemodule.PatternSymbolModuleEnd:
			stack = stack[:len(stack)-1]

		default:
			top := &stack[len(stack)-1]
			inputSlot := g.Incoming(top.node, top.nextInput)
			top.nextInput++
			switch symbol.Kind {
			case nativemodule.PatternSymbolVariable:
				g.AddEdge(matchedVariables[symbol.Index], inputSlot)
			case nativemodule.PatternSymbolConstant:
				g.AddEdge(matchedConstants[symbol.Index], inputSlot)
			case nativemodule.PatternSymbolRealValue:
				g.AddEdge(g.AddConstantReal(symbol.Real), inputSlot)
			case nativemodule.PatternSymbolBoolValue:
				g.AddEdge(g.AddConstantBool(symbol.Bool), inputSlot)
			}
		}
	}

	// The new root's output slot takes over every consumer of the old
	// call's output slot; the obsolete subgraph is collected by the
	// next dead-node sweep
	transferOutputs(g, g.Outgoing(rootCall, 0), oldOutputSlot)
	return true
}
