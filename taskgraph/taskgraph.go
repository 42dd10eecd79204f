// Package taskgraph lowers an optimized execution graph into a
// linear-indexed collection of task nodes: each native-module call is
// mapped to a task function variant chosen from input constness and
// branching, and buffers are assigned so that slots resolving to the
// same underlying value share one buffer index.
package taskgraph

import (
	"fmt"

	"github.com/viant/wavelang/execgraph"
	"github.com/viant/wavelang/nativemodule"
)

// MappingLocation places one formal argument of a task's underlying
// native module.
type MappingLocation int

const (
	MappingConstant MappingLocation = iota
	MappingBufferIn
	MappingBufferOut
	MappingBufferInOut
)

// Mapping binds one formal argument to a slot kind and the formal
// index within that kind.
type Mapping struct {
	Location MappingLocation
	Index    int
}

// Shorthand constructors used by the variant tables and tests.

// C maps a formal to constant slot index.
func C(index int) Mapping { return Mapping{Location: MappingConstant, Index: index} }

// I maps a formal to input buffer slot index.
func I(index int) Mapping { return Mapping{Location: MappingBufferIn, Index: index} }

// O maps a formal to output buffer slot index.
func O(index int) Mapping { return Mapping{Location: MappingBufferOut, Index: index} }

// IO maps a formal to inout buffer slot index.
func IO(index int) Mapping { return Mapping{Location: MappingBufferInOut, Index: index} }

// Task is one schedulable work item.
type Task struct {
	// Function identifies the task implementation, e.g.
	// "add_bufferio_buffer".
	Function string
	// Mappings places each formal argument (ins then outs).
	Mappings []Mapping
	// Constants holds literal values baked into the task.
	Constants []nativemodule.Value
	// Buffer-pool indices after allocation.
	InBuffers    []int
	OutBuffers   []int
	InOutBuffers []int

	// Execution-graph slot nodes, retained through allocation.
	inBufferNodes    []int
	outBufferNodes   []int
	inoutBufferPairs [][2]int
}

// Graph is the scheduling-ready task collection plus the buffer-pool
// summary consumed by the executor.
type Graph struct {
	Tasks []*Task
	// BufferCount is the number of distinct buffers needed.
	BufferCount int
	// MaxBufferConcurrency bounds how many buffers must be live at
	// once.
	MaxBufferConcurrency int
}

// taskBaseName maps supported native modules to their task-function
// base names.
func taskBaseName(registry *nativemodule.Registry, uid nativemodule.UID) string {
	module := registry.ModuleByUID(uid)
	if module == nil {
		return ""
	}
	switch operator := registry.ModuleOperator(module.Name); operator {
	case nativemodule.OperatorNegation:
		return "neg"
	case nativemodule.OperatorAddition:
		return "add"
	case nativemodule.OperatorSubtraction:
		return "sub"
	case nativemodule.OperatorMultiplication:
		return "mul"
	case nativemodule.OperatorDivision:
		return "div"
	case nativemodule.OperatorModulo:
		return "mod"
	case nativemodule.OperatorNot:
		return "not"
	case nativemodule.OperatorEqual:
		return "eq"
	case nativemodule.OperatorNotEqual:
		return "neq"
	case nativemodule.OperatorLess:
		return "lt"
	case nativemodule.OperatorGreater:
		return "gt"
	case nativemodule.OperatorLessEqual:
		return "le"
	case nativemodule.OperatorGreaterEqual:
		return "ge"
	case nativemodule.OperatorAnd:
		return "and"
	case nativemodule.OperatorOr:
		return "or"
	case nativemodule.OperatorNoop, nativemodule.OperatorSubscript:
		return ""
	}
	// Non-operator modules map by plain name when they are pure
	// scalar functions
	switch module.Name {
	case "abs", "floor", "ceil", "round", "min", "max", "exp", "log", "sqrt", "pow", "select":
		return module.Name
	}
	return ""
}

// Build lowers an optimized execution graph. It fails when a call's
// native module has no task-function base name or more than one out
// argument. For a supported module every (constness, branching)
// combination yields a variant name built from the base name, so no
// combination is rejected.
func Build(g *execgraph.Graph) (*Graph, error) {
	result := &Graph{}
	registry := g.Registry()

	for _, callIndex := range topologicalCalls(g) {
		task, err := buildTask(g, registry, callIndex)
		if err != nil {
			return nil, err
		}
		result.Tasks = append(result.Tasks, task)
	}

	allocateBuffers(g, result)
	result.MaxBufferConcurrency = computeMaxBufferConcurrency(result)
	return result, nil
}

// topologicalCalls orders call nodes so that every producer precedes
// its consumers.
func topologicalCalls(g *execgraph.Graph) []int {
	visited := make([]bool, g.NodeCount())
	var order []int
	var visit func(callIndex int)
	visit = func(callIndex int) {
		if visited[callIndex] {
			return
		}
		visited[callIndex] = true
		for edge := 0; edge < g.IncomingCount(callIndex); edge++ {
			source := g.InputSource(g.Incoming(callIndex, edge))
			if g.NodeKindOf(source) == execgraph.NodeNativeModuleOutput {
				visit(g.Incoming(source, 0))
			}
		}
		order = append(order, callIndex)
	}
	for index := 0; index < g.NodeCount(); index++ {
		if g.NodeKindOf(index) == execgraph.NodeNativeModuleCall {
			visit(index)
		}
	}
	return order
}

// inputBranches reports whether the call's in-argument is consumed by
// more than one downstream edge. Constants never take buffers and are
// treated as branching so they are never picked for inout reuse.
func inputBranches(g *execgraph.Graph, callIndex, inArg int) bool {
	source := g.InputSource(g.Incoming(callIndex, inArg))
	if g.NodeKindOf(source) == execgraph.NodeConstant {
		return true
	}
	return g.OutgoingCount(source) != 1
}

func buildTask(g *execgraph.Graph, registry *nativemodule.Registry, callIndex int) (*Task, error) {
	uid := g.CallModuleUID(callIndex)
	module := registry.ModuleByUID(uid)
	base := taskBaseName(registry, uid)
	if base == "" {
		return nil, fmt.Errorf("no task function variants for native module '%s'", module.Name)
	}
	if module.OutArgumentCount() != 1 {
		return nil, fmt.Errorf("native module '%s' is not schedulable as a single task", module.Name)
	}

	inCount := g.IncomingCount(callIndex)
	pattern := make([]byte, inCount)
	for index := 0; index < inCount; index++ {
		source := g.InputSource(g.Incoming(callIndex, index))
		if g.NodeKindOf(source) == execgraph.NodeConstant {
			pattern[index] = 'c'
		} else {
			pattern[index] = 'v'
		}
	}

	// Prefer the lowest-indexed non-branching buffer input for inout
	// reuse
	inoutArg := -1
	for index := 0; index < inCount; index++ {
		if pattern[index] == 'v' && !inputBranches(g, callIndex, index) {
			inoutArg = index
			break
		}
	}

	task := &Task{}
	function := base
	constantSlot := 0
	inSlot := 0
	for index := 0; index < inCount; index++ {
		source := g.InputSource(g.Incoming(callIndex, index))
		switch {
		case pattern[index] == 'c':
			function += "_constant"
			task.Mappings = append(task.Mappings, C(constantSlot))
			constantSlot++
			task.Constants = append(task.Constants, constantValue(g, source))
		case index == inoutArg:
			function += "_bufferio"
			task.Mappings = append(task.Mappings, IO(0))
			task.inoutBufferPairs = append(task.inoutBufferPairs,
				[2]int{g.Incoming(callIndex, index), g.Outgoing(callIndex, 0)})
		default:
			function += "_buffer"
			task.Mappings = append(task.Mappings, I(inSlot))
			inSlot++
			task.inBufferNodes = append(task.inBufferNodes, g.Incoming(callIndex, index))
		}
	}
	if inoutArg >= 0 {
		task.Mappings = append(task.Mappings, IO(0))
	} else {
		task.Mappings = append(task.Mappings, O(0))
		task.outBufferNodes = append(task.outBufferNodes, g.Outgoing(callIndex, 0))
	}
	task.Function = function
	return task, nil
}

func constantValue(g *execgraph.Graph, constantIndex int) nativemodule.Value {
	switch g.ConstantTypeOf(constantIndex) {
	case execgraph.ConstantReal:
		return *nativemodule.RealValue(g.ConstantRealValue(constantIndex))
	case execgraph.ConstantBool:
		return *nativemodule.BoolValue(g.ConstantBoolValue(constantIndex))
	default:
		return *nativemodule.StringValue(g.ConstantStringValue(constantIndex))
	}
}

const noBuffer = -1

// allocateBuffers assigns one buffer index per logically-distinct
// value: inout pairs are identified first, then each slot reference gets
// a buffer propagated to every transitively-connected slot node.
func allocateBuffers(g *execgraph.Graph, result *Graph) {
	inoutConnections := make([]int, g.NodeCount())
	nodesToBuffers := make([]int, g.NodeCount())
	for index := range inoutConnections {
		inoutConnections[index] = noBuffer
		nodesToBuffers[index] = noBuffer
	}

	for _, task := range result.Tasks {
		for _, pair := range task.inoutBufferPairs {
			inoutConnections[pair[0]] = pair[1]
			inoutConnections[pair[1]] = pair[0]
		}
	}

	bufferCount := 0
	assign := func(node int) {
		if nodesToBuffers[node] == noBuffer {
			assignBufferToRelatedNodes(g, node, inoutConnections, nodesToBuffers, bufferCount)
			bufferCount++
		}
	}
	for _, task := range result.Tasks {
		for _, node := range task.inBufferNodes {
			assign(node)
		}
		for _, node := range task.outBufferNodes {
			assign(node)
		}
		for _, pair := range task.inoutBufferPairs {
			assign(pair[0])
		}
	}

	for _, task := range result.Tasks {
		task.InBuffers = nil
		task.OutBuffers = nil
		task.InOutBuffers = nil
		for _, node := range task.inBufferNodes {
			task.InBuffers = append(task.InBuffers, nodesToBuffers[node])
		}
		for _, node := range task.outBufferNodes {
			task.OutBuffers = append(task.OutBuffers, nodesToBuffers[node])
		}
		for _, pair := range task.inoutBufferPairs {
			task.InOutBuffers = append(task.InOutBuffers, nodesToBuffers[pair[0]])
		}
	}
	result.BufferCount = bufferCount
}

// assignBufferToRelatedNodes propagates a buffer index through input
// slot ↔ feeding output slots (skipping constants), output slot ↔ fed
// input slots (skipping graph outputs), and across inout
// identifications.
func assignBufferToRelatedNodes(g *execgraph.Graph, node int, inoutConnections, nodesToBuffers []int, buffer int) {
	if nodesToBuffers[node] != noBuffer {
		return
	}
	nodesToBuffers[node] = buffer

	switch g.NodeKindOf(node) {
	case execgraph.NodeNativeModuleInput:
		for edge := 0; edge < g.IncomingCount(node); edge++ {
			source := g.Incoming(node, edge)
			if g.NodeKindOf(source) == execgraph.NodeConstant {
				continue
			}
			assignBufferToRelatedNodes(g, source, inoutConnections, nodesToBuffers, buffer)
		}
	case execgraph.NodeNativeModuleOutput:
		for edge := 0; edge < g.OutgoingCount(node); edge++ {
			consumer := g.Outgoing(node, edge)
			if g.NodeKindOf(consumer) == execgraph.NodeOutput {
				continue
			}
			assignBufferToRelatedNodes(g, consumer, inoutConnections, nodesToBuffers, buffer)
		}
	}

	if inoutConnections[node] != noBuffer {
		assignBufferToRelatedNodes(g, inoutConnections[node], inoutConnections, nodesToBuffers, buffer)
	}
}

// computeMaxBufferConcurrency bounds concurrent buffer liveness by
// walking tasks in order (a topological order of the dataflow) and
// overlapping each buffer's first-to-last reference interval.
func computeMaxBufferConcurrency(result *Graph) int {
	firstUse := map[int]int{}
	lastUse := map[int]int{}
	touch := func(buffer, taskIndex int) {
		if _, ok := firstUse[buffer]; !ok {
			firstUse[buffer] = taskIndex
		}
		lastUse[buffer] = taskIndex
	}
	for taskIndex, task := range result.Tasks {
		for _, buffer := range task.InBuffers {
			touch(buffer, taskIndex)
		}
		for _, buffer := range task.OutBuffers {
			touch(buffer, taskIndex)
		}
		for _, buffer := range task.InOutBuffers {
			touch(buffer, taskIndex)
		}
	}

	maxLive := 0
	for taskIndex := range result.Tasks {
		live := 0
		for buffer, first := range firstUse {
			if first <= taskIndex && lastUse[buffer] >= taskIndex {
				live++
			}
		}
		if live > maxLive {
			maxLive = live
		}
	}
	return maxLive
}
