// Package execgraph implements the execution graph: a labelled
// dataflow DAG of constants, native-module calls with dedicated
// input/output slot nodes, and labelled graph outputs. It also houses
// the pattern-based optimizer and the binary serialization.
package execgraph

import (
	"fmt"

	"github.com/viant/wavelang/nativemodule"
)

// NodeKind enumerates node variants.
type NodeKind int

const (
	NodeInvalid NodeKind = iota
	NodeConstant
	NodeNativeModuleCall
	NodeNativeModuleInput
	NodeNativeModuleOutput
	NodeOutput
	NodeIntermediateValue
)

// InvalidIndex marks absent node references.
const InvalidIndex = -1

// ConstantType tags the payload of a constant node.
type ConstantType int

const (
	ConstantReal ConstantType = iota
	ConstantBool
	ConstantString
)

type node struct {
	kind NodeKind

	constantType ConstantType
	realValue    float32
	boolValue    bool
	stringValue  string

	moduleUID   nativemodule.UID
	outputIndex int

	incoming []int
	outgoing []int
}

// Graph owns its nodes and edge lists. Nodes are identified by dense
// indices; Compact removes holes left by deletions.
type Graph struct {
	registry *nativemodule.Registry
	globals  nativemodule.InstrumentGlobals
	nodes    []node
}

// New returns an empty graph bound to a finalized registry.
func New(registry *nativemodule.Registry) *Graph {
	return &Graph{registry: registry}
}

// Registry returns the registry the graph was built against.
func (g *Graph) Registry() *nativemodule.Registry {
	return g.registry
}

// SetGlobals stores the variant's instrument globals.
func (g *Graph) SetGlobals(globals nativemodule.InstrumentGlobals) {
	g.globals = globals
}

// Globals returns the variant's instrument globals.
func (g *Graph) Globals() nativemodule.InstrumentGlobals {
	return g.globals
}

func (g *Graph) allocate() int {
	g.nodes = append(g.nodes, node{})
	return len(g.nodes) - 1
}

// AddConstantReal appends a real constant node.
func (g *Graph) AddConstantReal(value float32) int {
	index := g.allocate()
	g.nodes[index] = node{kind: NodeConstant, constantType: ConstantReal, realValue: value}
	return index
}

// AddConstantBool appends a bool constant node.
func (g *Graph) AddConstantBool(value bool) int {
	index := g.allocate()
	g.nodes[index] = node{kind: NodeConstant, constantType: ConstantBool, boolValue: value}
	return index
}

// AddConstantString appends a string constant node.
func (g *Graph) AddConstantString(value string) int {
	index := g.allocate()
	g.nodes[index] = node{kind: NodeConstant, constantType: ConstantString, stringValue: value}
	return index
}

// AddNativeModuleCall appends a call node plus one input slot node per
// formal in-argument and one output slot node per out-argument, wired
// to the call.
func (g *Graph) AddNativeModuleCall(uid nativemodule.UID) int {
	module := g.registry.ModuleByUID(uid)
	index := g.allocate()
	g.nodes[index].kind = NodeNativeModuleCall
	g.nodes[index].moduleUID = uid
	for _, argument := range module.Arguments {
		slot := g.allocate()
		if argument.Direction == nativemodule.DirectionIn {
			g.nodes[slot].kind = NodeNativeModuleInput
			g.nodes[slot].outgoing = append(g.nodes[slot].outgoing, index)
			g.nodes[index].incoming = append(g.nodes[index].incoming, slot)
		} else {
			g.nodes[slot].kind = NodeNativeModuleOutput
			g.nodes[slot].incoming = append(g.nodes[slot].incoming, index)
			g.nodes[index].outgoing = append(g.nodes[index].outgoing, slot)
		}
	}
	return index
}

// AddOutputNode appends a graph output labelled outputIndex.
func (g *Graph) AddOutputNode(outputIndex int) int {
	index := g.allocate()
	g.nodes[index] = node{kind: NodeOutput, outputIndex: outputIndex}
	return index
}

// AddIntermediateValueNode appends a construction-time scratch node.
func (g *Graph) AddIntermediateValueNode() int {
	index := g.allocate()
	g.nodes[index] = node{kind: NodeIntermediateValue}
	return index
}

// RemoveNode deletes a node, breaking its edges. Removing a call node
// removes its slot nodes with it.
func (g *Graph) RemoveNode(index int) {
	n := &g.nodes[index]
	if n.kind == NodeNativeModuleCall {
		for len(n.incoming) > 0 {
			g.RemoveNode(n.incoming[len(n.incoming)-1])
		}
		for len(n.outgoing) > 0 {
			g.RemoveNode(n.outgoing[len(n.outgoing)-1])
		}
	} else {
		for len(n.incoming) > 0 {
			g.removeEdgeInternal(n.incoming[len(n.incoming)-1], index)
		}
		for len(n.outgoing) > 0 {
			g.removeEdgeInternal(index, n.outgoing[len(n.outgoing)-1])
		}
	}
	n.kind = NodeInvalid
	n.stringValue = ""
}

// AddEdge connects two non-call nodes. Slot-to-call wiring is managed
// by AddNativeModuleCall only. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to int) {
	g.addEdgeInternal(from, to)
}

func (g *Graph) addEdgeInternal(from, to int) {
	for _, existing := range g.nodes[from].outgoing {
		if existing == to {
			return
		}
	}
	g.nodes[from].outgoing = append(g.nodes[from].outgoing, to)
	g.nodes[to].incoming = append(g.nodes[to].incoming, from)
}

// addEdgeForLoad is the permissive variant used by deserialization; it
// reports illegal or duplicate edges instead of ignoring them.
func (g *Graph) addEdgeForLoad(from, to int) bool {
	if from < 0 || from >= len(g.nodes) || to < 0 || to >= len(g.nodes) {
		return false
	}
	for _, existing := range g.nodes[from].outgoing {
		if existing == to {
			return false
		}
	}
	g.nodes[from].outgoing = append(g.nodes[from].outgoing, to)
	g.nodes[to].incoming = append(g.nodes[to].incoming, from)
	return true
}

// RemoveEdge disconnects two nodes if the edge exists.
func (g *Graph) RemoveEdge(from, to int) {
	g.removeEdgeInternal(from, to)
}

func (g *Graph) removeEdgeInternal(from, to int) {
	fromNode := &g.nodes[from]
	for index, existing := range fromNode.outgoing {
		if existing == to {
			fromNode.outgoing = append(fromNode.outgoing[:index], fromNode.outgoing[index+1:]...)
			break
		}
	}
	toNode := &g.nodes[to]
	for index, existing := range toNode.incoming {
		if existing == from {
			toNode.incoming = append(toNode.incoming[:index], toNode.incoming[index+1:]...)
			break
		}
	}
}

// Accessors.

// NodeCount returns the number of node slots, including removed ones
// until the next Compact.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// NodeKindOf returns the kind of the node at index.
func (g *Graph) NodeKindOf(index int) NodeKind {
	return g.nodes[index].kind
}

// ConstantTypeOf returns a constant node's payload type.
func (g *Graph) ConstantTypeOf(index int) ConstantType {
	return g.nodes[index].constantType
}

// ConstantRealValue returns a real constant node's value.
func (g *Graph) ConstantRealValue(index int) float32 {
	return g.nodes[index].realValue
}

// ConstantBoolValue returns a bool constant node's value.
func (g *Graph) ConstantBoolValue(index int) bool {
	return g.nodes[index].boolValue
}

// ConstantStringValue returns a string constant node's value.
func (g *Graph) ConstantStringValue(index int) string {
	return g.nodes[index].stringValue
}

// CallModuleUID returns a call node's native module UID.
func (g *Graph) CallModuleUID(index int) nativemodule.UID {
	return g.nodes[index].moduleUID
}

// OutputIndexOf returns a graph-output node's label.
func (g *Graph) OutputIndexOf(index int) int {
	return g.nodes[index].outputIndex
}

// IncomingCount returns the number of incoming edges.
func (g *Graph) IncomingCount(index int) int {
	return len(g.nodes[index].incoming)
}

// Incoming returns the from-node of incoming edge `edge`.
func (g *Graph) Incoming(index, edge int) int {
	return g.nodes[index].incoming[edge]
}

// OutgoingCount returns the number of outgoing edges.
func (g *Graph) OutgoingCount(index int) int {
	return len(g.nodes[index].outgoing)
}

// Outgoing returns the to-node of outgoing edge `edge`.
func (g *Graph) Outgoing(index, edge int) int {
	return g.nodes[index].outgoing[edge]
}

// InputSource follows an input slot to its value source.
func (g *Graph) InputSource(inputSlot int) int {
	return g.nodes[inputSlot].incoming[0]
}

// Validation.

// Validate checks every node's edge counts, every edge against the
// type lattice, output-label uniqueness/contiguity, acyclicity, and
// the globals record.
func (g *Graph) Validate() error {
	outputCount := 0
	for index := range g.nodes {
		if g.nodes[index].kind == NodeOutput {
			outputCount++
		}
		if err := g.validateNode(index); err != nil {
			return err
		}
		for _, to := range g.nodes[index].outgoing {
			if err := g.ValidateEdge(index, to); err != nil {
				return err
			}
		}
	}

	seen := make([]bool, outputCount)
	for index := range g.nodes {
		if g.nodes[index].kind != NodeOutput {
			continue
		}
		label := g.nodes[index].outputIndex
		if label < 0 || label >= outputCount {
			return fmt.Errorf("output label %d outside [0,%d)", label, outputCount)
		}
		if seen[label] {
			return fmt.Errorf("duplicate output label %d", label)
		}
		seen[label] = true
	}

	if err := g.checkAcyclic(); err != nil {
		return err
	}

	if g.globals.MaxVoices < 1 {
		return fmt.Errorf("globals: max voices must be at least 1")
	}
	return nil
}

func (g *Graph) validateNode(index int) error {
	n := &g.nodes[index]
	switch n.kind {
	case NodeInvalid:
		return nil
	case NodeConstant:
		if len(n.incoming) != 0 {
			return fmt.Errorf("node %d: constant with incoming edges", index)
		}
	case NodeNativeModuleCall:
		module := g.registry.ModuleByUID(n.moduleUID)
		if module == nil {
			return fmt.Errorf("node %d: unknown native module %v", index, n.moduleUID)
		}
		if len(n.incoming) != module.InArgumentCount() || len(n.outgoing) != module.OutArgumentCount() {
			return fmt.Errorf("node %d: call slot count mismatch for %s", index, module.Name)
		}
	case NodeNativeModuleInput:
		if len(n.incoming) != 1 || len(n.outgoing) != 1 {
			return fmt.Errorf("node %d: input slot must have exactly one source and one consumer", index)
		}
	case NodeNativeModuleOutput:
		if len(n.incoming) != 1 {
			return fmt.Errorf("node %d: output slot must have exactly one producer", index)
		}
	case NodeOutput:
		if len(n.incoming) != 1 || len(n.outgoing) != 0 {
			return fmt.Errorf("node %d: graph output must have one source and no consumers", index)
		}
	case NodeIntermediateValue:
		if len(n.incoming) > 1 {
			return fmt.Errorf("node %d: intermediate value with multiple sources", index)
		}
	default:
		return fmt.Errorf("node %d: unknown kind", index)
	}
	return nil
}

// ValidateEdge checks one edge against the type lattice.
func (g *Graph) ValidateEdge(from, to int) error {
	if from < 0 || from >= len(g.nodes) || to < 0 || to >= len(g.nodes) {
		return fmt.Errorf("edge (%d,%d): node index out of range", from, to)
	}
	legal := false
	switch g.nodes[from].kind {
	case NodeConstant, NodeNativeModuleOutput, NodeIntermediateValue:
		switch g.nodes[to].kind {
		case NodeNativeModuleInput, NodeOutput, NodeIntermediateValue:
			legal = true
		}
	case NodeNativeModuleCall:
		legal = g.nodes[to].kind == NodeNativeModuleOutput
	case NodeNativeModuleInput:
		legal = g.nodes[to].kind == NodeNativeModuleCall
	}
	if !legal {
		return fmt.Errorf("edge (%d,%d): illegal under type lattice", from, to)
	}
	return nil
}

func (g *Graph) checkAcyclic() error {
	visited := make([]bool, len(g.nodes))
	marked := make([]bool, len(g.nodes))
	var visit func(index int) error
	visit = func(index int) error {
		if marked[index] {
			return fmt.Errorf("cycle through node %d", index)
		}
		if visited[index] {
			return nil
		}
		marked[index] = true
		for _, to := range g.nodes[index].outgoing {
			if err := visit(to); err != nil {
				return err
			}
		}
		marked[index] = false
		visited[index] = true
		return nil
	}
	for index := range g.nodes {
		if !visited[index] {
			if err := visit(index); err != nil {
				return err
			}
		}
	}
	return nil
}

// Compact removes invalid nodes and reassigns dense indices,
// preserving referential integrity through an index remap.
func (g *Graph) Compact() {
	remap := make([]int, len(g.nodes))
	next := 0
	for index := range g.nodes {
		if g.nodes[index].kind == NodeInvalid {
			remap[index] = InvalidIndex
			continue
		}
		g.nodes[next] = g.nodes[index]
		remap[index] = next
		next++
	}
	g.nodes = g.nodes[:next]
	for index := range g.nodes {
		n := &g.nodes[index]
		for i, from := range n.incoming {
			n.incoming[i] = remap[from]
		}
		for i, to := range n.outgoing {
			n.outgoing[i] = remap[to]
		}
	}
}
