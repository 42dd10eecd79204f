package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Toy grammar used across the engine tests:
//
//	E -> E + T | T
//	T -> T * F | F
//	F -> ( E ) | id
//
// Terminals: 0 id, 1 +, 2 *, 3 (, 4 )
const (
	tID = iota
	tPlus
	tStar
	tLeft
	tRight
	terminalCount
)

const (
	ntE = iota
	ntT
	ntF
	nonterminalCount
)

func expressionGrammar(t *testing.T) (*Parser, map[string]int) {
	t.Helper()
	set := NewProductionSet(terminalCount, nonterminalCount)
	productions := map[string]int{}
	productions["E->E+T"] = set.Add(Nonterminal(ntE), Nonterminal(ntE), Terminal(tPlus), Nonterminal(ntT))
	productions["E->T"] = set.Add(Nonterminal(ntE), Nonterminal(ntT))
	productions["T->T*F"] = set.Add(Nonterminal(ntT), Nonterminal(ntT), Terminal(tStar), Nonterminal(ntF))
	productions["T->F"] = set.Add(Nonterminal(ntT), Nonterminal(ntF))
	productions["F->(E)"] = set.Add(Nonterminal(ntF), Terminal(tLeft), Nonterminal(ntE), Terminal(tRight))
	productions["F->id"] = set.Add(Nonterminal(ntF), Terminal(tID))
	parser, err := New(set)
	require.NoError(t, err)
	return parser, productions
}

func tokenSource(terminals []int) TokenSource {
	cursor := 0
	return func() (int, bool) {
		if cursor >= len(terminals) {
			return 0, false
		}
		terminal := terminals[cursor]
		cursor++
		return terminal, true
	}
}

func TestParser_Accepts(t *testing.T) {
	parser, _ := expressionGrammar(t)
	tests := []struct {
		name  string
		input []int
	}{
		{name: "single id", input: []int{tID}},
		{name: "addition", input: []int{tID, tPlus, tID}},
		{name: "precedence mix", input: []int{tID, tPlus, tID, tStar, tID}},
		{name: "parentheses", input: []int{tLeft, tID, tPlus, tID, tRight, tStar, tID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree, errorTokens := parser.Parse(tokenSource(tc.input))
			assert.Empty(t, errorTokens)
			assert.NotEqual(t, InvalidIndex, tree.RootIndex())
		})
	}
}

func TestParser_ErrorRecordsTokenIndex(t *testing.T) {
	parser, _ := expressionGrammar(t)
	tests := []struct {
		name       string
		input      []int
		errorIndex int
	}{
		{name: "leading operator", input: []int{tPlus, tID}, errorIndex: 0},
		{name: "dangling operator", input: []int{tID, tPlus}, errorIndex: 2},
		{name: "unbalanced paren", input: []int{tLeft, tID}, errorIndex: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree, errorTokens := parser.Parse(tokenSource(tc.input))
			require.Len(t, errorTokens, 1)
			assert.Equal(t, tc.errorIndex, errorTokens[0])
			assert.Equal(t, InvalidIndex, tree.RootIndex())
		})
	}
}

// The children of a reduction appear left to right in source order.
func TestParser_TreeShape(t *testing.T) {
	parser, productions := expressionGrammar(t)
	tree, errorTokens := parser.Parse(tokenSource([]int{tID, tPlus, tID}))
	require.Empty(t, errorTokens)

	root := tree.Node(tree.RootIndex())
	require.False(t, root.Symbol().IsTerminal())
	assert.Equal(t, productions["E->E+T"], root.ProductionIndex())

	children := tree.Children(tree.RootIndex())
	require.Len(t, children, 3)
	assert.False(t, tree.Node(children[0]).Symbol().IsTerminal())
	require.True(t, tree.Node(children[1]).Symbol().IsTerminal())
	assert.Equal(t, 1, tree.Node(children[1]).TokenIndex())
	assert.False(t, tree.Node(children[2]).Symbol().IsTerminal())
}

func treeSignature(tree *Tree, node int) []int {
	signature := []int{tree.Node(node).tokenOrProd}
	for _, child := range tree.Children(node) {
		signature = append(signature, treeSignature(tree, child)...)
	}
	return signature
}

// Parsing the same token stream twice produces identical trees.
func TestParser_Deterministic(t *testing.T) {
	parser, _ := expressionGrammar(t)
	input := []int{tLeft, tID, tPlus, tID, tRight, tStar, tID}
	first, firstErrors := parser.Parse(tokenSource(input))
	second, secondErrors := parser.Parse(tokenSource(input))
	require.Empty(t, firstErrors)
	require.Empty(t, secondErrors)
	assert.Equal(t, treeSignature(first, first.RootIndex()), treeSignature(second, second.RootIndex()))
}

// An epsilon production must reduce without popping anything.
func TestParser_EpsilonProduction(t *testing.T) {
	// S -> a L b ; L -> epsilon | L a
	set := NewProductionSet(2, 2)
	set.Add(Nonterminal(0), Terminal(0), Nonterminal(1), Terminal(1))
	set.Add(Nonterminal(1))
	set.Add(Nonterminal(1), Nonterminal(1), Terminal(0))
	parser, err := New(set)
	require.NoError(t, err)

	tree, errorTokens := parser.Parse(tokenSource([]int{0, 0, 0, 1}))
	assert.Empty(t, errorTokens)
	assert.NotEqual(t, InvalidIndex, tree.RootIndex())
}

func TestGenerate_ConflictDetected(t *testing.T) {
	// Ambiguous grammar: S -> S S | a
	set := NewProductionSet(1, 1)
	set.Add(Nonterminal(0), Nonterminal(0), Nonterminal(0))
	set.Add(Nonterminal(0), Terminal(0))
	_, err := New(set)
	assert.Error(t, err)
}
