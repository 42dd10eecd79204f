package grammar

import "github.com/viant/wavelang/compiler/parser"

// FlattenList linearizes a left-recursive list nonterminal into its
// item nodes, in source order. appendProd is the List → List ... Item
// production (the item is its last child); singleProd is the
// List → Item production (-1 for ε-based lists).
func FlattenList(tree *parser.Tree, node int, appendProd, singleProd int) []int {
	var reversed []int
	for {
		current := tree.Node(node)
		production := current.ProductionIndex()
		if production == appendProd {
			children := tree.Children(node)
			reversed = append(reversed, children[len(children)-1])
			node = children[0]
			continue
		}
		if singleProd >= 0 && production == singleProd {
			children := tree.Children(node)
			reversed = append(reversed, children[0])
		}
		break
	}
	for left, right := 0, len(reversed)-1; left < right; left, right = left+1, right-1 {
		reversed[left], reversed[right] = reversed[right], reversed[left]
	}
	return reversed
}
