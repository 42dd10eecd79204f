// Package parser implements a grammar-independent LR(1) engine: a
// table generator run once per grammar and a runtime parse loop driven
// by the generated action/goto table. The same engine serves any
// grammar expressed as a ProductionSet.
package parser

// TokenSource yields terminal indices lazily. Returning false means
// end of input.
type TokenSource func() (terminal int, ok bool)

// Parser drives the parse loop for one grammar.
type Parser struct {
	productions *ProductionSet
	table       *ActionGotoTable
	endTerminal int
}

// New generates the parse tables for a grammar. The grammar's start
// symbol is nonterminal 0.
func New(productions *ProductionSet) (*Parser, error) {
	table, endTerminal, err := Generate(productions)
	if err != nil {
		return nil, err
	}
	augmented := NewProductionSet(productions.TerminalCount()+1, productions.NonterminalCount()+1)
	for index := 0; index < productions.ProductionCount(); index++ {
		p := productions.Production(index)
		augmented.Add(p.LHS, p.RHS...)
	}
	return &Parser{productions: augmented, table: table, endTerminal: endTerminal}, nil
}

// Parse consumes tokens from the source and builds a parse tree. On a
// parse error the index of the offending token is appended to
// errorTokens and parsing stops; there is no error recovery.
func (p *Parser) Parse(nextToken TokenSource) (tree *Tree, errorTokens []int) {
	tree = NewTree()

	type stackElement struct {
		state     int
		nodeIndex int
	}
	stack := []stackElement{{state: 0, nodeIndex: InvalidIndex}}

	currentTokenIndex := 0
	currentTerminal, ok := nextToken()
	if !ok {
		currentTerminal = p.endTerminal
	}

	for {
		top := stack[len(stack)-1]
		action := p.table.Action(top.state, currentTerminal)

		switch action.Type {
		case ActionInvalid:
			errorTokens = append(errorTokens, currentTokenIndex)
			return tree, errorTokens

		case ActionShift:
			nodeIndex := tree.AddTerminalNode(Terminal(currentTerminal), currentTokenIndex)
			stack = append(stack, stackElement{state: action.Index, nodeIndex: nodeIndex})
			currentTokenIndex++
			currentTerminal, ok = nextToken()
			if !ok {
				currentTerminal = p.endTerminal
			}

		case ActionReduce:
			production := p.productions.Production(action.Index)
			parentIndex := tree.AddNonterminalNode(production.LHS, action.Index)
			for range production.RHS {
				element := stack[len(stack)-1]
				tree.MakeFirstChild(parentIndex, element.nodeIndex)
				stack = stack[:len(stack)-1]
			}
			top = stack[len(stack)-1]
			gotoState := p.table.Goto(top.state, production.LHS.Index())
			stack = append(stack, stackElement{state: gotoState, nodeIndex: parentIndex})

		case ActionAccept:
			tree.SetRootIndex(top.nodeIndex)
			return tree, errorTokens
		}
	}
}
