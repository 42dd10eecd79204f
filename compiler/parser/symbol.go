package parser

// Symbol is an epsilon, terminal, or nonterminal grammar symbol.
// The zero value is epsilon.
type Symbol struct {
	index       uint16
	nonterminal bool
	nonepsilon  bool
}

// Epsilon returns the empty symbol.
func Epsilon() Symbol {
	return Symbol{}
}

// Terminal builds a terminal symbol.
func Terminal(index int) Symbol {
	return Symbol{index: uint16(index), nonepsilon: true}
}

// Nonterminal builds a nonterminal symbol.
func Nonterminal(index int) Symbol {
	return Symbol{index: uint16(index), nonterminal: true, nonepsilon: true}
}

// IsEpsilon reports whether the symbol is epsilon.
func (s Symbol) IsEpsilon() bool {
	return !s.nonepsilon
}

// IsTerminal reports whether the symbol is a terminal. Epsilon counts
// as terminal, matching the generator's symbol indexing.
func (s Symbol) IsTerminal() bool {
	return !s.nonterminal
}

// Index returns the terminal or nonterminal index.
func (s Symbol) Index() int {
	return int(s.index)
}

// Production is one grammar rule. An empty RHS yields epsilon.
type Production struct {
	LHS Symbol
	RHS []Symbol
}

// ProductionSet holds the grammar over which tables are generated.
type ProductionSet struct {
	terminalCount    int
	nonterminalCount int
	productions      []Production
}

// NewProductionSet sizes a grammar's symbol space.
func NewProductionSet(terminalCount, nonterminalCount int) *ProductionSet {
	return &ProductionSet{terminalCount: terminalCount, nonterminalCount: nonterminalCount}
}

// Add appends a production and returns its index.
func (p *ProductionSet) Add(lhs Symbol, rhs ...Symbol) int {
	index := len(p.productions)
	p.productions = append(p.productions, Production{LHS: lhs, RHS: rhs})
	return index
}

// ProductionCount returns the number of productions.
func (p *ProductionSet) ProductionCount() int {
	return len(p.productions)
}

// Production returns the production at index.
func (p *ProductionSet) Production(index int) *Production {
	return &p.productions[index]
}

// TerminalCount returns the number of terminals.
func (p *ProductionSet) TerminalCount() int {
	return p.terminalCount
}

// NonterminalCount returns the number of nonterminals.
func (p *ProductionSet) NonterminalCount() int {
	return p.nonterminalCount
}

// TotalSymbolCount includes epsilon, terminals, and nonterminals.
func (p *ProductionSet) TotalSymbolCount() int {
	return 1 + p.terminalCount + p.nonterminalCount
}

// SymbolIndex maps a symbol into the dense symbol space: epsilon 0,
// terminals next, then nonterminals.
func (p *ProductionSet) SymbolIndex(symbol Symbol) int {
	if symbol.IsEpsilon() {
		return 0
	}
	if symbol.IsTerminal() {
		return 1 + symbol.Index()
	}
	return 1 + p.terminalCount + symbol.Index()
}
