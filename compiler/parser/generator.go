package parser

import (
	"fmt"
	"sort"
	"strings"
)

// The LR(1) table generator. The grammar is augmented with a new start
// nonterminal and an end-of-input terminal, symbol nullability and
// first sets are computed, and canonical LR(1) item sets drive the
// action/goto table construction. Generation happens once per grammar;
// the resulting table is read-only afterwards.

type lrItem struct {
	production int
	pointer    int
	lookahead  Symbol
}

type itemSet struct {
	items []lrItem
	index map[lrItem]struct{}
}

func newItemSet() *itemSet {
	return &itemSet{index: map[lrItem]struct{}{}}
}

func (s *itemSet) add(item lrItem) bool {
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// key builds a canonical representation used to unify equal item sets.
func (s *itemSet) key() string {
	parts := make([]string, 0, len(s.items))
	for _, item := range s.items {
		lookahead := item.lookahead.Index()
		if item.lookahead.IsEpsilon() {
			lookahead = -1
		}
		parts = append(parts, fmt.Sprintf("%d.%d.%d", item.production, item.pointer, lookahead))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

type symbolSet struct {
	members map[Symbol]struct{}
}

func newSymbolSet() *symbolSet {
	return &symbolSet{members: map[Symbol]struct{}{}}
}

func (s *symbolSet) add(symbol Symbol) bool {
	if _, ok := s.members[symbol]; ok {
		return false
	}
	s.members[symbol] = struct{}{}
	return true
}

func (s *symbolSet) union(other *symbolSet, excludeEpsilon bool) bool {
	changed := false
	for symbol := range other.members {
		if excludeEpsilon && symbol.IsEpsilon() {
			continue
		}
		changed = s.add(symbol) || changed
	}
	return changed
}

type symbolProperties struct {
	nullable bool
	first    *symbolSet
}

type generator struct {
	productions  *ProductionSet
	startNT      int
	startProd    int
	endTerminal  int
	properties   []symbolProperties
	itemSets     []*itemSet
	itemSetIndex map[string]int
	table        *ActionGotoTable
	conflictErrs []error
}

// Generate builds the LR(1) action/goto table for a grammar whose
// start symbol is nonterminal 0. It returns the augmented terminal
// used as end-of-input alongside the table.
func Generate(productions *ProductionSet) (*ActionGotoTable, int, error) {
	g := &generator{}
	g.startNT = productions.NonterminalCount()
	g.endTerminal = productions.TerminalCount()

	augmented := NewProductionSet(productions.TerminalCount()+1, productions.NonterminalCount()+1)
	for index := 0; index < productions.ProductionCount(); index++ {
		p := productions.Production(index)
		augmented.Add(p.LHS, p.RHS...)
	}
	g.startProd = augmented.Add(Nonterminal(g.startNT), Nonterminal(0))
	g.productions = augmented

	g.computeNullable()
	g.computeFirstSets()
	g.computeItemSets()
	if len(g.conflictErrs) > 0 {
		return nil, 0, g.conflictErrs[0]
	}
	return g.table, g.endTerminal, nil
}

func (g *generator) computeNullable() {
	g.properties = make([]symbolProperties, g.productions.TotalSymbolCount())
	for index := range g.properties {
		g.properties[index].first = newSymbolSet()
	}
	for index := 0; index < g.productions.ProductionCount(); index++ {
		production := g.productions.Production(index)
		if len(production.RHS) == 0 {
			g.properties[g.productions.SymbolIndex(production.LHS)].nullable = true
		}
	}
	changed := true
	for changed {
		changed = false
		for index := 0; index < g.productions.ProductionCount(); index++ {
			production := g.productions.Production(index)
			lhs := g.productions.SymbolIndex(production.LHS)
			if g.properties[lhs].nullable {
				continue
			}
			allNullable := true
			for _, symbol := range production.RHS {
				if !g.properties[g.productions.SymbolIndex(symbol)].nullable {
					allNullable = false
					break
				}
			}
			if allNullable {
				g.properties[lhs].nullable = true
				changed = true
			}
		}
	}
}

func (g *generator) computeFirstSets() {
	g.properties[0].first.add(Epsilon())
	for index := 0; index < g.productions.TerminalCount(); index++ {
		symbol := Terminal(index)
		g.properties[g.productions.SymbolIndex(symbol)].first.add(symbol)
	}
	changed := true
	for changed {
		changed = false
		for index := 0; index < g.productions.ProductionCount(); index++ {
			production := g.productions.Production(index)
			lhs := g.productions.SymbolIndex(production.LHS)
			for _, symbol := range production.RHS {
				rhs := g.productions.SymbolIndex(symbol)
				changed = g.properties[lhs].first.union(g.properties[rhs].first, true) || changed
				if !g.properties[rhs].nullable {
					break
				}
			}
		}
	}
}

// stringFirstSet computes the first set of a symbol string followed by
// a lookahead terminal.
func (g *generator) stringFirstSet(symbols []Symbol, lookahead Symbol) *symbolSet {
	result := newSymbolSet()
	for _, symbol := range symbols {
		index := g.productions.SymbolIndex(symbol)
		result.union(g.properties[index].first, true)
		if !g.properties[index].nullable {
			return result
		}
	}
	result.add(lookahead)
	return result
}

func (g *generator) closure(set *itemSet) *itemSet {
	result := newItemSet()
	for _, item := range set.items {
		result.add(item)
	}
	for cursor := 0; cursor < len(result.items); cursor++ {
		item := result.items[cursor]
		production := g.productions.Production(item.production)
		if item.pointer >= len(production.RHS) {
			continue
		}
		pointerSymbol := production.RHS[item.pointer]
		if pointerSymbol.IsTerminal() {
			continue
		}
		follow := g.stringFirstSet(production.RHS[item.pointer+1:], item.lookahead)
		for candidate := 0; candidate < g.productions.ProductionCount(); candidate++ {
			if g.productions.Production(candidate).LHS != pointerSymbol {
				continue
			}
			for lookahead := range follow.members {
				if lookahead.IsEpsilon() {
					continue
				}
				result.add(lrItem{production: candidate, pointer: 0, lookahead: lookahead})
			}
		}
	}
	return result
}

func (g *generator) gotoSet(set *itemSet, symbol Symbol) *itemSet {
	moved := newItemSet()
	for _, item := range set.items {
		production := g.productions.Production(item.production)
		if item.pointer < len(production.RHS) && production.RHS[item.pointer] == symbol {
			moved.add(lrItem{production: item.production, pointer: item.pointer + 1, lookahead: item.lookahead})
		}
	}
	if len(moved.items) == 0 {
		return moved
	}
	return g.closure(moved)
}

func (g *generator) findItemSet(candidate *itemSet) int {
	if index, ok := g.itemSetIndex[candidate.key()]; ok {
		return index
	}
	return -1
}

func (g *generator) addItemSet(set *itemSet) int {
	index := len(g.itemSets)
	g.itemSets = append(g.itemSets, set)
	g.itemSetIndex[set.key()] = index
	g.table.addState()
	return index
}

func (g *generator) computeItemSets() {
	g.table = newActionGotoTable(g.productions.TerminalCount(), g.productions.NonterminalCount())

	g.itemSetIndex = map[string]int{}
	start := newItemSet()
	start.add(lrItem{production: g.startProd, pointer: 0, lookahead: Terminal(g.endTerminal)})
	g.addItemSet(g.closure(start))

	for setIndex := 0; setIndex < len(g.itemSets); setIndex++ {
		for _, terminal := range []bool{true, false} {
			count := g.productions.NonterminalCount()
			if terminal {
				count = g.productions.TerminalCount()
			}
			for index := 0; index < count; index++ {
				symbol := Nonterminal(index)
				if terminal {
					symbol = Terminal(index)
				}
				target := g.gotoSet(g.itemSets[setIndex], symbol)
				match := invalidState
				if len(target.items) > 0 {
					match = g.findItemSet(target)
					if match < 0 {
						match = g.addItemSet(target)
					}
					if terminal {
						g.setShiftActions(setIndex, symbol, match)
					}
				}
				if !terminal {
					g.table.setGoto(setIndex, index, match)
				}
			}
		}
		g.setReduceActions(setIndex)
	}
}

func (g *generator) setShiftActions(setIndex int, symbol Symbol, target int) {
	for _, item := range g.itemSets[setIndex].items {
		production := g.productions.Production(item.production)
		if item.pointer < len(production.RHS) && production.RHS[item.pointer] == symbol {
			g.recordConflict(setIndex, symbol.Index(),
				g.table.setAction(setIndex, symbol.Index(), Action{Type: ActionShift, Index: target}))
		}
	}
}

func (g *generator) setReduceActions(setIndex int) {
	for _, item := range g.itemSets[setIndex].items {
		production := g.productions.Production(item.production)
		if item.pointer < len(production.RHS) {
			continue
		}
		if production.LHS == Nonterminal(g.startNT) {
			g.recordConflict(setIndex, g.endTerminal,
				g.table.setAction(setIndex, g.endTerminal, Action{Type: ActionAccept}))
			continue
		}
		g.recordConflict(setIndex, item.lookahead.Index(),
			g.table.setAction(setIndex, item.lookahead.Index(), Action{Type: ActionReduce, Index: item.production}))
	}
}

func (g *generator) recordConflict(state, terminal int, conflict Conflict) {
	if conflict == ConflictNone {
		return
	}
	kind := "shift/reduce"
	if conflict == ConflictReduceReduce {
		kind = "reduce/reduce"
	}
	g.conflictErrs = append(g.conflictErrs,
		fmt.Errorf("lr(1) %s conflict in state %d on terminal %d", kind, state, terminal))
}
