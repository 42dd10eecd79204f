// Package lexer turns WaveLang source bytes into a dense token
// sequence. Whitespace and // comments are skipped; identifiers are
// upgraded to keywords through a keyword table; symbols are recognized
// by a longest-prefix trie.
package lexer

import (
	"strconv"

	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/source"
)

// invalidTokenLimit aborts lexing of files that are clearly not
// WaveLang source.
const invalidTokenLimit = 100

type trieState struct {
	kind        Kind // token produced when stopping here, or KindInvalid
	transitions map[byte]int
}

// symbolTrie is a mini DFA detecting exact symbol matches. It picks
// the longest registered prefix.
type symbolTrie struct {
	states []trieState
}

func newSymbolTrie() *symbolTrie {
	t := &symbolTrie{}
	t.states = append(t.states, trieState{transitions: map[byte]int{}})
	for kind := SymbolsStart; kind < SymbolsEnd; kind++ {
		if text := symbolStrings[kind]; text != "" {
			t.add(kind, text)
		}
	}
	return t
}

func (t *symbolTrie) add(kind Kind, symbol string) {
	state := 0
	for index := 0; index < len(symbol); index++ {
		c := symbol[index]
		next, ok := t.states[state].transitions[c]
		if !ok {
			next = len(t.states)
			t.states = append(t.states, trieState{transitions: map[byte]int{}})
			t.states[state].transitions[c] = next
		}
		state = next
	}
	t.states[state].kind = kind
}

// advance feeds one character, returning the new state, the token kind
// reached (KindInvalid when none) and whether a transition existed.
func (t *symbolTrie) advance(state int, c byte) (int, Kind, bool) {
	next, ok := t.states[state].transitions[c]
	if !ok {
		return state, KindInvalid, false
	}
	return next, t.states[next].kind, true
}

var trie = newSymbolTrie()

// cursor tracks the position within the source during lexing.
type cursor struct {
	data     []byte
	offset   int
	location source.Location
}

func (c *cursor) eof() bool {
	return c.offset >= len(c.data)
}

func (c *cursor) peek(ahead int) byte {
	if c.offset+ahead >= len(c.data) {
		return 0
	}
	return c.data[c.offset+ahead]
}

func (c *cursor) increment(amount int) {
	for i := 0; i < amount; i++ {
		if c.data[c.offset] == '\n' {
			c.location.Line++
			c.location.Char = 1
		} else {
			c.location.Char++
		}
		c.offset++
	}
}

func (c *cursor) match(text string) bool {
	if c.offset+len(text) > len(c.data) {
		return false
	}
	return string(c.data[c.offset:c.offset+len(text)]) == text
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentifierStart(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}

func isIdentifierChar(b byte) bool {
	return isIdentifierStart(b) || isDigit(b)
}

// Process lexes one source file, reporting invalid tokens through the
// sink. It returns the token sequence and whether lexing fully
// succeeded. The sequence ends with an EOF token unless lexing stopped
// at the invalid-token limit, in which case it has no EOF token.
func Process(file source.Handle, data []byte, sink *diag.Sink) ([]Token, bool) {
	c := &cursor{data: data, location: source.Location{File: file, Line: 1, Char: 1}}
	var tokens []Token
	ok := true
	invalidCount := 0
	for {
		token := readNextToken(c)
		if token.Kind == KindInvalid {
			ok = false
			invalidCount++
			location := token.Location
			sink.Errorf(diag.ErrorInvalidToken, &location, "Invalid token '%s'", token.Text)
			if invalidCount >= invalidTokenLimit {
				sink.Errorf(diag.ErrorInvalidToken, &location,
					"%d invalid tokens were encountered, is this a source file?", invalidCount)
				break
			}
			continue
		}
		tokens = append(tokens, token)
		if token.Kind == KindEOF {
			break
		}
	}
	return tokens, ok
}

func readNextToken(c *cursor) Token {
	// Skip whitespace and comments until neither matches
	skipping := true
	for skipping {
		skipping = false
		for !c.eof() && isWhitespace(c.peek(0)) {
			skipping = true
			c.increment(1)
		}
		if c.match("//") {
			skipping = true
			c.increment(2)
			for !c.eof() && c.peek(0) != '\n' {
				c.increment(1)
			}
		}
	}

	token := Token{Kind: KindInvalid, Location: c.location}
	if c.eof() {
		token.Kind = KindEOF
		return token
	}
	if readIdentifier(c, &token) {
		return token
	}
	if readRealLiteral(c, &token) {
		return token
	}
	if readStringLiteral(c, &token) {
		return token
	}
	return readSymbol(c)
}

var keywordTable = buildKeywordTable()

func buildKeywordTable() map[string]Kind {
	table := make(map[string]Kind, len(keywordStrings)+2)
	for kind, text := range keywordStrings {
		table[text] = kind
	}
	table["true"] = KindLiteralBool
	table["false"] = KindLiteralBool
	return table
}

func readIdentifier(c *cursor, token *Token) bool {
	if !isIdentifierStart(c.peek(0)) {
		return false
	}
	start := c.offset
	for !c.eof() && isIdentifierChar(c.peek(0)) {
		c.increment(1)
	}
	token.Text = string(c.data[start:c.offset])
	if kind, ok := keywordTable[token.Text]; ok {
		token.Kind = kind
		if kind == KindLiteralBool {
			token.BoolValue = token.Text == "true"
		}
	} else {
		token.Kind = KindIdentifier
	}
	return true
}

// readRealLiteral parses -?(0|[1-9][0-9]*)(.[0-9]+)?([Ee][+-]?[0-9]+)?.
// A leading minus not followed by a digit falls through to symbol
// matching.
func readRealLiteral(c *cursor, token *Token) bool {
	if !isDigit(c.peek(0)) && c.peek(0) != '-' {
		return false
	}
	start := c.offset
	if c.peek(0) == '-' {
		if !isDigit(c.peek(1)) {
			return false
		}
		c.increment(1)
	}

	fail := func() bool {
		token.Kind = KindInvalid
		token.Text = string(c.data[start:c.offset])
		return true
	}

	if c.peek(0) == '0' {
		c.increment(1)
		if isDigit(c.peek(0)) {
			// Leading zeros are forbidden; consume the remaining digits
			// into one invalid token
			for !c.eof() && isDigit(c.peek(0)) {
				c.increment(1)
			}
			return fail()
		}
	} else {
		for !c.eof() && isDigit(c.peek(0)) {
			c.increment(1)
		}
	}

	if c.peek(0) == '.' {
		c.increment(1)
		if !isDigit(c.peek(0)) {
			return fail()
		}
		for !c.eof() && isDigit(c.peek(0)) {
			c.increment(1)
		}
	}

	if c.peek(0) == 'E' || c.peek(0) == 'e' {
		c.increment(1)
		if c.peek(0) == '+' || c.peek(0) == '-' {
			c.increment(1)
		}
		if !isDigit(c.peek(0)) {
			return fail()
		}
		for !c.eof() && isDigit(c.peek(0)) {
			c.increment(1)
		}
	}

	token.Text = string(c.data[start:c.offset])
	value, err := strconv.ParseFloat(token.Text, 32)
	if err != nil {
		token.Kind = KindInvalid
		return true
	}
	token.Kind = KindLiteralReal
	token.RealValue = float32(value)
	return true
}

func readStringLiteral(c *cursor, token *Token) bool {
	if c.peek(0) != '"' {
		return false
	}
	start := c.offset
	c.increment(1)

	failed := false
	done := false
	escape := false
	for !done {
		if c.eof() {
			failed = true
			break
		}
		ch := c.peek(0)
		c.increment(1)
		if !escape {
			if ch < 0x20 {
				failed = true
			} else if ch == '"' {
				done = true
			} else if ch == '\\' {
				escape = true
			}
			continue
		}
		escape = false
		switch ch {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		case 'u':
			value := uint32(0)
			for i := 0; i < 4; i++ {
				digit, ok := hexDigit(c.peek(0))
				if !ok {
					failed = true
					break
				}
				c.increment(1)
				value = value<<4 | digit
			}
			// Only ASCII escapes are supported
			if value >= 128 {
				failed = true
			}
		default:
			failed = true
		}
	}

	token.Text = string(c.data[start:c.offset])
	if failed {
		token.Kind = KindInvalid
	} else {
		token.Kind = KindLiteralString
	}
	return true
}

func hexDigit(b byte) (uint32, bool) {
	switch {
	case b >= '0' && b <= '9':
		return uint32(b - '0'), true
	case b >= 'A' && b <= 'F':
		return uint32(b-'A') + 10, true
	case b >= 'a' && b <= 'f':
		return uint32(b-'a') + 10, true
	}
	return 0, false
}

// readSymbol feeds characters to the trie and keeps the longest match.
// On no match a single character is consumed as an invalid token.
func readSymbol(c *cursor) Token {
	token := Token{Kind: KindInvalid, Location: c.location}
	matchedKind := KindInvalid
	matchedLength := 0
	state := 0
	offset := 0
	for {
		next, kind, advanced := trie.advance(state, c.peek(offset))
		if !advanced {
			break
		}
		state = next
		offset++
		if kind != KindInvalid {
			matchedKind = kind
			matchedLength = offset
		}
	}
	length := 1
	if matchedKind != KindInvalid {
		length = matchedLength
	}
	token.Kind = matchedKind
	token.Text = string(c.data[c.offset : c.offset+length])
	c.increment(length)
	return token
}
