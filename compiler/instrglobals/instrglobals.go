// Package instrglobals parses instrument-wide settings (voice count,
// sample rate set, chunk size, fx activation) from the top-level
// source file and expands them into the globals product that drives
// per-variant compilation.
package instrglobals

import (
	"github.com/viant/wavelang/compiler/ast"
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/grammar"
	"github.com/viant/wavelang/compiler/lexer"
	"github.com/viant/wavelang/nativemodule"
)

// Context accumulates instrument globals across parsing. Each command
// may execute at most once.
type Context struct {
	MaxVoicesSet bool
	MaxVoices    uint32

	SampleRatesSet bool
	SampleRates    []uint32

	ChunkSizeSet bool
	ChunkSize    uint32

	ActivateFXImmediatelySet bool
	ActivateFXImmediately    bool
}

// AssignDefaults fills unset commands: 1 voice, a single unconstrained
// sample rate (sentinel 0), chunk size 0, fx activation false.
func (c *Context) AssignDefaults() {
	if !c.MaxVoicesSet {
		c.MaxVoices = 1
	}
	if !c.SampleRatesSet {
		c.SampleRates = []uint32{0}
	}
	if !c.ChunkSizeSet {
		c.ChunkSize = 0
	}
	if !c.ActivateFXImmediatelySet {
		c.ActivateFXImmediately = false
	}
}

// BuildGlobalsSet expands the cartesian product of multi-valued
// commands; currently only sample rate is multi-valued.
func (c *Context) BuildGlobalsSet() []nativemodule.InstrumentGlobals {
	var result []nativemodule.InstrumentGlobals
	for _, sampleRate := range c.SampleRates {
		result = append(result, nativemodule.InstrumentGlobals{
			MaxVoices:             c.MaxVoices,
			SampleRate:            sampleRate,
			ChunkSize:             c.ChunkSize,
			ActivateFXImmediately: c.ActivateFXImmediately,
		})
	}
	return result
}

// Parse extracts instrument-global commands from one parsed file.
// Globals may only appear in the top-level source file.
func Parse(sink *diag.Sink, unit *ast.FileUnit, productions *grammar.Productions, isTopLevel bool, context *Context) {
	tree := unit.Tree
	if tree.RootIndex() == -1 {
		return
	}
	topItemList := tree.Children(tree.RootIndex())[0]
	for _, item := range grammar.FlattenList(tree, topItemList, productions.TopItemListAppend, -1) {
		child := tree.Children(item)[0]
		if tree.Node(child).ProductionIndex() != productions.InstrumentGlobal {
			continue
		}
		children := tree.Children(child)
		command := unit.Token(children[1])
		var values []*lexer.Token
		for _, valueNode := range grammar.FlattenList(tree, children[2],
			productions.GlobalValueListAppend, -1) {
			values = append(values, unit.Token(tree.Children(valueNode)[0]))
		}
		execute(sink, command, values, isTopLevel, context)
	}
}

func execute(sink *diag.Sink, command *lexer.Token, values []*lexer.Token, isTopLevel bool, context *Context) {
	location := command.Location

	parser, known := parsers[command.Text]
	if !known {
		sink.Errorf(diag.ErrorUnrecognizedInstrumentGlobal, &location,
			"Unrecognized instrument global '%s'", command.Text)
		return
	}
	if !isTopLevel {
		sink.Errorf(diag.ErrorIllegalInstrumentGlobal, &location,
			"Instrument global '%s' must be specified in the top-level source file", command.Text)
		return
	}
	parser(sink, command, values, context)
}

type commandParser func(sink *diag.Sink, command *lexer.Token, values []*lexer.Token, context *Context)

var parsers = map[string]commandParser{
	"max_voices":              parseMaxVoices,
	"sample_rate":             parseSampleRate,
	"chunk_size":              parseChunkSize,
	"activate_fx_immediately": parseActivateFXImmediately,
}

func positiveInteger(sink *diag.Sink, command, value *lexer.Token) (uint32, bool) {
	location := value.Location
	if value.Kind != lexer.KindLiteralReal || value.RealValue < 0 {
		sink.Errorf(diag.ErrorInvalidInstrumentGlobalParameters, &location,
			"Instrument global '%s' value '%s' is not a nonzero unsigned integer", command.Text, value.Text)
		return 0, false
	}
	integral := uint32(value.RealValue)
	if float32(integral) != value.RealValue {
		sink.Errorf(diag.ErrorInvalidInstrumentGlobalParameters, &location,
			"Instrument global '%s' value '%s' is out of range", command.Text, value.Text)
		return 0, false
	}
	if integral == 0 {
		sink.Errorf(diag.ErrorInvalidInstrumentGlobalParameters, &location,
			"Instrument global '%s' value '%s' is not a nonzero unsigned integer", command.Text, value.Text)
		return 0, false
	}
	return integral, true
}

func reportDuplicate(sink *diag.Sink, command *lexer.Token) {
	location := command.Location
	sink.Errorf(diag.ErrorDuplicateInstrumentGlobal, &location,
		"Instrument global '%s' specified multiple times", command.Text)
}

func reportValueCount(sink *diag.Sink, command *lexer.Token) {
	location := command.Location
	sink.Errorf(diag.ErrorInvalidInstrumentGlobalParameters, &location,
		"Incorrect number of values specified for instrument global '%s'", command.Text)
}

func parseMaxVoices(sink *diag.Sink, command *lexer.Token, values []*lexer.Token, context *Context) {
	if context.MaxVoicesSet {
		reportDuplicate(sink, command)
		return
	}
	if len(values) != 1 {
		reportValueCount(sink, command)
		return
	}
	value, ok := positiveInteger(sink, command, values[0])
	if !ok {
		return
	}
	context.MaxVoices = value
	context.MaxVoicesSet = true
}

func parseSampleRate(sink *diag.Sink, command *lexer.Token, values []*lexer.Token, context *Context) {
	if context.SampleRatesSet {
		reportDuplicate(sink, command)
		return
	}
	if len(values) == 0 {
		reportValueCount(sink, command)
		return
	}
	for _, token := range values {
		value, ok := positiveInteger(sink, command, token)
		if !ok {
			return
		}
		for _, existing := range context.SampleRates {
			if existing == value {
				location := command.Location
				sink.Errorf(diag.ErrorInvalidInstrumentGlobalParameters, &location,
					"Value '%d' specified multiple times for instrument global '%s'", value, command.Text)
				return
			}
		}
		context.SampleRates = append(context.SampleRates, value)
	}
	context.SampleRatesSet = true
}

func parseChunkSize(sink *diag.Sink, command *lexer.Token, values []*lexer.Token, context *Context) {
	if context.ChunkSizeSet {
		reportDuplicate(sink, command)
		return
	}
	if len(values) != 1 {
		reportValueCount(sink, command)
		return
	}
	value, ok := positiveInteger(sink, command, values[0])
	if !ok {
		return
	}
	context.ChunkSize = value
	context.ChunkSizeSet = true
}

func parseActivateFXImmediately(sink *diag.Sink, command *lexer.Token, values []*lexer.Token, context *Context) {
	if context.ActivateFXImmediatelySet {
		reportDuplicate(sink, command)
		return
	}
	if len(values) != 1 {
		reportValueCount(sink, command)
		return
	}
	if values[0].Kind != lexer.KindLiteralBool {
		location := values[0].Location
		sink.Errorf(diag.ErrorInvalidInstrumentGlobalParameters, &location,
			"Instrument global '%s' value '%s' is not a boolean", command.Text, values[0].Text)
		return
	}
	context.ActivateFXImmediately = values[0].BoolValue
	context.ActivateFXImmediatelySet = true
}
