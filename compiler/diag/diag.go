// Package diag collects compiler messages, warnings and errors. The
// sink is the single coordination object of the pipeline: each stage
// accumulates into it and downstream stages gate on ErrorCount() == 0.
package diag

import (
	"fmt"
	"io"

	"github.com/viant/wavelang/compiler/source"
)

// Severity of a reported message.
type Severity int

const (
	SeverityMessage Severity = iota
	SeverityWarning
	SeverityError
)

// Warning codes. Warnings are advisory and never fail the build.
type Warning int

const (
	WarningEntryPointArgumentInitializerIgnored Warning = iota
	WarningNativeModuleWarning
)

// Error codes. The taxonomy is closed; codes are part of the public
// contract.
type Error int

const (
	// File errors
	ErrorFailedToFindFile Error = iota
	ErrorFailedToOpenFile
	ErrorFailedToReadFile

	// Lexer/parser errors
	ErrorInvalidToken
	ErrorUnexpectedToken

	// Import errors
	ErrorSelfReferentialImport
	ErrorFailedToResolveImport

	// Instrument globals errors
	ErrorUnrecognizedInstrumentGlobal
	ErrorIllegalInstrumentGlobal
	ErrorInvalidInstrumentGlobalParameters
	ErrorDuplicateInstrumentGlobal

	// Data type errors
	ErrorIllegalDataType
	ErrorTypeMismatch
	ErrorIllegalTypeConversion
	ErrorInconsistentArrayElementDataTypes
	ErrorReturnTypeMismatch
	ErrorIllegalForLoopRangeType

	// Value declaration errors
	ErrorIllegalValueDataType
	ErrorIllegalGlobalScopeValueDataType
	ErrorMissingGlobalScopeValueInitializer

	// Module declaration errors
	ErrorIllegalOutArgument
	ErrorIllegalArgumentOrdering
	ErrorDuplicateArgument
	ErrorDeclarationConflict
	ErrorUnassignedOutArgument
	ErrorMissingReturnStatement

	// Identifier resolution errors
	ErrorIdentifierResolutionNotAllowed
	ErrorIdentifierResolutionFailed
	ErrorAmbiguousIdentifierResolution

	// Module call errors
	ErrorNotCallableType
	ErrorInvalidNamedArgument
	ErrorTooManyArgumentsProvided
	ErrorDuplicateArgumentProvided
	ErrorArgumentDirectionMismatch
	ErrorMissingArgument
	ErrorAmbiguousModuleOverloadResolution
	ErrorEmptyModuleOverloadResolution
	ErrorInvalidOutArgument

	// Statement errors
	ErrorInvalidAssignment
	ErrorInvalidIfStatementDataType
	ErrorIllegalBreakStatement
	ErrorIllegalContinueStatement
	ErrorIllegalVariableSubscriptAssignment

	// Entry point errors
	ErrorAmbiguousEntryPoint
	ErrorInvalidEntryPoint
	ErrorIncompatibleEntryPoints
	ErrorMissingEntryPoint

	// Evaluation errors
	ErrorSelfReferentialConstant
	ErrorModuleCallDepthLimitExceeded
	ErrorArrayIndexOutOfBounds
	ErrorNativeModuleError
	ErrorInvalidNativeModuleImplementation

	// Optimization errors
	ErrorConstantExpected
)

// Message is one collected diagnostic.
type Message struct {
	Severity Severity
	Code     int
	Location *source.Location
	Text     string
}

// Sink accumulates diagnostics for one compilation. The zero value is
// usable; set Writer for stream output and PathFor to render file
// names in locations.
type Sink struct {
	Writer  io.Writer
	PathFor func(source.Handle) string

	messages     []Message
	warningCount int
	errorCount   int
}

// Messagef records an informational message.
func (s *Sink) Messagef(loc *source.Location, format string, args ...interface{}) {
	s.add(Message{Severity: SeverityMessage, Location: loc, Text: fmt.Sprintf(format, args...)})
}

// Warningf records a warning.
func (s *Sink) Warningf(code Warning, loc *source.Location, format string, args ...interface{}) {
	s.warningCount++
	s.add(Message{Severity: SeverityWarning, Code: int(code), Location: loc, Text: fmt.Sprintf(format, args...)})
}

// Errorf records an error.
func (s *Sink) Errorf(code Error, loc *source.Location, format string, args ...interface{}) {
	s.errorCount++
	s.add(Message{Severity: SeverityError, Code: int(code), Location: loc, Text: fmt.Sprintf(format, args...)})
}

func (s *Sink) add(message Message) {
	s.messages = append(s.messages, message)
	if s.Writer != nil {
		fmt.Fprintln(s.Writer, s.format(&message))
	}
}

func (s *Sink) format(message *Message) string {
	prefix := "message"
	switch message.Severity {
	case SeverityWarning:
		prefix = fmt.Sprintf("warning %d", message.Code)
	case SeverityError:
		prefix = fmt.Sprintf("error %d", message.Code)
	}
	if message.Location == nil {
		return fmt.Sprintf("%s: %s", prefix, message.Text)
	}
	name := fmt.Sprintf("file %d", message.Location.File)
	if s.PathFor != nil {
		if path := s.PathFor(message.Location.File); path != "" {
			name = path
		}
	}
	return fmt.Sprintf("%s(%d,%d): %s: %s", name, message.Location.Line, message.Location.Char, prefix, message.Text)
}

// Messages returns all collected diagnostics in order.
func (s *Sink) Messages() []Message {
	return s.messages
}

// WarningCount returns the number of warnings collected so far.
func (s *Sink) WarningCount() int {
	return s.warningCount
}

// ErrorCount returns the number of errors collected so far.
func (s *Sink) ErrorCount() int {
	return s.errorCount
}
