// Package grammar defines the WaveLang surface grammar and generates
// its LR(1) parse tables once at first use. Token kinds double as the
// terminal indices; production indices are exported so tree walkers
// can switch on them.
package grammar

import (
	"sync"

	"github.com/viant/wavelang/compiler/lexer"
	"github.com/viant/wavelang/compiler/parser"
)

// Nonterminal indices. SourceFile is the start symbol.
const (
	NTSourceFile = iota
	NTTopItemList
	NTTopItem
	NTImport
	NTImportBody
	NTDotList
	NTPathList
	NTImportAsOpt
	NTImportAsTarget
	NTInstrumentGlobal
	NTGlobalValueList
	NTGlobalValue
	NTVisibility
	NTModuleDecl
	NTNamespaceDecl
	NTGlobalValueDecl
	NTDeclList
	NTDeclaration
	NTArgListOpt
	NTArgList
	NTArg
	NTDirection
	NTArgInitOpt
	NTReturnTypeOpt
	NTVoidableType
	NTQualifiedType
	NTMutabilityOpt
	NTPrimType
	NTUpsampleOpt
	NTArrayOpt
	NTScope
	NTStmtList
	NTStmt
	NTValueInitOpt
	NTExprOpt
	NTIfStmt
	NTElseOpt
	NTForStmt
	NTExpr
	NTOrExpr
	NTAndExpr
	NTEqExpr
	NTRelExpr
	NTAddExpr
	NTMulExpr
	NTUnaryExpr
	NTPostfixExpr
	NTPrimaryExpr
	NTNameRef
	NTCallArgListOpt
	NTCallArgList
	NTCallArg

	NTCount
)

// Productions holds the grammar's production indices by name so tree
// walkers never hard-code raw numbers.
type Productions struct {
	SourceFile int

	TopItemListEmpty  int
	TopItemListAppend int

	TopItemImport     int
	TopItemGlobal     int
	TopItemModule     int
	TopItemNamespace  int
	TopItemGlobalDecl int

	Import           int
	ImportBodyNormal int
	ImportBodyNative int
	DotListEmpty     int
	DotListAppend    int
	PathListSingle   int
	PathListAppend   int
	ImportAsNone     int
	ImportAsSome     int
	ImportAsLocal    int
	ImportAsPath     int

	InstrumentGlobal      int
	GlobalValueListEmpty  int
	GlobalValueListAppend int
	GlobalValueReal       int
	GlobalValueBool       int
	GlobalValueString     int

	VisibilityDefault int
	VisibilityPublic  int
	VisibilityPrivate int

	ModuleDecl      int
	NamespaceDecl   int
	GlobalValueDecl int

	DeclListEmpty        int
	DeclListAppend       int
	DeclarationModule    int
	DeclarationNamespace int
	DeclarationValue     int

	ArgListOptEmpty int
	ArgListOptSome  int
	ArgListSingle   int
	ArgListAppend   int
	Arg             int
	DirectionIn     int
	DirectionOut    int
	ArgInitNone     int
	ArgInitSome     int

	ReturnTypeNone    int
	ReturnTypeSome    int
	VoidableTypeVoid  int
	VoidableTypeValue int

	QualifiedType       int
	MutabilityVariable  int
	MutabilityConstant  int
	MutabilityDependent int
	PrimTypeReal        int
	PrimTypeBool        int
	PrimTypeString      int
	UpsampleNone        int
	UpsampleSome        int
	ArrayNone           int
	ArraySome           int

	Scope          int
	StmtListEmpty  int
	StmtListAppend int

	StmtExpr      int
	StmtAssign    int
	StmtValueDecl int
	StmtReturn    int
	StmtIf        int
	StmtFor       int
	StmtBreak     int
	StmtContinue  int

	ValueInitNone int
	ValueInitSome int
	ExprOptEmpty  int
	ExprOptSome   int

	IfStmt     int
	ElseNone   int
	ElseScope  int
	ElseIf     int
	ForStmt    int

	Expr            int
	OrExprPass      int
	OrExprOr        int
	AndExprPass     int
	AndExprAnd      int
	EqExprPass      int
	EqExprEqual     int
	EqExprNotEqual  int
	RelExprPass     int
	RelExprLess     int
	RelExprGreater  int
	RelExprLessEq   int
	RelExprGreatEq  int
	AddExprPass     int
	AddExprAdd      int
	AddExprSub      int
	MulExprPass     int
	MulExprMul      int
	MulExprDiv      int
	MulExprMod      int
	UnaryExprPass   int
	UnaryExprNeg    int
	UnaryExprNot    int
	PostfixPass     int
	PostfixSubscript int
	PostfixCall     int

	PrimaryReal    int
	PrimaryBool    int
	PrimaryString  int
	PrimaryName    int
	PrimaryParen   int
	PrimaryArray   int
	NameRefSingle  int
	NameRefAppend  int

	CallArgListOptEmpty int
	CallArgListOptSome  int
	CallArgListSingle   int
	CallArgListAppend   int
	CallArgExpr         int
	CallArgNamed        int
	CallArgOut          int
	CallArgNamedOut     int
}

var (
	once        sync.Once
	prods       Productions
	theParser   *parser.Parser
	generateErr error
)

func t(kind lexer.Kind) parser.Symbol {
	return parser.Terminal(int(kind))
}

func nt(index int) parser.Symbol {
	return parser.Nonterminal(index)
}

func build() {
	set := parser.NewProductionSet(int(lexer.KindCount), NTCount)
	p := &prods

	p.SourceFile = set.Add(nt(NTSourceFile), nt(NTTopItemList))

	p.TopItemListEmpty = set.Add(nt(NTTopItemList))
	p.TopItemListAppend = set.Add(nt(NTTopItemList), nt(NTTopItemList), nt(NTTopItem))

	p.TopItemImport = set.Add(nt(NTTopItem), nt(NTImport))
	p.TopItemGlobal = set.Add(nt(NTTopItem), nt(NTInstrumentGlobal))
	p.TopItemModule = set.Add(nt(NTTopItem), nt(NTModuleDecl))
	p.TopItemNamespace = set.Add(nt(NTTopItem), nt(NTNamespaceDecl))
	p.TopItemGlobalDecl = set.Add(nt(NTTopItem), nt(NTGlobalValueDecl))

	p.Import = set.Add(nt(NTImport),
		t(lexer.KindKeywordImport), nt(NTImportBody), t(lexer.KindSymbolSemicolon))
	p.ImportBodyNormal = set.Add(nt(NTImportBody),
		nt(NTDotList), nt(NTPathList), nt(NTImportAsOpt))
	p.ImportBodyNative = set.Add(nt(NTImportBody),
		t(lexer.KindKeywordNative), nt(NTPathList), nt(NTImportAsOpt))
	p.DotListEmpty = set.Add(nt(NTDotList))
	p.DotListAppend = set.Add(nt(NTDotList), nt(NTDotList), t(lexer.KindSymbolDot))
	p.PathListSingle = set.Add(nt(NTPathList), t(lexer.KindIdentifier))
	p.PathListAppend = set.Add(nt(NTPathList),
		nt(NTPathList), t(lexer.KindSymbolDot), t(lexer.KindIdentifier))
	p.ImportAsNone = set.Add(nt(NTImportAsOpt))
	p.ImportAsSome = set.Add(nt(NTImportAsOpt), t(lexer.KindKeywordAs), nt(NTImportAsTarget))
	p.ImportAsLocal = set.Add(nt(NTImportAsTarget), t(lexer.KindSymbolDot))
	p.ImportAsPath = set.Add(nt(NTImportAsTarget), nt(NTPathList))

	p.InstrumentGlobal = set.Add(nt(NTInstrumentGlobal),
		t(lexer.KindSymbolPound), t(lexer.KindIdentifier), nt(NTGlobalValueList), t(lexer.KindSymbolSemicolon))
	p.GlobalValueListEmpty = set.Add(nt(NTGlobalValueList))
	p.GlobalValueListAppend = set.Add(nt(NTGlobalValueList), nt(NTGlobalValueList), nt(NTGlobalValue))
	p.GlobalValueReal = set.Add(nt(NTGlobalValue), t(lexer.KindLiteralReal))
	p.GlobalValueBool = set.Add(nt(NTGlobalValue), t(lexer.KindLiteralBool))
	p.GlobalValueString = set.Add(nt(NTGlobalValue), t(lexer.KindLiteralString))

	p.VisibilityDefault = set.Add(nt(NTVisibility))
	p.VisibilityPublic = set.Add(nt(NTVisibility), t(lexer.KindKeywordPublic))
	p.VisibilityPrivate = set.Add(nt(NTVisibility), t(lexer.KindKeywordPrivate))

	p.ModuleDecl = set.Add(nt(NTModuleDecl),
		nt(NTVisibility), t(lexer.KindKeywordModule), t(lexer.KindIdentifier),
		t(lexer.KindSymbolLeftParen), nt(NTArgListOpt), t(lexer.KindSymbolRightParen),
		nt(NTReturnTypeOpt), nt(NTScope))
	p.NamespaceDecl = set.Add(nt(NTNamespaceDecl),
		nt(NTVisibility), t(lexer.KindKeywordNamespace), t(lexer.KindIdentifier),
		t(lexer.KindSymbolLeftBrace), nt(NTDeclList), t(lexer.KindSymbolRightBrace))
	p.GlobalValueDecl = set.Add(nt(NTGlobalValueDecl),
		nt(NTVisibility), nt(NTQualifiedType), t(lexer.KindIdentifier),
		nt(NTValueInitOpt), t(lexer.KindSymbolSemicolon))

	p.DeclListEmpty = set.Add(nt(NTDeclList))
	p.DeclListAppend = set.Add(nt(NTDeclList), nt(NTDeclList), nt(NTDeclaration))
	p.DeclarationModule = set.Add(nt(NTDeclaration), nt(NTModuleDecl))
	p.DeclarationNamespace = set.Add(nt(NTDeclaration), nt(NTNamespaceDecl))
	p.DeclarationValue = set.Add(nt(NTDeclaration), nt(NTGlobalValueDecl))

	p.ArgListOptEmpty = set.Add(nt(NTArgListOpt))
	p.ArgListOptSome = set.Add(nt(NTArgListOpt), nt(NTArgList))
	p.ArgListSingle = set.Add(nt(NTArgList), nt(NTArg))
	p.ArgListAppend = set.Add(nt(NTArgList), nt(NTArgList), t(lexer.KindSymbolComma), nt(NTArg))
	p.Arg = set.Add(nt(NTArg),
		nt(NTDirection), nt(NTQualifiedType), t(lexer.KindIdentifier), nt(NTArgInitOpt))
	p.DirectionIn = set.Add(nt(NTDirection), t(lexer.KindKeywordIn))
	p.DirectionOut = set.Add(nt(NTDirection), t(lexer.KindKeywordOut))
	p.ArgInitNone = set.Add(nt(NTArgInitOpt))
	p.ArgInitSome = set.Add(nt(NTArgInitOpt), t(lexer.KindSymbolAssign), nt(NTExpr))

	p.ReturnTypeNone = set.Add(nt(NTReturnTypeOpt))
	p.ReturnTypeSome = set.Add(nt(NTReturnTypeOpt), t(lexer.KindSymbolColon), nt(NTVoidableType))
	p.VoidableTypeVoid = set.Add(nt(NTVoidableType), t(lexer.KindKeywordVoid))
	p.VoidableTypeValue = set.Add(nt(NTVoidableType), nt(NTQualifiedType))

	p.QualifiedType = set.Add(nt(NTQualifiedType),
		nt(NTMutabilityOpt), nt(NTPrimType), nt(NTUpsampleOpt), nt(NTArrayOpt))
	p.MutabilityVariable = set.Add(nt(NTMutabilityOpt))
	p.MutabilityConstant = set.Add(nt(NTMutabilityOpt), t(lexer.KindKeywordConst))
	p.MutabilityDependent = set.Add(nt(NTMutabilityOpt),
		t(lexer.KindKeywordConst), t(lexer.KindSymbolQuestion))
	p.PrimTypeReal = set.Add(nt(NTPrimType), t(lexer.KindKeywordReal))
	p.PrimTypeBool = set.Add(nt(NTPrimType), t(lexer.KindKeywordBool))
	p.PrimTypeString = set.Add(nt(NTPrimType), t(lexer.KindKeywordString))
	p.UpsampleNone = set.Add(nt(NTUpsampleOpt))
	p.UpsampleSome = set.Add(nt(NTUpsampleOpt), t(lexer.KindSymbolAt), t(lexer.KindLiteralReal))
	p.ArrayNone = set.Add(nt(NTArrayOpt))
	p.ArraySome = set.Add(nt(NTArrayOpt),
		t(lexer.KindSymbolLeftBracket), t(lexer.KindSymbolRightBracket))

	p.Scope = set.Add(nt(NTScope),
		t(lexer.KindSymbolLeftBrace), nt(NTStmtList), t(lexer.KindSymbolRightBrace))
	p.StmtListEmpty = set.Add(nt(NTStmtList))
	p.StmtListAppend = set.Add(nt(NTStmtList), nt(NTStmtList), nt(NTStmt))

	p.StmtExpr = set.Add(nt(NTStmt), nt(NTExpr), t(lexer.KindSymbolSemicolon))
	p.StmtAssign = set.Add(nt(NTStmt),
		nt(NTExpr), t(lexer.KindSymbolAssign), nt(NTExpr), t(lexer.KindSymbolSemicolon))
	p.StmtValueDecl = set.Add(nt(NTStmt),
		nt(NTQualifiedType), t(lexer.KindIdentifier), nt(NTValueInitOpt), t(lexer.KindSymbolSemicolon))
	p.StmtReturn = set.Add(nt(NTStmt),
		t(lexer.KindKeywordReturn), nt(NTExprOpt), t(lexer.KindSymbolSemicolon))
	p.StmtIf = set.Add(nt(NTStmt), nt(NTIfStmt))
	p.StmtFor = set.Add(nt(NTStmt), nt(NTForStmt))
	p.StmtBreak = set.Add(nt(NTStmt), t(lexer.KindKeywordBreak), t(lexer.KindSymbolSemicolon))
	p.StmtContinue = set.Add(nt(NTStmt), t(lexer.KindKeywordContinue), t(lexer.KindSymbolSemicolon))

	p.ValueInitNone = set.Add(nt(NTValueInitOpt))
	p.ValueInitSome = set.Add(nt(NTValueInitOpt), t(lexer.KindSymbolAssign), nt(NTExpr))
	p.ExprOptEmpty = set.Add(nt(NTExprOpt))
	p.ExprOptSome = set.Add(nt(NTExprOpt), nt(NTExpr))

	p.IfStmt = set.Add(nt(NTIfStmt),
		t(lexer.KindKeywordIf), t(lexer.KindSymbolLeftParen), nt(NTExpr),
		t(lexer.KindSymbolRightParen), nt(NTScope), nt(NTElseOpt))
	p.ElseNone = set.Add(nt(NTElseOpt))
	p.ElseScope = set.Add(nt(NTElseOpt), t(lexer.KindKeywordElse), nt(NTScope))
	p.ElseIf = set.Add(nt(NTElseOpt), t(lexer.KindKeywordElse), nt(NTIfStmt))
	p.ForStmt = set.Add(nt(NTForStmt),
		t(lexer.KindKeywordFor), t(lexer.KindSymbolLeftParen), nt(NTQualifiedType),
		t(lexer.KindIdentifier), t(lexer.KindSymbolColon), nt(NTExpr),
		t(lexer.KindSymbolRightParen), nt(NTScope))

	p.Expr = set.Add(nt(NTExpr), nt(NTOrExpr))
	p.OrExprPass = set.Add(nt(NTOrExpr), nt(NTAndExpr))
	p.OrExprOr = set.Add(nt(NTOrExpr), nt(NTOrExpr), t(lexer.KindSymbolOr), nt(NTAndExpr))
	p.AndExprPass = set.Add(nt(NTAndExpr), nt(NTEqExpr))
	p.AndExprAnd = set.Add(nt(NTAndExpr), nt(NTAndExpr), t(lexer.KindSymbolAnd), nt(NTEqExpr))
	p.EqExprPass = set.Add(nt(NTEqExpr), nt(NTRelExpr))
	p.EqExprEqual = set.Add(nt(NTEqExpr), nt(NTEqExpr), t(lexer.KindSymbolEqual), nt(NTRelExpr))
	p.EqExprNotEqual = set.Add(nt(NTEqExpr), nt(NTEqExpr), t(lexer.KindSymbolNotEqual), nt(NTRelExpr))
	p.RelExprPass = set.Add(nt(NTRelExpr), nt(NTAddExpr))
	p.RelExprLess = set.Add(nt(NTRelExpr), nt(NTRelExpr), t(lexer.KindSymbolLess), nt(NTAddExpr))
	p.RelExprGreater = set.Add(nt(NTRelExpr), nt(NTRelExpr), t(lexer.KindSymbolGreater), nt(NTAddExpr))
	p.RelExprLessEq = set.Add(nt(NTRelExpr), nt(NTRelExpr), t(lexer.KindSymbolLessEqual), nt(NTAddExpr))
	p.RelExprGreatEq = set.Add(nt(NTRelExpr), nt(NTRelExpr), t(lexer.KindSymbolGreaterEqual), nt(NTAddExpr))
	p.AddExprPass = set.Add(nt(NTAddExpr), nt(NTMulExpr))
	p.AddExprAdd = set.Add(nt(NTAddExpr), nt(NTAddExpr), t(lexer.KindSymbolPlus), nt(NTMulExpr))
	p.AddExprSub = set.Add(nt(NTAddExpr), nt(NTAddExpr), t(lexer.KindSymbolMinus), nt(NTMulExpr))
	p.MulExprPass = set.Add(nt(NTMulExpr), nt(NTUnaryExpr))
	p.MulExprMul = set.Add(nt(NTMulExpr), nt(NTMulExpr), t(lexer.KindSymbolMultiply), nt(NTUnaryExpr))
	p.MulExprDiv = set.Add(nt(NTMulExpr), nt(NTMulExpr), t(lexer.KindSymbolDivide), nt(NTUnaryExpr))
	p.MulExprMod = set.Add(nt(NTMulExpr), nt(NTMulExpr), t(lexer.KindSymbolModulo), nt(NTUnaryExpr))
	p.UnaryExprPass = set.Add(nt(NTUnaryExpr), nt(NTPostfixExpr))
	p.UnaryExprNeg = set.Add(nt(NTUnaryExpr), t(lexer.KindSymbolMinus), nt(NTUnaryExpr))
	p.UnaryExprNot = set.Add(nt(NTUnaryExpr), t(lexer.KindSymbolNot), nt(NTUnaryExpr))
	p.PostfixPass = set.Add(nt(NTPostfixExpr), nt(NTPrimaryExpr))
	p.PostfixSubscript = set.Add(nt(NTPostfixExpr),
		nt(NTPostfixExpr), t(lexer.KindSymbolLeftBracket), nt(NTExpr), t(lexer.KindSymbolRightBracket))
	p.PostfixCall = set.Add(nt(NTPostfixExpr),
		nt(NTPostfixExpr), t(lexer.KindSymbolLeftParen), nt(NTCallArgListOpt), t(lexer.KindSymbolRightParen))

	p.PrimaryReal = set.Add(nt(NTPrimaryExpr), t(lexer.KindLiteralReal))
	p.PrimaryBool = set.Add(nt(NTPrimaryExpr), t(lexer.KindLiteralBool))
	p.PrimaryString = set.Add(nt(NTPrimaryExpr), t(lexer.KindLiteralString))
	p.PrimaryName = set.Add(nt(NTPrimaryExpr), nt(NTNameRef))
	p.PrimaryParen = set.Add(nt(NTPrimaryExpr),
		t(lexer.KindSymbolLeftParen), nt(NTExpr), t(lexer.KindSymbolRightParen))
	p.PrimaryArray = set.Add(nt(NTPrimaryExpr),
		t(lexer.KindSymbolLeftBracket), nt(NTCallArgListOpt), t(lexer.KindSymbolRightBracket))
	p.NameRefSingle = set.Add(nt(NTNameRef), t(lexer.KindIdentifier))
	p.NameRefAppend = set.Add(nt(NTNameRef),
		nt(NTNameRef), t(lexer.KindSymbolDot), t(lexer.KindIdentifier))

	p.CallArgListOptEmpty = set.Add(nt(NTCallArgListOpt))
	p.CallArgListOptSome = set.Add(nt(NTCallArgListOpt), nt(NTCallArgList))
	p.CallArgListSingle = set.Add(nt(NTCallArgList), nt(NTCallArg))
	p.CallArgListAppend = set.Add(nt(NTCallArgList),
		nt(NTCallArgList), t(lexer.KindSymbolComma), nt(NTCallArg))
	p.CallArgExpr = set.Add(nt(NTCallArg), nt(NTExpr))
	p.CallArgNamed = set.Add(nt(NTCallArg),
		t(lexer.KindIdentifier), t(lexer.KindSymbolAssign), nt(NTExpr))
	p.CallArgOut = set.Add(nt(NTCallArg), t(lexer.KindKeywordOut), nt(NTExpr))
	p.CallArgNamedOut = set.Add(nt(NTCallArg),
		t(lexer.KindIdentifier), t(lexer.KindSymbolAssign), t(lexer.KindKeywordOut), nt(NTExpr))

	theParser, generateErr = parser.New(set)
}

// Get returns the shared WaveLang parser and production table,
// generating the LR(1) tables on first use.
func Get() (*parser.Parser, *Productions, error) {
	once.Do(build)
	if generateErr != nil {
		return nil, nil, generateErr
	}
	return theParser, &prods, nil
}
