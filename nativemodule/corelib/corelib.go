// Package corelib registers the core native-module library: the
// operator modules, a set of math primitives, their compile-time
// implementations, and the algebraic optimization rules over them.
package corelib

import (
	"math"

	"github.com/viant/wavelang/nativemodule"
)

// LibraryID of the core library; name "core".
const LibraryID uint32 = 0

// Module ids within the core library.
const (
	idNoop uint32 = iota
	idNegation
	idAddition
	idSubtraction
	idMultiplication
	idDivision
	idModulo
	idNot
	idEqualReal
	idNotEqualReal
	idEqualBool
	idNotEqualBool
	idLess
	idGreater
	idLessEqual
	idGreaterEqual
	idAnd
	idOr
	idSubscriptReal
	idSubscriptBool
	idSubscriptString
	idAbs
	idFloor
	idCeil
	idRound
	idMin
	idMax
	idExp
	idLog
	idSqrt
	idPow
	idSelectReal
	idSelectString
)

// UIDs exported for the optimizer rule table and tests.
var (
	UIDNoop           = nativemodule.BuildUID(LibraryID, idNoop)
	UIDNegation       = nativemodule.BuildUID(LibraryID, idNegation)
	UIDAddition       = nativemodule.BuildUID(LibraryID, idAddition)
	UIDSubtraction    = nativemodule.BuildUID(LibraryID, idSubtraction)
	UIDMultiplication = nativemodule.BuildUID(LibraryID, idMultiplication)
	UIDDivision       = nativemodule.BuildUID(LibraryID, idDivision)
	UIDModulo         = nativemodule.BuildUID(LibraryID, idModulo)
	UIDNot            = nativemodule.BuildUID(LibraryID, idNot)
	UIDEqualReal      = nativemodule.BuildUID(LibraryID, idEqualReal)
	UIDNotEqualReal   = nativemodule.BuildUID(LibraryID, idNotEqualReal)
	UIDEqualBool      = nativemodule.BuildUID(LibraryID, idEqualBool)
	UIDNotEqualBool   = nativemodule.BuildUID(LibraryID, idNotEqualBool)
	UIDLess           = nativemodule.BuildUID(LibraryID, idLess)
	UIDGreater        = nativemodule.BuildUID(LibraryID, idGreater)
	UIDLessEqual      = nativemodule.BuildUID(LibraryID, idLessEqual)
	UIDGreaterEqual   = nativemodule.BuildUID(LibraryID, idGreaterEqual)
	UIDAnd            = nativemodule.BuildUID(LibraryID, idAnd)
	UIDOr             = nativemodule.BuildUID(LibraryID, idOr)
	UIDSubscriptReal  = nativemodule.BuildUID(LibraryID, idSubscriptReal)
	UIDAbs            = nativemodule.BuildUID(LibraryID, idAbs)
	UIDFloor          = nativemodule.BuildUID(LibraryID, idFloor)
	UIDCeil           = nativemodule.BuildUID(LibraryID, idCeil)
	UIDRound          = nativemodule.BuildUID(LibraryID, idRound)
	UIDMin            = nativemodule.BuildUID(LibraryID, idMin)
	UIDMax            = nativemodule.BuildUID(LibraryID, idMax)
	UIDExp            = nativemodule.BuildUID(LibraryID, idExp)
	UIDLog            = nativemodule.BuildUID(LibraryID, idLog)
	UIDSqrt           = nativemodule.BuildUID(LibraryID, idSqrt)
	UIDPow            = nativemodule.BuildUID(LibraryID, idPow)
	UIDSelectReal     = nativemodule.BuildUID(LibraryID, idSelectReal)
	UIDSelectString   = nativemodule.BuildUID(LibraryID, idSelectString)
)

func realType() nativemodule.QualifiedDataType {
	return nativemodule.QualifiedDataType{
		DataType:   nativemodule.DataType{Primitive: nativemodule.PrimitiveReal},
		Mutability: nativemodule.MutabilityVariable,
	}
}

func boolType() nativemodule.QualifiedDataType {
	return nativemodule.QualifiedDataType{
		DataType:   nativemodule.DataType{Primitive: nativemodule.PrimitiveBool},
		Mutability: nativemodule.MutabilityVariable,
	}
}

func stringType() nativemodule.QualifiedDataType {
	return nativemodule.QualifiedDataType{
		DataType:   nativemodule.DataType{Primitive: nativemodule.PrimitiveString},
		Mutability: nativemodule.MutabilityConstant,
	}
}

func arrayOf(t nativemodule.QualifiedDataType) nativemodule.QualifiedDataType {
	t.IsArray = true
	return t
}

func constOf(t nativemodule.QualifiedDataType) nativemodule.QualifiedDataType {
	t.Mutability = nativemodule.MutabilityConstant
	return t
}

func dependent(t nativemodule.QualifiedDataType) nativemodule.QualifiedDataType {
	t.Mutability = nativemodule.MutabilityDependentConstant
	return t
}

func in(name string, t nativemodule.QualifiedDataType) nativemodule.Argument {
	return nativemodule.Argument{Name: name, Direction: nativemodule.DirectionIn, Type: t}
}

func out(name string, t nativemodule.QualifiedDataType) nativemodule.Argument {
	return nativemodule.Argument{Name: name, Direction: nativemodule.DirectionOut, Type: t}
}

func unaryReal(id uint32, name string, impl func(float32) float32) *nativemodule.Module {
	return &nativemodule.Module{
		UID:  nativemodule.BuildUID(LibraryID, id),
		Name: name,
		Arguments: []nativemodule.Argument{
			in("x", realType()),
			out("result", dependent(realType())),
		},
		ReturnArgumentIndex: 1,
		CompileTime: func(context *nativemodule.Context, arguments []*nativemodule.Value) {
			arguments[1].SetReal(impl(arguments[0].Real))
		},
	}
}

func binaryReal(id uint32, name string, impl func(a, b float32) float32) *nativemodule.Module {
	return &nativemodule.Module{
		UID:  nativemodule.BuildUID(LibraryID, id),
		Name: name,
		Arguments: []nativemodule.Argument{
			in("a", realType()),
			in("b", realType()),
			out("result", dependent(realType())),
		},
		ReturnArgumentIndex: 2,
		CompileTime: func(context *nativemodule.Context, arguments []*nativemodule.Value) {
			arguments[2].SetReal(impl(arguments[0].Real, arguments[1].Real))
		},
	}
}

func comparisonReal(id uint32, name string, impl func(a, b float32) bool) *nativemodule.Module {
	return &nativemodule.Module{
		UID:  nativemodule.BuildUID(LibraryID, id),
		Name: name,
		Arguments: []nativemodule.Argument{
			in("a", realType()),
			in("b", realType()),
			out("result", dependent(boolType())),
		},
		ReturnArgumentIndex: 2,
		CompileTime: func(context *nativemodule.Context, arguments []*nativemodule.Value) {
			arguments[2].SetBool(impl(arguments[0].Real, arguments[1].Real))
		},
	}
}

func binaryBool(id uint32, name string, impl func(a, b bool) bool) *nativemodule.Module {
	return &nativemodule.Module{
		UID:  nativemodule.BuildUID(LibraryID, id),
		Name: name,
		Arguments: []nativemodule.Argument{
			in("a", boolType()),
			in("b", boolType()),
			out("result", dependent(boolType())),
		},
		ReturnArgumentIndex: 2,
		CompileTime: func(context *nativemodule.Context, arguments []*nativemodule.Value) {
			arguments[2].SetBool(impl(arguments[0].Bool, arguments[1].Bool))
		},
	}
}

func modules() []*nativemodule.Module {
	opNoop := nativemodule.OperatorModuleName(nativemodule.OperatorNoop)
	opNeg := nativemodule.OperatorModuleName(nativemodule.OperatorNegation)
	opAdd := nativemodule.OperatorModuleName(nativemodule.OperatorAddition)
	opSub := nativemodule.OperatorModuleName(nativemodule.OperatorSubtraction)
	opMul := nativemodule.OperatorModuleName(nativemodule.OperatorMultiplication)
	opDiv := nativemodule.OperatorModuleName(nativemodule.OperatorDivision)
	opMod := nativemodule.OperatorModuleName(nativemodule.OperatorModulo)
	opNot := nativemodule.OperatorModuleName(nativemodule.OperatorNot)
	opEq := nativemodule.OperatorModuleName(nativemodule.OperatorEqual)
	opNeq := nativemodule.OperatorModuleName(nativemodule.OperatorNotEqual)
	opLt := nativemodule.OperatorModuleName(nativemodule.OperatorLess)
	opGt := nativemodule.OperatorModuleName(nativemodule.OperatorGreater)
	opLe := nativemodule.OperatorModuleName(nativemodule.OperatorLessEqual)
	opGe := nativemodule.OperatorModuleName(nativemodule.OperatorGreaterEqual)
	opAnd := nativemodule.OperatorModuleName(nativemodule.OperatorAnd)
	opOr := nativemodule.OperatorModuleName(nativemodule.OperatorOr)
	opSubscript := nativemodule.OperatorModuleName(nativemodule.OperatorSubscript)

	result := []*nativemodule.Module{
		unaryReal(idNoop, opNoop, func(x float32) float32 { return x }),
		unaryReal(idNegation, opNeg, func(x float32) float32 { return -x }),
		binaryReal(idAddition, opAdd, func(a, b float32) float32 { return a + b }),
		binaryReal(idSubtraction, opSub, func(a, b float32) float32 { return a - b }),
		binaryReal(idMultiplication, opMul, func(a, b float32) float32 { return a * b }),
		binaryReal(idDivision, opDiv, func(a, b float32) float32 { return a / b }),
		binaryReal(idModulo, opMod, func(a, b float32) float32 {
			return float32(math.Mod(float64(a), float64(b)))
		}),
		{
			UID:  UIDNot,
			Name: opNot,
			Arguments: []nativemodule.Argument{
				in("x", boolType()),
				out("result", dependent(boolType())),
			},
			ReturnArgumentIndex: 1,
			CompileTime: func(context *nativemodule.Context, arguments []*nativemodule.Value) {
				arguments[1].SetBool(!arguments[0].Bool)
			},
		},
		comparisonReal(idEqualReal, opEq, func(a, b float32) bool { return a == b }),
		comparisonReal(idNotEqualReal, opNeq, func(a, b float32) bool { return a != b }),
		binaryBool(idEqualBool, opEq, func(a, b bool) bool { return a == b }),
		binaryBool(idNotEqualBool, opNeq, func(a, b bool) bool { return a != b }),
		comparisonReal(idLess, opLt, func(a, b float32) bool { return a < b }),
		comparisonReal(idGreater, opGt, func(a, b float32) bool { return a > b }),
		comparisonReal(idLessEqual, opLe, func(a, b float32) bool { return a <= b }),
		comparisonReal(idGreaterEqual, opGe, func(a, b float32) bool { return a >= b }),
		binaryBool(idAnd, opAnd, func(a, b bool) bool { return a && b }),
		binaryBool(idOr, opOr, func(a, b bool) bool { return a || b }),
		{
			UID:  UIDSubscriptReal,
			Name: opSubscript,
			Arguments: []nativemodule.Argument{
				in("array", arrayOf(realType())),
				in("index", constOf(realType())),
				out("result", realType()),
			},
			ReturnArgumentIndex: 2,
		},
		{
			UID:  nativemodule.BuildUID(LibraryID, idSubscriptBool),
			Name: opSubscript,
			Arguments: []nativemodule.Argument{
				in("array", arrayOf(boolType())),
				in("index", constOf(realType())),
				out("result", boolType()),
			},
			ReturnArgumentIndex: 2,
		},
		{
			UID:  nativemodule.BuildUID(LibraryID, idSubscriptString),
			Name: opSubscript,
			Arguments: []nativemodule.Argument{
				in("array", arrayOf(stringType())),
				in("index", constOf(realType())),
				out("result", stringType()),
			},
			ReturnArgumentIndex: 2,
		},
		unaryReal(idAbs, "abs", func(x float32) float32 { return float32(math.Abs(float64(x))) }),
		unaryReal(idFloor, "floor", func(x float32) float32 { return float32(math.Floor(float64(x))) }),
		unaryReal(idCeil, "ceil", func(x float32) float32 { return float32(math.Ceil(float64(x))) }),
		unaryReal(idRound, "round", func(x float32) float32 { return float32(math.Round(float64(x))) }),
		binaryReal(idMin, "min", func(a, b float32) float32 { return float32(math.Min(float64(a), float64(b))) }),
		binaryReal(idMax, "max", func(a, b float32) float32 { return float32(math.Max(float64(a), float64(b))) }),
		unaryReal(idExp, "exp", func(x float32) float32 { return float32(math.Exp(float64(x))) }),
		unaryReal(idLog, "log", func(x float32) float32 { return float32(math.Log(float64(x))) }),
		unaryReal(idSqrt, "sqrt", func(x float32) float32 { return float32(math.Sqrt(float64(x))) }),
		binaryReal(idPow, "pow", func(a, b float32) float32 {
			return float32(math.Pow(float64(a), float64(b)))
		}),
		{
			UID:  UIDSelectReal,
			Name: "select",
			Arguments: []nativemodule.Argument{
				in("condition", boolType()),
				in("true_value", realType()),
				in("false_value", realType()),
				out("result", dependent(realType())),
			},
			ReturnArgumentIndex: 3,
			CompileTime: func(context *nativemodule.Context, arguments []*nativemodule.Value) {
				if arguments[0].Bool {
					arguments[3].SetReal(arguments[1].Real)
				} else {
					arguments[3].SetReal(arguments[2].Real)
				}
			},
		},
		{
			UID:  UIDSelectString,
			Name: "select",
			Arguments: []nativemodule.Argument{
				in("condition", constOf(boolType())),
				in("true_value", stringType()),
				in("false_value", stringType()),
				out("result", stringType()),
			},
			ReturnArgumentIndex: 3,
			CompileTime: func(context *nativemodule.Context, arguments []*nativemodule.Value) {
				if arguments[0].Bool {
					arguments[3].SetString(arguments[1].String)
				} else {
					arguments[3].SetString(arguments[2].String)
				}
			},
		},
	}
	return result
}

// Register installs the core library, its modules, the operator
// bindings, and the algebraic optimization rules into the registry.
// The registry must be in its registering state.
func Register(registry *nativemodule.Registry) error {
	library := &nativemodule.Library{ID: LibraryID, Name: "core", Version: 1}
	if err := registry.RegisterLibrary(library); err != nil {
		return err
	}
	for _, module := range modules() {
		if err := registry.RegisterModule(module); err != nil {
			return err
		}
	}
	operators := []nativemodule.Operator{
		nativemodule.OperatorNoop,
		nativemodule.OperatorNegation,
		nativemodule.OperatorAddition,
		nativemodule.OperatorSubtraction,
		nativemodule.OperatorMultiplication,
		nativemodule.OperatorDivision,
		nativemodule.OperatorModulo,
		nativemodule.OperatorNot,
		nativemodule.OperatorEqual,
		nativemodule.OperatorNotEqual,
		nativemodule.OperatorLess,
		nativemodule.OperatorGreater,
		nativemodule.OperatorLessEqual,
		nativemodule.OperatorGreaterEqual,
		nativemodule.OperatorAnd,
		nativemodule.OperatorOr,
		nativemodule.OperatorSubscript,
	}
	for _, operator := range operators {
		if err := registry.RegisterOperator(operator, nativemodule.OperatorModuleName(operator)); err != nil {
			return err
		}
	}
	for _, rule := range rules() {
		if err := registry.RegisterOptimizationRule(rule); err != nil {
			return err
		}
	}
	return nil
}

// rules builds the algebraic rewrite table. Patterns follow the
// optimizer's linear form: module open, inputs, module close.
func rules() []*nativemodule.OptimizationRule {
	rule := func(source, target nativemodule.Pattern) *nativemodule.OptimizationRule {
		return &nativemodule.OptimizationRule{Source: source, Target: target}
	}
	pm := nativemodule.PM
	end := nativemodule.PEnd
	x0 := nativemodule.PX(0)
	x1 := nativemodule.PX(1)
	c0 := nativemodule.PC(0)
	rv := nativemodule.PR
	bv := nativemodule.PB

	return []*nativemodule.OptimizationRule{
		// neg(neg(x)) -> x
		rule(nativemodule.Pattern{pm(UIDNegation), pm(UIDNegation), x0, end(), end()},
			nativemodule.Pattern{x0}),
		// x + 0 -> x, 0 + x -> x
		rule(nativemodule.Pattern{pm(UIDAddition), x0, rv(0), end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDAddition), rv(0), x0, end()}, nativemodule.Pattern{x0}),
		// x - 0 -> x, 0 - x -> -x
		rule(nativemodule.Pattern{pm(UIDSubtraction), x0, rv(0), end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDSubtraction), rv(0), x0, end()},
			nativemodule.Pattern{pm(UIDNegation), x0, end()}),
		// x * 1 -> x, 1 * x -> x, x * 0 -> 0, 0 * x -> 0
		rule(nativemodule.Pattern{pm(UIDMultiplication), x0, rv(1), end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDMultiplication), rv(1), x0, end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDMultiplication), x0, rv(0), end()}, nativemodule.Pattern{rv(0)}),
		rule(nativemodule.Pattern{pm(UIDMultiplication), rv(0), x0, end()}, nativemodule.Pattern{rv(0)}),
		// x / 1 -> x
		rule(nativemodule.Pattern{pm(UIDDivision), x0, rv(1), end()}, nativemodule.Pattern{x0}),
		// !!x -> x
		rule(nativemodule.Pattern{pm(UIDNot), pm(UIDNot), x0, end(), end()}, nativemodule.Pattern{x0}),
		// x && true -> x, true && x -> x, x && false -> false, false && x -> false
		rule(nativemodule.Pattern{pm(UIDAnd), x0, bv(true), end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDAnd), bv(true), x0, end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDAnd), x0, bv(false), end()}, nativemodule.Pattern{bv(false)}),
		rule(nativemodule.Pattern{pm(UIDAnd), bv(false), x0, end()}, nativemodule.Pattern{bv(false)}),
		// x || false -> x, false || x -> x, x || true -> true, true || x -> true
		rule(nativemodule.Pattern{pm(UIDOr), x0, bv(false), end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDOr), bv(false), x0, end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDOr), x0, bv(true), end()}, nativemodule.Pattern{bv(true)}),
		rule(nativemodule.Pattern{pm(UIDOr), bv(true), x0, end()}, nativemodule.Pattern{bv(true)}),
		// select with a known condition takes its branch
		rule(nativemodule.Pattern{pm(UIDSelectReal), bv(true), x0, x1, end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDSelectReal), bv(true), x0, c0, end()}, nativemodule.Pattern{x0}),
		rule(nativemodule.Pattern{pm(UIDSelectReal), bv(true), c0, x0, end()}, nativemodule.Pattern{c0}),
		rule(nativemodule.Pattern{pm(UIDSelectReal), bv(false), x0, x1, end()}, nativemodule.Pattern{x1}),
		rule(nativemodule.Pattern{pm(UIDSelectReal), bv(false), x0, c0, end()}, nativemodule.Pattern{c0}),
		rule(nativemodule.Pattern{pm(UIDSelectReal), bv(false), c0, x0, end()}, nativemodule.Pattern{x0}),
	}
}
