package ast

import "fmt"

// PrimitiveType of a WaveLang value.
type PrimitiveType int

const (
	PrimitiveInvalid PrimitiveType = iota
	PrimitiveVoid
	PrimitiveReal
	PrimitiveBool
	PrimitiveString
)

func (p PrimitiveType) String() string {
	switch p {
	case PrimitiveVoid:
		return "void"
	case PrimitiveReal:
		return "real"
	case PrimitiveBool:
		return "bool"
	case PrimitiveString:
		return "string"
	}
	return "invalid"
}

// Mutability ordered by const-ness: a value of mutability A is
// assignable to a slot of mutability B iff A >= B.
type Mutability int

const (
	MutabilityVariable Mutability = iota
	MutabilityDependentConstant
	MutabilityConstant
)

func (m Mutability) String() string {
	switch m {
	case MutabilityDependentConstant:
		return "const?"
	case MutabilityConstant:
		return "const"
	}
	return ""
}

// DataType is a primitive plus the is-array flag.
type DataType struct {
	Primitive PrimitiveType
	IsArray   bool
}

// QualifiedDataType is the product of data type, mutability, and
// upsample factor. Constants always carry upsample 1.
type QualifiedDataType struct {
	DataType
	Mutability Mutability
	Upsample   int
}

// Qualified builds a qualified type with the default upsample factor.
func Qualified(primitive PrimitiveType, isArray bool, mutability Mutability) QualifiedDataType {
	return QualifiedDataType{
		DataType:   DataType{Primitive: primitive, IsArray: isArray},
		Mutability: mutability,
		Upsample:   1,
	}
}

// VoidType is the return type of modules without a return value.
var VoidType = QualifiedDataType{DataType: DataType{Primitive: PrimitiveVoid}, Mutability: MutabilityVariable, Upsample: 1}

// IsVoid reports whether the type is void.
func (t QualifiedDataType) IsVoid() bool {
	return t.Primitive == PrimitiveVoid
}

// IsLegal validates the qualifier combination: strings are
// constant-only and constants are never upsampled.
func (t QualifiedDataType) IsLegal() bool {
	if t.Primitive == PrimitiveInvalid {
		return false
	}
	if t.Upsample < 1 {
		return false
	}
	if t.Primitive == PrimitiveString && t.Mutability != MutabilityConstant {
		return false
	}
	if t.Mutability == MutabilityConstant && t.Upsample != 1 {
		return false
	}
	return true
}

// IsAssignableTo implements the assignability lattice. Data types must
// match exactly; the source must be at least as const as the target;
// upsample factors must agree unless the source is constant.
func (t QualifiedDataType) IsAssignableTo(target QualifiedDataType) bool {
	if t.DataType != target.DataType {
		return false
	}
	if t.Mutability < target.Mutability {
		return false
	}
	if t.Mutability != MutabilityConstant && t.Upsample != target.Upsample {
		return false
	}
	return true
}

// WithMutability narrows or widens the mutability qualifier.
func (t QualifiedDataType) WithMutability(mutability Mutability) QualifiedDataType {
	t.Mutability = mutability
	if mutability == MutabilityConstant {
		t.Upsample = 1
	}
	return t
}

// ElementType returns the scalar type of an array type.
func (t QualifiedDataType) ElementType() QualifiedDataType {
	element := t
	element.IsArray = false
	return element
}

func (t QualifiedDataType) String() string {
	text := ""
	if qualifier := t.Mutability.String(); qualifier != "" {
		text = qualifier + " "
	}
	text += t.Primitive.String()
	if t.Upsample > 1 {
		text += fmt.Sprintf("@%d", t.Upsample)
	}
	if t.IsArray {
		text += "[]"
	}
	return text
}
