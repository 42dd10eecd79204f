package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifiedDataType_Assignability(t *testing.T) {
	variable := Qualified(PrimitiveReal, false, MutabilityVariable)
	dependent := Qualified(PrimitiveReal, false, MutabilityDependentConstant)
	constant := Qualified(PrimitiveReal, false, MutabilityConstant)

	tests := []struct {
		name       string
		from, to   QualifiedDataType
		assignable bool
	}{
		{name: "constant to variable", from: constant, to: variable, assignable: true},
		{name: "constant to dependent", from: constant, to: dependent, assignable: true},
		{name: "dependent to variable", from: dependent, to: variable, assignable: true},
		{name: "variable to constant", from: variable, to: constant, assignable: false},
		{name: "variable to dependent", from: variable, to: dependent, assignable: false},
		{name: "dependent to constant", from: dependent, to: constant, assignable: false},
		{
			name:       "type mismatch",
			from:       Qualified(PrimitiveBool, false, MutabilityConstant),
			to:         variable,
			assignable: false,
		},
		{
			name:       "array flag mismatch",
			from:       Qualified(PrimitiveReal, true, MutabilityConstant),
			to:         variable,
			assignable: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.assignable, tc.from.IsAssignableTo(tc.to))
		})
	}
}

func TestQualifiedDataType_UpsampleRules(t *testing.T) {
	up2 := Qualified(PrimitiveReal, false, MutabilityVariable)
	up2.Upsample = 2
	up1 := Qualified(PrimitiveReal, false, MutabilityVariable)
	constant := Qualified(PrimitiveReal, false, MutabilityConstant)

	// Non-constant values must agree on upsample factors
	assert.False(t, up2.IsAssignableTo(up1))
	assert.False(t, up1.IsAssignableTo(up2))
	assert.True(t, up2.IsAssignableTo(up2))

	// Constants are upsample 1 and assignable to any factor
	assert.True(t, constant.IsAssignableTo(up2))
}

func TestQualifiedDataType_Legality(t *testing.T) {
	assert.True(t, Qualified(PrimitiveReal, false, MutabilityVariable).IsLegal())
	assert.True(t, Qualified(PrimitiveString, false, MutabilityConstant).IsLegal())

	// Strings are constant-only
	assert.False(t, Qualified(PrimitiveString, false, MutabilityVariable).IsLegal())
	assert.False(t, Qualified(PrimitiveString, false, MutabilityDependentConstant).IsLegal())

	// Constants are never upsampled
	upsampledConstant := Qualified(PrimitiveReal, false, MutabilityConstant)
	upsampledConstant.Upsample = 2
	assert.False(t, upsampledConstant.IsLegal())
}

func TestQualifiedDataType_String(t *testing.T) {
	arrayType := Qualified(PrimitiveReal, true, MutabilityConstant)
	assert.Equal(t, "const real[]", arrayType.String())

	upsampled := Qualified(PrimitiveBool, false, MutabilityVariable)
	upsampled.Upsample = 2
	assert.Equal(t, "bool@2", upsampled.String())

	dependent := Qualified(PrimitiveReal, false, MutabilityDependentConstant)
	assert.Equal(t, "const? real", dependent.String())
}

func TestScope_Lookup(t *testing.T) {
	parent := NewScope(nil)
	child := NewScope(parent)

	outer := &ValueDecl{DeclName: "x", Type: Qualified(PrimitiveReal, false, MutabilityVariable)}
	parent.AddDeclaration(outer)
	assert.Equal(t, []Declaration{outer}, child.Lookup("x"))

	// A local declaration shadows the parent's
	inner := &ValueDecl{DeclName: "x", Type: Qualified(PrimitiveReal, false, MutabilityVariable)}
	child.AddDeclaration(inner)
	assert.Equal(t, []Declaration{inner}, child.Lookup("x"))

	// Imported references participate in lookup after owned ones
	imported := &ValueDecl{DeclName: "y"}
	parent.AddImported(imported, false)
	assert.Equal(t, []Declaration{imported}, child.Lookup("y"))

	assert.Nil(t, child.Lookup("absent"))
}
