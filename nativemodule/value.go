package nativemodule

// ValueKind discriminates the dynamic argument union.
type ValueKind int

const (
	ValueKindReal ValueKind = iota
	ValueKindBool
	ValueKindString
	ValueKindRealReference
	ValueKindBoolReference
	ValueKindStringReference
	ValueKindRealArray
	ValueKindBoolArray
	ValueKindStringArray
	ValueKindRealReferenceArray
	ValueKindBoolReferenceArray
	ValueKindStringReferenceArray
)

// Reference is an opaque handle to a runtime-resolved value.
type Reference uint32

// Value is the closed sum type carried by native-module arguments:
// a real, bool, or string, a reference to one, or an array of any of
// these. The constructors and setters set only Kind and the payload;
// they do not check argument direction or data access.
type Value struct {
	Kind ValueKind

	Real   float32
	Bool   bool
	String string
	Ref    Reference

	RealArray   []float32
	BoolArray   []bool
	StringArray []string
	RefArray    []Reference
}

// RealValue builds a real value.
func RealValue(value float32) *Value {
	return &Value{Kind: ValueKindReal, Real: value}
}

// BoolValue builds a bool value.
func BoolValue(value bool) *Value {
	return &Value{Kind: ValueKindBool, Bool: value}
}

// StringValue builds a string value.
func StringValue(value string) *Value {
	return &Value{Kind: ValueKindString, String: value}
}

// RealArrayValue builds a real array value.
func RealArrayValue(values []float32) *Value {
	return &Value{Kind: ValueKindRealArray, RealArray: values}
}

// SetReal writes a real out-argument.
func (v *Value) SetReal(value float32) {
	v.Kind = ValueKindReal
	v.Real = value
}

// SetBool writes a bool out-argument.
func (v *Value) SetBool(value bool) {
	v.Kind = ValueKindBool
	v.Bool = value
}

// SetString writes a string out-argument.
func (v *Value) SetString(value string) {
	v.Kind = ValueKindString
	v.String = value
}
