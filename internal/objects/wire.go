package objects

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/S0me0neR0man/ourledger/internal/validate"
)

// Uint64Value encodes v as a decimal string: a float64 number cannot hold
// nanosecond timestamps exactly.
func Uint64Value(v uint64) *structpb.Value {
	return structpb.NewStringValue(strconv.FormatUint(v, 10))
}

func OptionalUint64Value(v *uint64) *structpb.Value {
	if v == nil {
		return structpb.NewNullValue()
	}
	return Uint64Value(*v)
}

func formatError(field, want string) error {
	return &validate.Violation{
		Field: field,
		Rule:  validate.RuleFormat,
		Msg:   fmt.Sprintf("%s must be %s", field, want),
	}
}

func lookup(s *structpb.Struct, name string) (*structpb.Value, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, false
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null {
		return nil, false
	}
	return v, true
}

// Has reports whether s carries name with a non-null value.
func Has(s *structpb.Struct, name string) bool {
	_, ok := lookup(s, name)
	return ok
}

// Uint64Field reads a decimal string or an integral non-negative number.
// A missing field reads as 0.
func Uint64Field(s *structpb.Struct, name string) (uint64, error) {
	v, ok := lookup(s, name)
	if !ok {
		return 0, nil
	}
	return parseUint64(v, name)
}

func parseUint64(v *structpb.Value, name string) (uint64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseUint(k.StringValue, 10, 64)
		if err != nil {
			return 0, formatError(name, "an unsigned integer")
		}
		return n, nil
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
			return 0, formatError(name, "an unsigned integer")
		}
		return uint64(f), nil
	}
	return 0, formatError(name, "an unsigned integer")
}

// OptionalUint64Field is Uint64Field keeping absence as nil.
func OptionalUint64Field(s *structpb.Struct, name string) (*uint64, error) {
	v, ok := lookup(s, name)
	if !ok {
		return nil, nil
	}
	n, err := parseUint64(v, name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NumberField reads a number or a numeric string. A missing field reads as 0.
func NumberField(s *structpb.Struct, name string) (float64, error) {
	v, ok := lookup(s, name)
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_StringValue:
		f, err := strconv.ParseFloat(k.StringValue, 64)
		if err != nil {
			return 0, formatError(name, "a number")
		}
		return f, nil
	}
	return 0, formatError(name, "a number")
}

// TextField reads a string. A missing field reads as "".
func TextField(s *structpb.Struct, name string) (string, error) {
	v, ok := lookup(s, name)
	if !ok {
		return "", nil
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", formatError(name, "a string")
	}
	return str.StringValue, nil
}

// StructField reads a nested object.
func StructField(s *structpb.Struct, name string) (*structpb.Struct, error) {
	v, ok := lookup(s, name)
	if !ok {
		return &structpb.Struct{}, nil
	}
	nested, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, formatError(name, "an object")
	}
	return nested.StructValue, nil
}
