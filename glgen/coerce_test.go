package glgen

import (
	"errors"
	"testing"
)

func TestConvertLattice(t *testing.T) {
	cases := []struct {
		from, to ValueType
		want     string
	}{
		{TypeFloat, TypeFloat, "v"},
		{TypeInt, TypeFloat, "float(v)"},
		{TypeFloat, TypeInt, "int(v)"},
		{TypeFloat, TypeVec2, "vec2(v, v)"},
		{TypeFloat, TypeVec3, "vec3(v, v, v)"},
		{TypeFloat, TypeVec4, "vec4(v, v, v, 1.0)"},
		{TypeInt, TypeVec3, "vec3(float(v), float(v), float(v))"},
		{TypeVec2, TypeVec3, "vec3(v, 0.0)"},
		{TypeVec2, TypeVec4, "vec4(v, 0.0, 1.0)"},
		{TypeVec3, TypeVec4, "vec4(v, 1.0)"},
		{TypeVec4, TypeVec3, "v.rgb"},
		{TypeVec4, TypeVec2, "v.xy"},
		{TypeVec3, TypeVec2, "v.xy"},
		{TypeVec2, TypeFloat, "v.x"},
		{TypeVec4, TypeFloat, "v.x"},
		{TypeVec3, TypeInt, "int(v.x)"},
	}
	for _, c := range cases {
		got, err := Convert("v", c.from, c.to)
		if err != nil {
			t.Errorf("Convert(%s→%s) unexpected error: %v", c.from, c.to, err)
			continue
		}
		if got != c.want {
			t.Errorf("Convert(%s→%s) = %q, want %q", c.from, c.to, got, c.want)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	// Widening then narrowing recovers the first lane of the original.
	up, err := Convert("v", TypeFloat, TypeVec4)
	if err != nil {
		t.Fatal(err)
	}
	down, err := Convert(up, TypeVec4, TypeFloat)
	if err != nil {
		t.Fatal(err)
	}
	if down != "(vec4(v, v, v, 1.0)).x" {
		t.Errorf("round trip = %q", down)
	}
}

func TestConvertNonIdentifierParenthesized(t *testing.T) {
	got, err := Convert("a + b", TypeVec4, TypeVec3)
	if err != nil {
		t.Fatal(err)
	}
	if got != "(a + b).rgb" {
		t.Errorf("got %q, want parenthesized swizzle", got)
	}
}

func TestConvertInconvertible(t *testing.T) {
	_, err := Convert("v", TypeString, TypeVec3)
	var cerr *ConversionError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConversionError, got %v", err)
	}
	if cerr.From != TypeString || cerr.To != TypeVec3 {
		t.Errorf("ConversionError carries %v→%v", cerr.From, cerr.To)
	}
}

func TestConvertToFloat(t *testing.T) {
	if got, _ := ConvertToFloat("v", TypeVec3); got != "v.x" {
		t.Errorf("vec3 to float = %q", got)
	}
	if got, _ := ConvertToFloat("v", TypeInt); got != "float(v)" {
		t.Errorf("int to float = %q", got)
	}
	if _, err := ConvertToFloat("v", TypeArray); err == nil {
		t.Error("array to float should fail")
	}
}

func TestColorExpr(t *testing.T) {
	cases := []struct {
		from ValueType
		want string
	}{
		{TypeFloat, "vec3(v)"},
		{TypeInt, "vec3(float(v))"},
		{TypeVec2, "vec3(v, 0.0)"},
		{TypeVec3, "v"},
		{TypeVec4, "v.rgb"},
		{TypeString, "vec3(0.0)"},
	}
	for _, c := range cases {
		if got := colorExpr("v", c.from); got != c.want {
			t.Errorf("colorExpr(%s) = %q, want %q", c.from, got, c.want)
		}
	}
}
