package glgen

// ConversionError reports a value conversion with no defined rule between
// the shading-language types. It is the generator's single fatal error
// class: code generation for the node that required the conversion aborts.
type ConversionError struct {
	From, To ValueType
}

func (e *ConversionError) Error() string {
	return "unsupported conversion from " + e.From.String() + " to " + e.To.String()
}

// Convert coerces expr from one port type to another following the
// promotion chain float → vec2 → vec3 → vec4 with a separable int↔float
// boundary. Scalar promotions broadcast the value across all lanes; the
// final lane of a vec4 promotion is 1.0 (alpha convention). Demotions take
// leading lanes. Chained pairs are defined directly, never via two hops.
func Convert(expr string, from, to ValueType) (string, error) {
	if from == to {
		return expr, nil
	}
	switch from {
	case TypeInt:
		if to == TypeFloat {
			return "float(" + expr + ")", nil
		}
		if to.isVector() {
			return promoteScalar("float("+expr+")", to), nil
		}
	case TypeFloat:
		if to == TypeInt {
			return "int(" + expr + ")", nil
		}
		if to.isVector() {
			return promoteScalar(expr, to), nil
		}
	case TypeVec2:
		switch to {
		case TypeVec3:
			return "vec3(" + expr + ", 0.0)", nil
		case TypeVec4:
			return "vec4(" + expr + ", 0.0, 1.0)", nil
		case TypeFloat:
			return swizzle(expr, "x"), nil
		case TypeInt:
			return "int(" + swizzle(expr, "x") + ")", nil
		}
	case TypeVec3:
		switch to {
		case TypeVec4:
			return "vec4(" + expr + ", 1.0)", nil
		case TypeVec2:
			return swizzle(expr, "xy"), nil
		case TypeFloat:
			return swizzle(expr, "x"), nil
		case TypeInt:
			return "int(" + swizzle(expr, "x") + ")", nil
		}
	case TypeVec4:
		switch to {
		case TypeVec3:
			return swizzle(expr, "rgb"), nil
		case TypeVec2:
			return swizzle(expr, "xy"), nil
		case TypeFloat:
			return swizzle(expr, "x"), nil
		case TypeInt:
			return "int(" + swizzle(expr, "x") + ")", nil
		}
	}
	return "", &ConversionError{From: from, To: to}
}

// ConvertToFloat casts a wired parameter source expression to float.
// Parameter wires are restricted upstream to float-typed parameters, but
// the source port may be any port type.
func ConvertToFloat(expr string, from ValueType) (string, error) {
	switch from {
	case TypeFloat:
		return expr, nil
	case TypeInt:
		return "float(" + expr + ")", nil
	case TypeVec2, TypeVec3, TypeVec4:
		return swizzle(expr, "x"), nil
	}
	return "", &ConversionError{From: from, To: TypeFloat}
}

// colorExpr converts a value to the final vec3 color. Unlike Convert, a
// scalar becomes grayscale via the broadcasting vec3 constructor.
func colorExpr(expr string, from ValueType) string {
	switch from {
	case TypeFloat:
		return "vec3(" + expr + ")"
	case TypeInt:
		return "vec3(float(" + expr + "))"
	case TypeVec2:
		return "vec3(" + expr + ", 0.0)"
	case TypeVec3:
		return expr
	case TypeVec4:
		return swizzle(expr, "rgb")
	}
	return "vec3(0.0)"
}

// promoteScalar broadcasts a float expression across a vector type. The
// vec4 form sets alpha to 1.0 rather than duplicating the scalar.
func promoteScalar(expr string, to ValueType) string {
	switch to {
	case TypeVec2:
		return "vec2(" + expr + ", " + expr + ")"
	case TypeVec3:
		return "vec3(" + expr + ", " + expr + ", " + expr + ")"
	default:
		return "vec4(" + expr + ", " + expr + ", " + expr + ", 1.0)"
	}
}

// swizzle applies a component selection, parenthesizing compound
// expressions so the selection binds to the whole value.
func swizzle(expr, sel string) string {
	if isIdentifier(expr) {
		return expr + "." + sel
	}
	return "(" + expr + ")." + sel
}
