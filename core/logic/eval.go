package logic

import (
	"time"

	"github.com/drmem-io/drmem/core/value"
)

// SolarSnapshot is the sun-position state a tick may evaluate against
// (§4.6 {solar:FIELD}); nil means no solar provider is configured, and any
// solar variable reference yields undefined (None) for that tick.
type SolarSnapshot struct {
	Altitude    float64 // degrees
	Azimuth     float64 // degrees
	RightAscen  float64 // degrees
	Declination float64 // degrees
}

// TimeSnapshot is the (UTC, local) timestamp pair a tick evaluates clock
// variables against.
type TimeSnapshot struct {
	UTC   time.Time
	Local time.Time
}

// Eval evaluates expr against an input snapshot and time/solar state.
// Inputs[i] corresponds to Block.Inputs[i]; a nil/absent entry and any type
// violation both yield (Value{}, false) -- "undefined", no error returned,
// matching §4.6's "any type violation yields undefined" policy. Callers
// that want to log the first occurrence of an error do so themselves (see
// core/logicblock).
func Eval(expr Expr, inputs []*value.Value, ts TimeSnapshot, solar *SolarSnapshot) (value.Value, bool) {
	switch e := expr.(type) {
	case Literal:
		return evalLiteral(e), true

	case Var:
		return evalVar(e, inputs, ts, solar)

	case UnaryOp:
		return evalUnary(e, inputs, ts, solar)

	case BinaryOp:
		return evalBinary(e, inputs, ts, solar)

	default:
		return value.Value{}, false
	}
}

func evalLiteral(l Literal) value.Value {
	switch l.Kind {
	case LitBool:
		return value.Bool(l.Bool)
	case LitInt:
		return value.Int(l.Int)
	case LitFloat:
		return value.Float(l.Float)
	case LitString:
		return value.Str(l.Str)
	case LitColor:
		return value.ColorValue(value.Color{R: l.Color[0], G: l.Color[1], B: l.Color[2], A: l.Color[3]})
	default:
		return value.Value{}
	}
}

func evalVar(v Var, inputs []*value.Value, ts TimeSnapshot, solar *SolarSnapshot) (value.Value, bool) {
	switch v.Kind {
	case VarDevice:
		if v.Index < 0 || v.Index >= len(inputs) || inputs[v.Index] == nil {
			return value.Value{}, false
		}
		return *inputs[v.Index], true

	case VarUTC:
		return evalTimeField(v.Field, ts.UTC)

	case VarLocal:
		return evalTimeField(v.Field, ts.Local)

	case VarSolar:
		if solar == nil {
			return value.Value{}, false
		}
		switch v.Field {
		case "alt":
			return value.Float(solar.Altitude), true
		case "az":
			return value.Float(solar.Azimuth), true
		case "ra":
			return value.Float(solar.RightAscen), true
		case "dec":
			return value.Float(solar.Declination), true
		default:
			return value.Value{}, false
		}

	default:
		return value.Value{}, false
	}
}

// isLeapYear reports whether y is a leap year, per the Gregorian rule.
func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func evalTimeField(field string, t time.Time) (value.Value, bool) {
	switch field {
	case "second":
		return value.Int(int32(t.Second())), true
	case "minute":
		return value.Int(int32(t.Minute())), true
	case "hour":
		return value.Int(int32(t.Hour())), true
	case "day":
		return value.Int(int32(t.Day())), true
	case "month":
		return value.Int(int32(t.Month())), true
	case "year":
		return value.Int(int32(t.Year())), true
	case "dow":
		// Monday=0 .. Sunday=6, per §4.6.
		wd := int(t.Weekday()) // Sunday=0..Saturday=6
		return value.Int(int32((wd + 6) % 7)), true
	case "doy":
		// 0-based day-of-year, per §4.6.
		return value.Int(int32(t.YearDay() - 1)), true
	case "ly":
		return value.Bool(isLeapYear(t.Year())), true
	default:
		return value.Value{}, false
	}
}

func evalUnary(u UnaryOp, inputs []*value.Value, ts TimeSnapshot, solar *SolarSnapshot) (value.Value, bool) {
	v, ok := Eval(u.Operand, inputs, ts, solar)
	if !ok {
		return value.Value{}, false
	}
	b, err := v.AsBool()
	if err != nil {
		return value.Value{}, false
	}
	return value.Bool(!b), true
}

func evalBinary(b BinaryOp, inputs []*value.Value, ts TimeSnapshot, solar *SolarSnapshot) (value.Value, bool) {
	switch b.Op {
	case TokAnd:
		return evalShortCircuit(b, inputs, ts, solar, false)
	case TokOr:
		return evalShortCircuit(b, inputs, ts, solar, true)
	}

	left, ok := Eval(b.Left, inputs, ts, solar)
	if !ok {
		return value.Value{}, false
	}
	right, ok := Eval(b.Right, inputs, ts, solar)
	if !ok {
		return value.Value{}, false
	}

	switch b.Op {
	case TokEq:
		return evalEquals(left, right)
	case TokLt:
		return evalOrder(left, right, false)
	case TokLe:
		return evalOrder(left, right, true)
	case TokPlus, TokMinus, TokStar, TokSlash, TokPercent:
		return evalArith(b.Op, left, right)
	default:
		return value.Value{}, false
	}
}

// evalShortCircuit implements `and`/`or` short-circuiting: the right
// operand is not evaluated once the left one determines the result, per
// §4.6.
func evalShortCircuit(b BinaryOp, inputs []*value.Value, ts TimeSnapshot, solar *SolarSnapshot, isOr bool) (value.Value, bool) {
	left, ok := Eval(b.Left, inputs, ts, solar)
	if !ok {
		return value.Value{}, false
	}
	lb, err := left.AsBool()
	if err != nil {
		return value.Value{}, false
	}
	if lb == isOr {
		return value.Bool(isOr), true
	}

	right, ok := Eval(b.Right, inputs, ts, solar)
	if !ok {
		return value.Value{}, false
	}
	rb, err := right.AsBool()
	if err != nil {
		return value.Value{}, false
	}
	return value.Bool(rb), true
}

func evalEquals(left, right value.Value) (value.Value, bool) {
	lf, lIsNum, ok1 := asNumeric(left)
	rf, rIsNum, ok2 := asNumeric(right)
	if ok1 && ok2 && lIsNum && rIsNum {
		return value.Bool(lf == rf), true
	}
	if left.Kind() != right.Kind() {
		return value.Value{}, false
	}
	return value.Bool(left.Equal(right)), true
}

// asNumeric widens a Value to float64 if it is Bool/Int/Float, per §4.6's
// arithmetic/comparison coercion rules. ok is false for String/Color.
func asNumeric(v value.Value) (f float64, isNum bool, ok bool) {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return 1, true, true
		}
		return 0, true, true
	case value.KindInt:
		i, _ := v.AsInt32()
		return float64(i), true, true
	case value.KindFloat:
		f, _ := v.AsFloat64()
		return f, true, true
	default:
		return 0, false, false
	}
}

func evalOrder(left, right value.Value, orEqual bool) (value.Value, bool) {
	lf, lIsNum, _ := asNumeric(left)
	rf, rIsNum, _ := asNumeric(right)
	if lIsNum && rIsNum {
		if orEqual {
			return value.Bool(lf <= rf), true
		}
		return value.Bool(lf < rf), true
	}

	ls, lerr := left.AsString()
	rs, rerr := right.AsString()
	if lerr == nil && rerr == nil {
		if orEqual {
			return value.Bool(ls <= rs), true
		}
		return value.Bool(ls < rs), true
	}

	return value.Value{}, false
}

func evalArith(op TokenKind, left, right value.Value) (value.Value, bool) {
	lf, lIsNum, _ := asNumeric(left)
	rf, rIsNum, _ := asNumeric(right)
	if !lIsNum || !rIsNum {
		return value.Value{}, false
	}

	// Bool coerces to 0/1; Int+Float widens to Float; Int+Int (or Int+Bool,
	// Bool+Bool) stays Int.
	lIsBool := left.Kind() == value.KindBool
	rIsBool := right.Kind() == value.KindBool
	bothInt := left.Kind() == value.KindInt && right.Kind() == value.KindInt
	bothIntOrBool := (left.Kind() == value.KindInt || lIsBool) && (right.Kind() == value.KindInt || rIsBool)

	switch op {
	case TokPlus:
		if bothInt {
			li, _ := left.AsInt32()
			ri, _ := right.AsInt32()
			return value.Int(li + ri), true
		}
		if bothIntOrBool {
			return value.Int(int32(lf) + int32(rf)), true
		}
		return value.Float(lf + rf), true
	case TokMinus:
		if bothInt {
			li, _ := left.AsInt32()
			ri, _ := right.AsInt32()
			return value.Int(li - ri), true
		}
		if bothIntOrBool {
			return value.Int(int32(lf) - int32(rf)), true
		}
		return value.Float(lf - rf), true
	case TokStar:
		if bothInt {
			li, _ := left.AsInt32()
			ri, _ := right.AsInt32()
			return value.Int(li * ri), true
		}
		if bothIntOrBool {
			return value.Int(int32(lf) * int32(rf)), true
		}
		return value.Float(lf * rf), true
	case TokSlash:
		if rf == 0 {
			return value.Value{}, false
		}
		if bothInt {
			li, _ := left.AsInt32()
			ri, _ := right.AsInt32()
			return value.Int(li / ri), true
		}
		if bothIntOrBool {
			return value.Int(int32(lf) / int32(rf)), true
		}
		return value.Float(lf / rf), true
	case TokPercent:
		// "% yields None on zero (or non-positive for %) divisor" (§4.6).
		if rf <= 0 {
			return value.Value{}, false
		}
		if bothInt {
			li, _ := left.AsInt32()
			ri, _ := right.AsInt32()
			return value.Int(li % ri), true
		}
		if bothIntOrBool {
			return value.Int(int32(lf) % int32(rf)), true
		}
		return value.Float(float64(int64(lf) % int64(rf))), true
	default:
		return value.Value{}, false
	}
}
