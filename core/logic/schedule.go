package logic

// TimeField identifies the finest clock granularity a block's expression
// depends on. Fields are ordered so that a higher value is finer
// (Second > Minute > Hour > Day > Month > Year).
type TimeField int

const (
	// FieldNone means the block references no clock variable at all.
	FieldNone TimeField = iota
	FieldYear
	FieldMonth
	FieldDay
	FieldHour
	FieldMinute
	FieldSecond
)

var timeFieldRank = map[string]TimeField{
	"second": FieldSecond,
	"minute": FieldMinute,
	"hour":   FieldHour,
	"day":    FieldDay,
	"month":  FieldMonth,
	"year":   FieldYear,
	// dow/doy/ly track the calendar date; a block using them only needs a
	// day tick to stay current.
	"dow": FieldDay,
	"doy": FieldDay,
	"ly":  FieldYear,
}

// Schedule describes when a block must be re-evaluated on a clock tick, as
// determined by static analysis of its AST (§4.6).
type Schedule struct {
	Field     TimeField
	UsesSolar bool
}

// Analyze walks expr and returns the finest-grained clock field it
// references (Second beats Minute beats Hour beats Day beats Month beats
// Year) and whether it references any {solar:FIELD}.
func Analyze(expr Expr) Schedule {
	var s Schedule
	analyzeInto(expr, &s)
	return s
}

func analyzeInto(expr Expr, s *Schedule) {
	switch e := expr.(type) {
	case Var:
		switch e.Kind {
		case VarUTC, VarLocal:
			if f, ok := timeFieldRank[e.Field]; ok && f > s.Field {
				s.Field = f
			}
		case VarSolar:
			s.UsesSolar = true
		}
	case UnaryOp:
		analyzeInto(e.Operand, s)
	case BinaryOp:
		analyzeInto(e.Left, s)
		analyzeInto(e.Right, s)
	}
}
