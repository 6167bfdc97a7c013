package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmem-io/drmem/core/value"
)

func mustCompile(t *testing.T, src string) *Block {
	t.Helper()
	blk, err := Compile(src)
	require.NoError(t, err)
	return blk
}

func evalSrc(t *testing.T, src string) (value.Value, bool) {
	t.Helper()
	blk := mustCompile(t, src)
	return Eval(blk.Expr, nil, TimeSnapshot{}, nil)
}

func TestArithmeticLiterals(t *testing.T) {
	v, ok := evalSrc(t, "1+2*3")
	require.True(t, ok)
	i, _ := v.AsInt32()
	assert.Equal(t, int32(7), i)

	v, ok = evalSrc(t, "(1+2)*3")
	require.True(t, ok)
	i, _ = v.AsInt32()
	assert.Equal(t, int32(9), i)

	v, ok = evalSrc(t, "1+2<1+3")
	require.True(t, ok)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestDivisionByZeroIsUndefined(t *testing.T) {
	_, ok := evalSrc(t, "1/0")
	assert.False(t, ok)
}

func TestModuloNonPositiveIsUndefined(t *testing.T) {
	_, ok := evalSrc(t, "5 % 0")
	assert.False(t, ok)
	_, ok = evalSrc(t, "5 % -2")
	assert.False(t, ok)
}

func TestTimeFields(t *testing.T) {
	utc := time.Date(2000, time.January, 2, 3, 4, 5, 0, time.UTC)
	local := time.Date(2001, time.June, 7, 8, 9, 10, 0, time.UTC)
	ts := TimeSnapshot{UTC: utc, Local: local}

	cases := map[string]value.Value{
		"{utc:second}":  value.Int(5),
		"{utc:DOW}":     value.Int(6),
		"{utc:DOY}":     value.Int(1),
		"{local:DOY}":   value.Int(157),
	}
	for src, want := range cases {
		blk := mustCompile(t, src)
		got, ok := Eval(blk.Expr, nil, ts, nil)
		require.True(t, ok, src)
		assert.True(t, want.Equal(got), "%s: want %v got %v", src, want, got)
	}
}

func TestLeapYears(t *testing.T) {
	leap := []int{1964, 1996, 2000, 2004, 2096, 2104}
	notLeap := []int{1997, 1998, 1999, 2001, 2002, 2003, 2097, 2098, 2099, 2101, 2102, 2103}
	for _, y := range leap {
		assert.True(t, isLeapYear(y), "%d should be leap", y)
	}
	for _, y := range notLeap {
		assert.False(t, isLeapYear(y), "%d should not be leap", y)
	}
}

func TestVariableBindingAndEval(t *testing.T) {
	blk := mustCompile(t, "{a:b} and {c:d}")
	require.Equal(t, []string{"a:b", "c:d"}, blk.Inputs)

	tv := value.Bool(true)
	fv := value.Bool(false)
	v, ok := Eval(blk.Expr, []*value.Value{&tv, &fv}, TimeSnapshot{}, nil)
	require.True(t, ok)
	b, _ := v.AsBool()
	assert.False(t, b)
}

func TestOutputAssignment(t *testing.T) {
	blk := mustCompile(t, "{x} and {y} -> {out:dev}")
	assert.Equal(t, VarDevice, blk.Output.Kind)
	assert.Equal(t, "out:dev", blk.Output.Name)
}

func TestOptimizerEquivalence(t *testing.T) {
	srcs := []string{
		"not not true",
		"not true",
		"false and {a}",
		"true and {a}",
		"{a} or true",
		"false or {a}",
		"{a} and false or true",
	}
	for _, src := range srcs {
		blk := mustCompile(t, src)
		optimized := Optimize(blk.Expr)

		av := value.Bool(true)
		inputs := make([]*value.Value, len(blk.Inputs))
		for i := range inputs {
			inputs[i] = &av
		}

		want, wantOk := Eval(blk.Expr, inputs, TimeSnapshot{}, nil)
		got, gotOk := Eval(optimized, inputs, TimeSnapshot{}, nil)
		require.Equal(t, wantOk, gotOk, src)
		if wantOk {
			assert.True(t, want.Equal(got), "%s: want %v got %v", src, want, got)
		}
	}
}

func TestScheduleAnalysis(t *testing.T) {
	blk := mustCompile(t, "{utc:hour} = 3 and {utc:second} = 0")
	sched := Analyze(blk.Expr)
	assert.Equal(t, FieldSecond, sched.Field)
	assert.False(t, sched.UsesSolar)

	blk = mustCompile(t, "{solar:alt} > 10")
	sched = Analyze(blk.Expr)
	assert.True(t, sched.UsesSolar)
}

func TestColorLiteral(t *testing.T) {
	v, ok := evalSrc(t, "#ff0000")
	require.True(t, ok)
	c, err := v.AsColor()
	require.NoError(t, err)
	assert.Equal(t, value.Color{R: 0xff, G: 0, B: 0, A: 0xff}, c)
}

func TestStringComparison(t *testing.T) {
	v, ok := evalSrc(t, `"abc" < "abd"`)
	require.True(t, ok)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestArithmeticRejectsString(t *testing.T) {
	_, ok := evalSrc(t, `"a" + 1`)
	assert.False(t, ok)
}
