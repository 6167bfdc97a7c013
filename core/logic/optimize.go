package logic

// Optimize applies the §4.6 constant-folding/identity-elimination rewrite
// rules to expr, bottom-up, until a pass makes no further change.
// Eval(Optimize(E), I) matches Eval(E, I) whenever every operand these
// rules drop or pass through evaluates to a boolean. Otherwise the results
// can differ: `{a} and false` folds to false even when {a} is undefined,
// and `true and {a}` becomes {a} even when {a} holds a non-boolean.
func Optimize(expr Expr) Expr {
	for {
		rewritten, changed := rewriteOnce(expr)
		if !changed {
			return rewritten
		}
		expr = rewritten
	}
}

func rewriteOnce(expr Expr) (Expr, bool) {
	switch e := expr.(type) {
	case UnaryOp:
		operand, changedChild := rewriteOnce(e.Operand)
		e.Operand = operand

		if inner, ok := e.Operand.(UnaryOp); e.Op == TokNot && ok && inner.Op == TokNot {
			// not not e -> e
			return inner.Operand, true
		}
		if lit, ok := e.Operand.(Literal); e.Op == TokNot && ok && lit.Kind == LitBool {
			// not true -> false, not false -> true
			return Literal{Kind: LitBool, Bool: !lit.Bool}, true
		}
		return e, changedChild

	case BinaryOp:
		left, changedL := rewriteOnce(e.Left)
		right, changedR := rewriteOnce(e.Right)
		e.Left, e.Right = left, right
		changed := changedL || changedR

		if e.Op == TokAnd {
			if result, ok := foldAnd(e.Left, e.Right); ok {
				return result, true
			}
		}
		if e.Op == TokOr {
			if result, ok := foldOr(e.Left, e.Right); ok {
				return result, true
			}
		}
		return e, changed

	default:
		return expr, false
	}
}

func asBoolLit(e Expr) (bool, bool) {
	lit, ok := e.(Literal)
	if !ok || lit.Kind != LitBool {
		return false, false
	}
	return lit.Bool, true
}

// foldAnd applies: e and false -> false, false and e -> false,
// true and e -> e, e and true -> e, true and true -> true.
func foldAnd(left, right Expr) (Expr, bool) {
	if lb, ok := asBoolLit(left); ok {
		if !lb {
			return Literal{Kind: LitBool, Bool: false}, true
		}
		return right, true
	}
	if rb, ok := asBoolLit(right); ok {
		if !rb {
			return Literal{Kind: LitBool, Bool: false}, true
		}
		return left, true
	}
	return nil, false
}

// foldOr applies: e or true -> true, true or e -> true, false or e -> e,
// e or false -> e, false or false -> false.
func foldOr(left, right Expr) (Expr, bool) {
	if lb, ok := asBoolLit(left); ok {
		if lb {
			return Literal{Kind: LitBool, Bool: true}, true
		}
		return right, true
	}
	if rb, ok := asBoolLit(right); ok {
		if rb {
			return Literal{Kind: LitBool, Bool: true}, true
		}
		return left, true
	}
	return nil, false
}
