package logic

import (
	"strings"

	"github.com/drmem-io/drmem/core/errors"
)

// parser is a recursive-descent parser over the §4.6 grammar, built with
// one method per precedence level (lowest to highest): or, and, compare,
// additive, multiplicative, unary, primary.
type parser struct {
	toks []Token
	pos  int

	inputs   []string
	inputIdx map[string]int
}

// Compile parses src into a Block, resolving every {NAME} device reference
// to a stable index into Block.Inputs (in order of first appearance).
func Compile(src string) (*Block, error) {
	lx := newLexer(src)
	var toks []Token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == TokEOF {
			break
		}
	}

	p := &parser{toks: toks, inputIdx: make(map[string]int)}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	blk := &Block{Expr: expr}

	if p.cur().Kind == TokArrow {
		p.advance()
		outTok := p.cur()
		if outTok.Kind != TokVariable {
			return nil, errors.ParseError("expected output variable after '->' at byte %d", outTok.Pos)
		}
		p.advance()
		v, err := parseVariableText(outTok.Text)
		if err != nil {
			return nil, err
		}
		if v.Kind != VarDevice {
			return nil, errors.ParseError("output of '->' must be a device variable, got %q", outTok.Text)
		}
		blk.Output = v
	}

	if p.cur().Kind != TokEOF {
		return nil, errors.ParseError("unexpected trailing token %s at byte %d", p.cur().Kind, p.cur().Pos)
	}

	blk.Inputs = p.inputs
	return blk, nil
}

func (p *parser) cur() Token { return p.toks[p.pos] }

func (p *parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *parser) expect(k TokenKind) error {
	if p.cur().Kind != k {
		return errors.ParseError("expected %s, got %s at byte %d", k, p.cur().Kind, p.cur().Pos)
	}
	p.advance()
	return nil
}

// parseOr : and (OR and)*
func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: TokOr, Left: left, Right: right}
	}
	return left, nil
}

// parseAnd : compare (AND compare)*
func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokAnd {
		p.advance()
		right, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: TokAnd, Left: left, Right: right}
	}
	return left, nil
}

// parseCompare : additive ( (= | <> | < | <= | > | >=) additive )?
// Comparisons don't chain (§4.6 gives them one precedence level and the
// grammar treats `a = b = c` as ill-formed rather than as (a=b)=c).
func (p *parser) parseCompare() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch p.cur().Kind {
	case TokEq:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryOp{Op: TokEq, Left: left, Right: right}, nil
	case TokNe:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		// `<>` is parsed as negated `=`, per §4.6.
		return UnaryOp{Op: TokNot, Operand: BinaryOp{Op: TokEq, Left: left, Right: right}}, nil
	case TokLt:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryOp{Op: TokLt, Left: left, Right: right}, nil
	case TokLe:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryOp{Op: TokLe, Left: left, Right: right}, nil
	case TokGt:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		// `a > b` is parsed as the mirrored `b < a`, per §4.6.
		return BinaryOp{Op: TokLt, Left: right, Right: left}, nil
	case TokGe:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryOp{Op: TokLe, Left: right, Right: left}, nil
	default:
		return left, nil
	}
}

// parseAdditive : multiplicative ((+ | -) multiplicative)*
func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokPlus || p.cur().Kind == TokMinus {
		op := p.cur().Kind
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseMultiplicative : unary ((* | / | %) unary)*
func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokStar || p.cur().Kind == TokSlash || p.cur().Kind == TokPercent {
		op := p.cur().Kind
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseUnary : NOT unary | primary
func (p *parser) parseUnary() (Expr, error) {
	if p.cur().Kind == TokNot {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryOp{Op: TokNot, Operand: operand}, nil
	}
	return p.parsePrimary()
}

// parsePrimary : literal | '-' number | variable | '(' or ')'
func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case TokBool:
		p.advance()
		return Literal{Kind: LitBool, Bool: t.BoolVal}, nil
	case TokInt:
		p.advance()
		return Literal{Kind: LitInt, Int: t.IntVal}, nil
	case TokFloat:
		p.advance()
		return Literal{Kind: LitFloat, Float: t.FloatVal}, nil
	case TokString:
		p.advance()
		return Literal{Kind: LitString, Str: t.StringVal}, nil
	case TokColor:
		p.advance()
		return Literal{Kind: LitColor, Color: t.ColorVal}, nil
	case TokVariable:
		p.advance()
		v, err := parseVariableText(t.Text)
		if err != nil {
			return nil, err
		}
		if v.Kind == VarDevice {
			v.Index = p.bindInput(v.Name)
		}
		return v, nil
	case TokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokMinus:
		// A '-' directly before a numeric literal makes a signed literal.
		next := p.toks[p.pos+1]
		switch next.Kind {
		case TokInt:
			p.advance()
			p.advance()
			return Literal{Kind: LitInt, Int: -next.IntVal}, nil
		case TokFloat:
			p.advance()
			p.advance()
			return Literal{Kind: LitFloat, Float: -next.FloatVal}, nil
		}
		return nil, errors.ParseError("unexpected token %s at byte %d", t.Kind, t.Pos)
	default:
		return nil, errors.ParseError("unexpected token %s at byte %d", t.Kind, t.Pos)
	}
}

func (p *parser) bindInput(name string) int {
	if idx, ok := p.inputIdx[name]; ok {
		return idx
	}
	idx := len(p.inputs)
	p.inputs = append(p.inputs, name)
	p.inputIdx[name] = idx
	return idx
}

// parseVariableText interprets the text between `{` and `}`: a clock/solar
// field reference ("utc:second", "local:DOY", "solar:alt") or, for anything
// else, a device name binding.
func parseVariableText(text string) (Var, error) {
	if rest, ok := cutPrefix(text, "utc:"); ok {
		return Var{Kind: VarUTC, Field: strings.ToLower(rest)}, nil
	}
	if rest, ok := cutPrefix(text, "local:"); ok {
		return Var{Kind: VarLocal, Field: strings.ToLower(rest)}, nil
	}
	if rest, ok := cutPrefix(text, "solar:"); ok {
		return Var{Kind: VarSolar, Field: strings.ToLower(rest)}, nil
	}
	if text == "" {
		return Var{}, errors.ParseError("empty variable reference")
	}
	return Var{Kind: VarDevice, Name: text}, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}
