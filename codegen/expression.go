package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Expression is anything that can be rendered as C++ argument
type Expression interface {
	String() string
}

type RawExpression string

func (r RawExpression) String() string { return string(r) }

type IntLiteral int64

func (i IntLiteral) String() string { return strconv.FormatInt(int64(i), 10) }

// HexLiteral renders as 0xNN, used for addresses and register codes
type HexLiteral uint32

func (h HexLiteral) String() string { return fmt.Sprintf("0x%02X", uint32(h)) }

// Uint32Literal is for millisecond intervals which may not fit in int on the target
type Uint32Literal uint32

func (u Uint32Literal) String() string { return strconv.FormatUint(uint64(u), 10) + "UL" }

type FloatLiteral float64

func (f FloatLiteral) String() string {
	switch {
	case math.IsNaN(float64(f)):
		return "NAN"
	case math.IsInf(float64(f), 1):
		return "INFINITY"
	case math.IsInf(float64(f), -1):
		return "-INFINITY"
	}
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s + "f"
}

type BoolLiteral bool

func (b BoolLiteral) String() string {
	if b {
		return "true"
	}
	return "false"
}

type StringLiteral string

func (s StringLiteral) String() string { return strconv.Quote(string(s)) }

// ArrayInitializer renders braced list `{a, b}`
type ArrayInitializer []Expression

func (a ArrayInitializer) String() string {
	return "{" + joinExpressions(a) + "}"
}

// TemplateArguments are rendered between angle brackets. Empty list renders `<>`.
type TemplateArguments []string

func (t TemplateArguments) String() string {
	return "<" + strings.Join(t, ", ") + ">"
}

// New is an inline `new Type(args)` expression, used where object does not need its own variable.
type New struct {
	Type         *Class
	TemplateArgs TemplateArguments
	Args         []Expression
}

func (n New) String() string {
	t := n.Type.String()
	if n.Type.Template() || len(n.TemplateArgs) > 0 {
		t += n.TemplateArgs.String()
	}
	return "new " + t + "(" + joinExpressions(n.Args) + ")"
}

func joinExpressions(e []Expression) string {
	s := make([]string, len(e))
	for i, v := range e {
		s[i] = v.String()
	}
	return strings.Join(s, ", ")
}
