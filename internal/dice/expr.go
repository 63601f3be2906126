package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidExpr indicates a dice expression could not be parsed.
var ErrInvalidExpr = errors.New("dice expression must look like d20, 2d6, or 2d6+3")

// Expr is a parsed dice expression such as "2d6+3".
type Expr struct {
	Count    int
	Sides    int
	Modifier int
}

// ParseExpr parses expressions of the form NdS, NdS+M, or NdS-M.
// The leading count defaults to 1 when omitted ("d20" means "1d20").
func ParseExpr(raw string) (Expr, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	countPart, rest, found := strings.Cut(trimmed, "d")
	if !found || rest == "" {
		return Expr{}, ErrInvalidExpr
	}

	count := 1
	if countPart != "" {
		n, err := strconv.Atoi(countPart)
		if err != nil || n <= 0 {
			return Expr{}, ErrInvalidExpr
		}
		count = n
	}

	sidesPart := rest
	modifier := 0
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesPart = rest[:i]
		m, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expr{}, ErrInvalidExpr
		}
		modifier = m
	}

	sides, err := strconv.Atoi(sidesPart)
	if err != nil || sides <= 0 {
		return Expr{}, ErrInvalidExpr
	}

	return Expr{Count: count, Sides: sides, Modifier: modifier}, nil
}

// String formats the expression canonically, e.g. "2d6+3" or "1d4-1".
func (e Expr) String() string {
	out := fmt.Sprintf("%dd%d", e.Count, e.Sides)
	switch {
	case e.Modifier > 0:
		out += fmt.Sprintf("+%d", e.Modifier)
	case e.Modifier < 0:
		out += strconv.Itoa(e.Modifier)
	}
	return out
}

// ExprResult captures a rolled expression. Total includes the modifier.
type ExprResult struct {
	Expr    Expr
	Results []int
	Total   int
}

// RollExpr rolls a parsed expression against the provided source.
func RollExpr(src Source, expr Expr) (ExprResult, error) {
	result, err := RollWithSource(src, []Spec{{Sides: expr.Sides, Count: expr.Count}})
	if err != nil {
		return ExprResult{}, err
	}

	return ExprResult{
		Expr:    expr,
		Results: result.Rolls[0].Results,
		Total:   result.Total + expr.Modifier,
	}, nil
}

// String formats a rolled expression for the narrative log,
// e.g. "2d6+3: [4 2] +3 = 9".
func (r ExprResult) String() string {
	faces := make([]string, len(r.Results))
	for i, v := range r.Results {
		faces[i] = strconv.Itoa(v)
	}

	out := fmt.Sprintf("%s: [%s]", r.Expr, strings.Join(faces, " "))
	switch {
	case r.Expr.Modifier > 0:
		out += fmt.Sprintf(" +%d", r.Expr.Modifier)
	case r.Expr.Modifier < 0:
		out += fmt.Sprintf(" -%d", -r.Expr.Modifier)
	}
	return fmt.Sprintf("%s = %d", out, r.Total)
}
