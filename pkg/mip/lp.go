package mip

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// ToLP renders the model in CPLEX LP format. The objective constant is left out.
func (model *Model) ToLP() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "\\ %v\n", model.Name)

	builder.WriteString("Minimize\n obj:")
	writeTerms(&builder, model, model.objective.Terms)
	builder.WriteString("\nSubject To\n")
	for i, constraint := range model.constraints {
		fmt.Fprintf(&builder, " c%d:", i)
		writeTerms(&builder, model, constraint.Expr.Terms)
		fmt.Fprintf(&builder, " %v %v\n", constraint.Sense, formatNumber(constraint.Rhs))
	}

	builder.WriteString("Bounds\n")
	for i, info := range model.vars {
		if info.Type == Binary {
			continue
		}
		fmt.Fprintf(&builder, " %v <= %v <= %v\n", formatBound(info.Lower), model.LPName(Var(i)), formatBound(info.Upper))
	}

	binaries := lo.Filter(lo.Range(len(model.vars)), func(i int, _ int) bool { return model.vars[i].Type == Binary })
	generals := lo.Filter(lo.Range(len(model.vars)), func(i int, _ int) bool { return model.vars[i].Type == Integer })
	writeSection(&builder, model, "Binaries", binaries)
	writeSection(&builder, model, "Generals", generals)

	if len(model.sos) > 0 {
		builder.WriteString("SOS\n")
		for i, set := range model.sos {
			fmt.Fprintf(&builder, " s%d: S1::", i)
			for j, v := range set.Vars {
				fmt.Fprintf(&builder, " %v:%d", model.LPName(v), j+1)
			}
			builder.WriteString("\n")
		}
	}
	builder.WriteString("End\n")
	return builder.String()
}

// LPName is the variable name restricted to characters every LP reader accepts.
func (model *Model) LPName(v Var) string {
	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return '_'
	}, model.vars[v].Name)
	name = strings.TrimRight(name, "_")
	return fmt.Sprintf("%v_%d", name, v)
}

func writeTerms(builder *strings.Builder, model *Model, terms []Term) {
	if len(terms) == 0 {
		builder.WriteString(" 0")
		return
	}
	for i, term := range terms {
		sign := "+"
		coef := term.Coef
		if coef < 0 {
			sign, coef = "-", -coef
		}
		if i == 0 && sign == "+" {
			sign = ""
		}
		fmt.Fprintf(builder, " %v %v %v", sign, formatNumber(coef), model.LPName(term.Var))
		if i%8 == 7 {
			builder.WriteString("\n ")
		}
	}
}

func writeSection(builder *strings.Builder, model *Model, title string, indexes []int) {
	if len(indexes) == 0 {
		return
	}
	builder.WriteString(title + "\n")
	slices.Sort(indexes)
	for _, i := range indexes {
		fmt.Fprintf(builder, " %v\n", model.LPName(Var(i)))
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func formatBound(value float64) string {
	switch {
	case math.IsInf(value, 1):
		return "+inf"
	case math.IsInf(value, -1):
		return "-inf"
	default:
		return formatNumber(value)
	}
}
