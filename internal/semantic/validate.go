package semantic

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sells-group/transform-cli/internal/model"
)

const maxNameLength = 250

// Validate checks semantic model and metric definitions. The first problem
// found is returned as a *ParsingError.
func Validate(g Graph) error {
	measures := make(map[string]bool)
	for _, sm := range g.SemanticModels() {
		if err := validateName("semantic model", sm.Name); err != nil {
			return err
		}
		if sm.Model == "" {
			return &ParsingError{Msg: fmt.Sprintf("semantic model '%s' must reference a model", sm.Name)}
		}
		for _, ms := range sm.Measures {
			measures[ms.Name] = true
		}
	}

	metrics := make(map[string]bool)
	for _, mt := range g.Metrics() {
		metrics[mt.Name] = true
	}

	for _, mt := range g.Metrics() {
		if err := validateName("metric", mt.Name); err != nil {
			return err
		}
		if err := validateMetric(mt, measures, metrics); err != nil {
			return err
		}
	}
	return nil
}

func validateName(kind, name string) error {
	fail := func(reason string) error {
		return &ParsingError{Msg: fmt.Sprintf("%s name '%s' %s", kind, name, reason)}
	}
	switch {
	case name == "":
		return fail("must not be empty")
	case strings.ContainsRune(name, ' '):
		return fail("cannot contain spaces")
	case len(name) > maxNameLength:
		return fail(fmt.Sprintf("cannot contain more than %d characters", maxNameLength))
	}
	for _, r := range name {
		if r != '_' && !isASCIILetter(r) && !unicode.IsDigit(r) {
			return fail("must contain only letters, numbers and underscores")
		}
	}
	if !isASCIILetter(rune(name[0])) {
		return fail("must begin with a letter")
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func validateMetric(mt *model.Metric, measures, metrics map[string]bool) error {
	tp := mt.TypeParams
	fail := func(format string, args ...any) error {
		return &ParsingError{Msg: fmt.Sprintf("metric '%s': ", mt.Name) + fmt.Sprintf(format, args...)}
	}

	switch mt.Type {
	case model.MetricTypeSimple, model.MetricTypeCumulative, model.MetricTypeConversion:
		if tp.Measure == nil || tp.Measure.Name == "" {
			return fail("%s metrics require a measure", mt.Type)
		}
		if !measures[tp.Measure.Name] {
			return fail("measure '%s' is not defined on any semantic model", tp.Measure.Name)
		}
	case model.MetricTypeRatio:
		if tp.Numerator == nil || tp.Denominator == nil {
			return fail("ratio metrics require a numerator and a denominator")
		}
		for _, in := range []string{tp.Numerator.Name, tp.Denominator.Name} {
			if !metrics[in] {
				return fail("input metric '%s' is not defined", in)
			}
		}
	case model.MetricTypeDerived:
		if tp.Expr == "" {
			return fail("derived metrics require an expr")
		}
		if len(tp.Metrics) == 0 {
			return fail("derived metrics require at least one input metric")
		}
		for _, in := range tp.Metrics {
			if !metrics[in.Name] {
				return fail("input metric '%s' is not defined", in.Name)
			}
		}
	default:
		return fail("unknown metric type '%s'", mt.Type)
	}
	return nil
}
