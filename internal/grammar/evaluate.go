package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"simulation-parsers/internal/units"
)

// Policy decides what happens to a quantity whose text cannot be converted.
type Policy int

const (
	// PolicySkip logs the failure and leaves the quantity absent.
	PolicySkip Policy = iota
	// PolicyFail collects the failures and returns them from Evaluate.
	PolicyFail
)

// QuantityError reports a coercion or transform failure for one quantity.
type QuantityError struct {
	Path string // dotted path of the quantity, e.g. "groundstate.final.energy_total"
	Text string // offending capture, truncated
	Err  error
}

// Error implements error.
func (e *QuantityError) Error() string {
	return fmt.Sprintf("quantity %s: cannot convert %q: %v", e.Path, e.Text, e.Err)
}

// Unwrap returns the underlying error.
func (e *QuantityError) Unwrap() error {
	return e.Err
}

// Evaluator runs grammars against text.
type Evaluator struct {
	Policy Policy
	Logger logrus.FieldLogger
}

// Evaluate runs g against text with the default evaluator (PolicySkip,
// standard logrus logger).
func Evaluate(g *Grammar, text string) (Record, error) {
	return (&Evaluator{}).Evaluate(g, text)
}

// Evaluate runs g against text. The returned record is never nil. With
// PolicyFail the error joins every QuantityError met during the run.
func (e *Evaluator) Evaluate(g *Grammar, text string) (Record, error) {
	var errs []error

	rec := e.evaluate(g, text, "", &errs)

	return rec, errors.Join(errs...)
}

func (e *Evaluator) logger() logrus.FieldLogger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}

	return e.Logger
}

func (e *Evaluator) evaluate(g *Grammar, text, prefix string, errs *[]error) Record {
	rec := Record{}
	if g == nil {
		return rec
	}

	for _, q := range g.quantities {
		path := q.Name
		if prefix != "" {
			path = prefix + "." + q.Name
		}

		val, ok, err := e.quantity(q, text, path, errs)
		if err != nil {
			qerr := &QuantityError{Path: path, Text: truncate(err.text, 60), Err: err.err}
			if e.Policy == PolicyFail {
				*errs = append(*errs, qerr)
			} else {
				e.logger().WithField("quantity", path).Warn(qerr.Error())
			}

			continue
		}

		if ok {
			rec[q.Name] = val
		}
	}

	return rec
}

type captureError struct {
	text string
	err  error
}

// quantity evaluates one quantity. ok is false when nothing matched.
func (e *Evaluator) quantity(q *Quantity, text, path string, errs *[]error) (any, bool, *captureError) {
	if !q.Repeats {
		m := q.Pattern.FindStringSubmatch(text)
		if m == nil {
			return nil, false, nil
		}

		v, cerr := e.capture(q, m[1:], path, errs)
		if cerr != nil {
			return nil, false, cerr
		}

		return v, true, nil
	}

	matches := q.Pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, false, nil
	}

	out := make([]any, 0, len(matches))

	for _, m := range matches {
		v, cerr := e.capture(q, m[1:], path, errs)
		if cerr != nil {
			return nil, false, cerr
		}

		out = append(out, v)
	}

	return out, true, nil
}

// capture converts the groups of one match. Groups that did not participate
// in the match stay in place as empty strings, so multi-group values keep
// their positions; sub-grammars and transforms see the joined text of the
// groups that matched.
func (e *Evaluator) capture(q *Quantity, groups []string, path string, errs *[]error) (any, *captureError) {
	if q.Sub != nil {
		return e.evaluate(q.Sub, strings.Join(groups, ""), path, errs), nil
	}

	var (
		val any
		err error
	)

	switch {
	case q.Transform != nil:
		val, err = q.Transform(strings.Join(nonEmpty(groups), " "))
	case len(groups) == 1:
		val, err = coerce(groups[0], q.DType)
	default:
		val, err = coerceGroups(groups, q.DType)
	}

	if err != nil {
		return nil, &captureError{text: strings.Join(groups, " "), err: err}
	}

	if q.Unit != "" {
		if _, tagged := val.(units.Quantity); !tagged {
			val = units.New(val, q.Unit)
		}
	}

	return val, nil
}

func nonEmpty(groups []string) []string {
	out := make([]string, 0, len(groups))

	for _, g := range groups {
		if g != "" {
			out = append(out, g)
		}
	}

	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
