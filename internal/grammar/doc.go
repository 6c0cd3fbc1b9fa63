// Package grammar provides the regex quantity engine used to turn
// semi-structured simulation logs into nested records.
//
// A Grammar is an ordered set of named Quantities. Each Quantity is either a
// leaf (regex + optional transform / dtype coercion) or grammar-valued (regex
// whose captured text is parsed recursively by a sub-grammar):
//
//	species := grammar.MustNew(
//		grammar.NewQuantity("number", `Species : *(\d+)`, grammar.WithDType(grammar.DTypeInt)),
//		grammar.NewQuantity("positions", `\d+ : *(\S+) +(\S+) +(\S+)`,
//			grammar.Repeats(), grammar.WithDType(grammar.DTypeFloat)),
//	)
//	root := grammar.MustNew(
//		grammar.NewQuantity("species", `(Species :[\s\S]+?\n\s*\n)`,
//			grammar.Repeats(), grammar.WithSub(species)),
//	)
//	rec, err := grammar.Evaluate(root, text)
//
// # Evaluation rules
//
//   - Quantities are evaluated in declaration order against the text handed to
//     the grammar (the whole file, or the capture of the enclosing quantity).
//   - Without Repeats only the first match is used; with Repeats all
//     non-overlapping matches are collected in text order.
//   - No match means the key is absent from the record. It is never an error.
//   - A failing coercion or transform is a QuantityError. With PolicySkip the
//     failure is logged and the quantity is left absent; with PolicyFail the
//     errors are joined and returned next to the partial record.
//   - A unit wraps the final value in units.Quantity.
package grammar
