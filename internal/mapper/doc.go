// Package mapper populates archive sections from parsed records.
//
// A Mapper walks the schema graph starting at the target section. For every
// declared field it looks up the rule of the active source tag, evaluates the
// rule expression against the current source node and writes the result:
//
//   - quantities and single sub-sections are overwritten;
//   - repeated sub-sections get one new sub-section per element of a sequence
//     value (fan-out), appended after the existing ones;
//   - with ModeMergeLast the first element is merged into the last existing
//     sub-section instead.
//
// A sub-section without a field rule falls back to the rule declared for the
// sub-section type itself ("Section" instead of "Section.field"). Sub-sections
// without any rule are not visited.
//
// Absent values are skipped silently. Transform failures and panics are
// recovered per field, logged, and returned as warnings; they never abort the
// mapping of other fields.
package mapper
