// Package schema builds the definition graph of the archive structs by
// reflection.
//
// Key types:
//   - Section: a struct type with its declared fields
//   - Field: archive name, kind (quantity / section / repeated section), unit flag
//   - Graph: all sections reachable from the registered roots
package schema
