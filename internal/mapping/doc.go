// Package mapping provides the YAML rule files, the expression language and
// the transform registry used to map parsed records into archive sections.
//
// Rules are declared per source tag. A target is either "Section.field" (the
// rule of one field) or "Section" (the rule used for a sub-section of that
// type when the parent field has no rule of its own).
//
// # Schema Overview
//
//	version: "1"
//	program: exciting
//	tags:
//	  info:
//	    Simulation.program: .@
//	    Program.version: .program_version
//	    ModelMethod.xc_functionals: get_xc_functionals(.type)
//	    TotalEnergy.value:
//	      expr: .final.energy_total || .scf_iteration[-1].energy_total
//	      unit: hartree
//	  eigval:
//	    # call as mapping
//	    Outputs.electronic_eigenvalues:
//	      func: get_eigenvalues
//	      args: [.@]
//	    # call as [func, [args], {kwargs}] triple
//	    ElectronicEigenvalues.n_bands: [length, [.eigenvalues]]
//
// # Expression Syntax
//
//	expr     := pipe ( "||" pipe )*          fallback chain, short-circuit
//	pipe     := term ( "|" path )*           right side starts at the left result
//	term     := call | literal | path
//	call     := IDENT "(" [arg ("," arg)*] ")"
//	arg      := IDENT "=" value | value
//	value    := literal | path
//	literal  := 'string' | NUMBER | "[" 'string' ("," 'string')* "]"
//	path     := ["."] [segment] ( "." segment | "[" index "]" )*
//	segment  := IDENT | "@" | "quoted key"
//	index    := INT | "*" | "?" segment "==" literal
//
// A leading "." starts at the current node, otherwise at the root of the
// active record. "@" is the node itself. Negative indexes count from the end.
// "[*]" and filters start a projection: the following steps apply to every
// element and absent results are dropped. A pipe ends the projection.
// length(x) is built in. Any other call is resolved in the TransformRegistry.
//
// An absent path yields nil and is never an error. The right branch of "||"
// is evaluated only when the left one is nil or empty.
package mapping
