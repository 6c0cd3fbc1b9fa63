// Package orchestrate drives one parsing run of a main file.
//
// A Run moves through the states
//
//	Idle -> MainParsed -> AuxParsed* -> ChildSpawned? -> Done
//
// The main file is read first; an unreadable main file is the only fatal
// error of a run (FatalInputError). Auxiliary files are optional: a missing
// one is logged at debug level and its sections stay absent, a malformed one
// yields an empty record. Runs that create child entries (FHI-aims GW) spawn
// them after the auxiliary files and link them with a workflow entry.
package orchestrate
