package parse

import "errors"

// Configuration-level errors are surfaced before any work is submitted.
// Per-file runtime faults never carry these; they reduce the output row
// count instead.
var (
	// ErrUnresolvedPattern indicates a requested variable name that matches
	// no scanned variable or pattern.
	ErrUnresolvedPattern = errors.New("requested variable matches no scanned pattern")

	// ErrDuplicateVariable indicates two requested variables resolving to
	// the same output name.
	ErrDuplicateVariable = errors.New("duplicate variable definition")

	// ErrNoVariables indicates an empty request list.
	ErrNoVariables = errors.New("no variables requested")
)
