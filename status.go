package mibc

import (
	"slices"
)

// Status is the closed tag set describing what happened to one module
// name during a Compile run.
type Status int

const (
	// StatusCompiled means the module was transformed and stored.
	StatusCompiled Status = iota
	// StatusUntouched means a fresh compiled artifact already exists.
	StatusUntouched
	// StatusFailed means transformation failed; Outcome.Err has details.
	StatusFailed
	// StatusUnprocessed means work was done but withheld because the
	// run aborted on other failures.
	StatusUnprocessed
	// StatusMissing means no source text was found anywhere.
	StatusMissing
	// StatusBorrowed means compilation failed but a precompiled
	// substitute was accepted instead.
	StatusBorrowed
)

var statusNames = map[Status]string{
	StatusCompiled:    "compiled",
	StatusUntouched:   "untouched",
	StatusFailed:      "failed",
	StatusUnprocessed: "unprocessed",
	StatusMissing:     "missing",
	StatusBorrowed:    "borrowed",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Outcome is the final result attached to one module name: a status tag
// plus reporting metadata. The tag alone governs control flow; the
// metadata exists for diagnostics and index building.
type Outcome struct {
	Status Status

	// Provenance of the module text or borrowed artifact.
	Path  string
	File  string
	Alias string

	// Semantic facts, populated for compiled modules.
	OID        string
	Identity   string
	Revision   string
	Enterprise string
	Compliance []string
	Imports    []string

	// Err is set for StatusFailed.
	Err error
}

// Results maps every module name touched during a run to its outcome.
type Results map[string]Outcome

// WithStatus returns the module names carrying the given status, sorted.
func (r Results) WithStatus(s Status) []string {
	var names []string
	for name, o := range r {
		if o.Status == s {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Failed reports whether any module carries StatusFailed or StatusMissing.
func (r Results) Failed() bool {
	for _, o := range r {
		if o.Status == StatusFailed || o.Status == StatusMissing {
			return true
		}
	}
	return false
}
