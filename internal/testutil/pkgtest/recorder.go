// Package pkgtest provides a recording package-manager Invoker for tests.
package pkgtest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/danmuck/rolectl/internal/pkgmgr"
)

// Call is one recorded invocation.
type Call struct {
	Verb  pkgmgr.Verb
	Tools []string
}

// Outcome decides the result of one invocation; nil means success.
type Outcome func(verb pkgmgr.Verb, tools []string) error

// Recorder records invocations and answers them from Outcome.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	Outcome Outcome
}

// NewRecorder returns a Recorder that succeeds unless outcome says otherwise.
func NewRecorder(outcome Outcome) *Recorder {
	return &Recorder{Outcome: outcome}
}

func (r *Recorder) Invoke(_ context.Context, verb pkgmgr.Verb, tools []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Verb: verb, Tools: slices.Clone(tools)})
	outcome := r.Outcome
	r.mu.Unlock()
	if outcome == nil {
		return nil
	}
	return outcome(verb, tools)
}

// Calls returns a copy of the recorded invocations in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	for i, c := range r.calls {
		out[i] = Call{Verb: c.Verb, Tools: slices.Clone(c.Tools)}
	}
	return out
}

// CallsFor returns the recorded invocations for one verb.
func (r *Recorder) CallsFor(verb pkgmgr.Verb) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Verb == verb {
			out = append(out, c)
		}
	}
	return out
}

// FailTools fails every invocation that includes one of names, so a bulk
// call containing a bad tool fails and only that tool fails individually.
func FailTools(names ...string) Outcome {
	return func(verb pkgmgr.Verb, tools []string) error {
		for _, tool := range tools {
			if slices.Contains(names, tool) {
				return &pkgmgr.ExitError{Verb: verb, ExitCode: 1, Stderr: "target not found: " + tool}
			}
		}
		return nil
	}
}

// FailBulk fails any invocation with more than one tool.
func FailBulk() Outcome {
	return func(verb pkgmgr.Verb, tools []string) error {
		if len(tools) > 1 {
			return &pkgmgr.ExitError{Verb: verb, ExitCode: 1, Stderr: "conflicting packages"}
		}
		return nil
	}
}

// Unlaunchable fails every invocation as if the helper binary were missing.
func Unlaunchable() Outcome {
	return func(verb pkgmgr.Verb, _ []string) error {
		return &pkgmgr.LaunchError{Verb: verb, Err: errors.New("exec: \"sudo\": executable file not found in $PATH")}
	}
}
