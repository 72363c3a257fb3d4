package pkgmgr

import (
	"context"
	"fmt"

	"github.com/danmuck/rolectl/internal/roles"
	"github.com/rs/zerolog/log"
)

// Mode records which stage decided a Result.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeBulk       Mode = "bulk"
	ModeIndividual Mode = "individual"
)

// Result is the outcome of one Apply call. Every input tool appears in
// exactly one of Succeeded or Failed.
type Result struct {
	Verb      Verb              `json:"verb" yaml:"verb"`
	Mode      Mode              `json:"mode" yaml:"mode"`
	Succeeded roles.Set         `json:"succeeded" yaml:"succeeded"`
	Failed    roles.Set         `json:"failed" yaml:"failed"`
	Errors    map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// OK reports whether no tool failed.
func (r Result) OK() bool { return r.Failed.Empty() }

// Total returns the number of tools covered by the result.
func (r Result) Total() int { return r.Succeeded.Len() + r.Failed.Len() }

// Executor applies a verb to a tool set: one bulk invocation, then one
// invocation per tool if the bulk call fails.
type Executor struct {
	invoker Invoker
}

// NewExecutor wraps an Invoker.
func NewExecutor(invoker Invoker) *Executor {
	return &Executor{invoker: invoker}
}

type stage int

const (
	stageBulk stage = iota
	stageIndividual
	stageDone
)

type batchRun struct {
	verb      Verb
	tools     []string
	invoker   Invoker
	mode      Mode
	succeeded []string
	failed    []string
	errs      map[string]string
	launches  int
	launchErr error
}

// Apply runs verb over toolSet. The returned error is non-nil only when no
// invocation could be launched at all; the result then lists every tool as
// failed.
func (e *Executor) Apply(ctx context.Context, verb Verb, toolSet roles.Set) (Result, error) {
	if toolSet.Empty() {
		return Result{Verb: verb, Mode: ModeNone}, nil
	}

	run := &batchRun{
		verb:    verb,
		invoker: e.invoker,
		errs:    make(map[string]string),
	}
	for _, tool := range toolSet.Slice() {
		if err := checkArgument(tool); err != nil {
			run.fail(tool, err)
			continue
		}
		run.tools = append(run.tools, tool)
	}
	if len(run.tools) == 0 {
		run.mode = ModeNone
		return run.finish()
	}
	for st := stageBulk; st != stageDone; {
		st = run.step(ctx, st)
	}
	return run.finish()
}

func (r *batchRun) step(ctx context.Context, st stage) stage {
	switch st {
	case stageBulk:
		return r.bulk(ctx)
	case stageIndividual:
		r.individual(ctx)
		return stageDone
	default:
		return stageDone
	}
}

func (r *batchRun) bulk(ctx context.Context) stage {
	log.Info().Str("verb", string(r.verb)).Strs("tools", r.tools).Msg("pkgmgr bulk attempt")
	err := r.invoker.Invoke(ctx, r.verb, r.tools)
	if err == nil {
		r.mode = ModeBulk
		r.succeeded = append(r.succeeded, r.tools...)
		return stageDone
	}
	r.noteLaunch(err)
	log.Warn().Err(err).Str("verb", string(r.verb)).Int("tools", len(r.tools)).
		Msg("pkgmgr bulk attempt failed; falling back to individual invocations")
	return stageIndividual
}

func (r *batchRun) individual(ctx context.Context) {
	r.mode = ModeIndividual
	for _, tool := range r.tools {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.fail(tool, ctxErr)
			continue
		}
		err := r.invoker.Invoke(ctx, r.verb, []string{tool})
		if err == nil {
			log.Info().Str("verb", string(r.verb)).Str("tool", tool).Msg("pkgmgr individual invocation succeeded")
			r.succeeded = append(r.succeeded, tool)
			continue
		}
		r.noteLaunch(err)
		r.fail(tool, err)
	}
}

func (r *batchRun) fail(tool string, err error) {
	log.Error().Err(err).Str("verb", string(r.verb)).Str("tool", tool).Msg("pkgmgr tool failed")
	r.failed = append(r.failed, tool)
	r.errs[tool] = err.Error()
}

func (r *batchRun) noteLaunch(err error) {
	if IsLaunch(err) {
		r.launches++
		if r.launchErr == nil {
			r.launchErr = err
		}
	}
}

func (r *batchRun) finish() (Result, error) {
	res := Result{
		Verb:      r.verb,
		Mode:      r.mode,
		Succeeded: roles.NewSet(r.succeeded...),
		Failed:    roles.NewSet(r.failed...),
	}
	if len(r.errs) > 0 {
		res.Errors = r.errs
	}
	// r.tools holds only names that reached the invoker. Bulk launch plus one
	// launch per tool means nothing ever started.
	if r.mode == ModeIndividual && r.launches == len(r.tools)+1 {
		return res, fmt.Errorf("pkgmgr: %s: no invocation could be started: %w", r.verb, r.launchErr)
	}
	return res, nil
}
