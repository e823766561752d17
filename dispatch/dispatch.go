// Package dispatch executes a batch of tool calls in parallel with a bounded
// worker pool, per-tool circuit breakers and a single retry on execution
// crashes. Results are collected in completion order, each tagged with its
// originating call so the reasoning loop can re-linearize observations.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/executor"
	"github.com/hupe1980/nova/logging"
)

// Worker pool bounds. Turbo mode doubles the fan-out.
const (
	DefaultWorkers = 4
	TurboWorkers   = 8
)

// Result pairs a tool call with its normalized outcome.
type Result struct {
	Call   core.ToolCall
	Result core.ToolResult
}

// Options configures a Dispatcher.
type Options struct {
	// MaxWorkers bounds parallel tool execution. Zero selects DefaultWorkers.
	MaxWorkers int
	// Breaker holds the per-session circuit state. Nil constructs a fresh
	// breaker with the default threshold.
	Breaker *Breaker
	// Callbacks receives synchronous tool_start / tool_end events.
	Callbacks core.Callbacks
	// Logger may be nil.
	Logger logging.Logger
}

// Dispatcher fans tool calls out to the executor.
type Dispatcher struct {
	exec       *executor.Executor
	breaker    *Breaker
	maxWorkers int
	callbacks  core.Callbacks
	logger     logging.Logger
}

// New constructs a dispatcher around exec.
func New(exec *executor.Executor, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{MaxWorkers: DefaultWorkers, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = DefaultWorkers
	}
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(DefaultBreakerThreshold)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Dispatcher{
		exec:       exec,
		breaker:    opts.Breaker,
		maxWorkers: opts.MaxWorkers,
		callbacks:  opts.Callbacks,
		logger:     opts.Logger,
	}
}

// Breaker exposes the dispatcher's circuit state, mainly for tests and the
// task runner.
func (d *Dispatcher) Breaker() *Breaker { return d.breaker }

// Dispatch executes all calls from one model response in parallel, bounded by
// the worker pool. Results arrive in completion order; each carries its
// originating call for deterministic aggregation by the caller.
//
// Cancellation is cooperative: a cancelled context stops new submissions, but
// in-flight calls run to completion and their results are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []core.ToolCall) []Result {
	n := len(calls)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []Result{d.dispatchOne(ctx, calls[0])}
	}

	workers := d.maxWorkers
	if n < workers {
		workers = n
	}

	var mu sync.Mutex
	results := make([]Result, 0, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, call := range calls {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := d.dispatchOne(gctx, call)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Debug("dispatch.batch.complete", "count", n, "parallelism", workers)
	return results
}

// DispatchSingle executes one call through the full breaker + retry path.
// Used by the task runner for tool-bound steps.
func (d *Dispatcher) DispatchSingle(ctx context.Context, call core.ToolCall) Result {
	return d.dispatchOne(ctx, call)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, call core.ToolCall) Result {
	if d.breaker.Open(call.Tool) {
		d.logger.Warn("dispatch.circuit.open", "tool", call.Tool)
		return Result{Call: call, Result: core.Failure("Circuit Breaker Open: Tool '%s' failed too many times.", call.Tool)}
	}

	d.callbacks.EmitStatus(core.StatusToolStart, call.Tool, call.Args)

	result, err := d.exec.Execute(ctx, call.Tool, call.Args)
	if err != nil {
		d.logger.Warn("dispatch.retry", "tool", call.Tool, "error", err.Error())
		result, err = d.exec.Execute(ctx, call.Tool, call.Args)
	}
	if err != nil {
		result = core.Failure("Tool execution crashed: %v", err)
	}

	if result.Success {
		d.breaker.RecordSuccess(call.Tool)
	} else {
		d.breaker.RecordFailure(call.Tool)
	}

	d.callbacks.EmitStatus(core.StatusToolEnd, call.Tool, result)
	return Result{Call: call, Result: result}
}

// FormatObservation renders a batch of results as the observation block fed
// back to the model.
func FormatObservation(results []Result) string {
	var out string
	for _, r := range results {
		if r.Result.Success {
			out += fmt.Sprintf("✓ %s: %v\n", r.Call.Tool, r.Result.Result)
		} else {
			out += fmt.Sprintf("✗ %s failed: %s\n", r.Call.Tool, r.Result.Error)
		}
	}
	return out
}
