package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/openportal/internal/runtime"
	"github.com/aretw0/openportal/pkg/actions"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/dsl"
	"github.com/aretw0/openportal/pkg/registry"
)

// calls counts handler invocations per node ID.
type calls struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *calls) inc(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n[id]++
}

func (c *calls) get(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[id]
}

type fixture struct {
	runner *runtime.Runner
	reg    *registry.Registry
	calls  *calls
}

func newFixture(t *testing.T, opts ...runtime.Option) *fixture {
	t.Helper()
	reg := registry.New()
	actions.RegisterBuiltins(reg)
	c := &calls{n: map[string]int{}}

	// echo returns params.value and counts the call under params.id.
	reg.RegisterFunc("echo", func(_ context.Context, p map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
		id, _ := p["id"].(string)
		c.inc(id)
		return domain.ValueOutput(p["value"]), nil
	})
	reg.RegisterFunc("fail", func(_ context.Context, p map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
		id, _ := p["id"].(string)
		c.inc(id)
		return domain.Output{}, errors.New("boom")
	})
	reg.RegisterFunc("panic", func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		panic("kaboom")
	})

	return &fixture{runner: runtime.NewRunner(reg, opts...), reg: reg, calls: c}
}

func echo(id string, value any) *dsl.Builder {
	return dsl.Action(id, "echo").With("id", id).With("value", value)
}

func fail(id string) *dsl.Builder {
	return dsl.Action(id, "fail").With("id", id)
}

func run(t *testing.T, f *fixture, node domain.ActionNode, ectx *domain.ExecutionContext) *domain.Execution {
	t.Helper()
	exec, err := f.runner.Run(context.Background(), &node, ectx)
	require.NoError(t, err)
	return exec
}

func TestSequence_FailFast(t *testing.T) {
	f := newFixture(t)
	node := dsl.Sequence("seq", echo("A", 1), fail("B"), echo("C", 3)).Build()

	exec := run(t, f, node, nil)

	assert.Equal(t, domain.StatusError, exec.Result.Status)
	assert.Equal(t, "B", exec.Result.NodeID)
	assert.Equal(t, domain.ErrorKindHandlerException, exec.Result.ErrorKind)
	assert.Equal(t, "boom", exec.Result.Message)
	assert.Equal(t, 1, f.calls.get("A"))
	assert.Equal(t, 1, f.calls.get("B"))
	assert.Zero(t, f.calls.get("C"), "C must never run")
}

func TestSequence_SkipDoesNotBreak(t *testing.T) {
	f := newFixture(t)
	node := dsl.Sequence("seq",
		echo("A", 1),
		echo("B", 2).When("false"),
		echo("C", 3),
	).Build()

	exec := run(t, f, node, nil)

	require.True(t, exec.Result.Succeeded())
	assert.Equal(t, []any{1, nil, 3}, exec.Result.Value)
	assert.Zero(t, f.calls.get("B"))
}

func TestParallel_AllOrFail(t *testing.T) {
	f := newFixture(t)
	node := dsl.Parallel("par", echo("A", 1), fail("B")).Build()

	exec := run(t, f, node, nil)

	assert.True(t, exec.Result.Failed())
	assert.Equal(t, "B", exec.Result.NodeID)
	assert.Equal(t, 1, f.calls.get("A"), "A runs even though B fails")
	assert.Equal(t, 1, f.calls.get("B"))
}

func TestParallel_SameSnapshotAndArrayOrderPatches(t *testing.T) {
	f := newFixture(t)
	node := dsl.Parallel("par",
		dsl.SetState("a", map[string]any{"winner": "a", "seenByA": "{{pageState.seenByB}}"}),
		dsl.SetState("b", map[string]any{"winner": "b", "seenByB": "start"}),
	).Build()

	exec := run(t, f, node, &domain.ExecutionContext{PageState: map[string]any{"seenByB": "initial"}})

	require.True(t, exec.Result.Succeeded())
	assert.Equal(t, "initial", exec.Context.PageState["seenByA"], "siblings see the pre-fan-out snapshot")
	assert.Equal(t, "b", exec.Context.PageState["winner"], "patches are applied in array order")
}

func TestParallel_ArrayFailureOrder(t *testing.T) {
	f := newFixture(t, runtime.WithParallelFailureOrder(runtime.FailureOrderArray))
	release := make(chan struct{})
	f.reg.RegisterFunc("slowFail", func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		<-release
		return domain.Output{}, errors.New("slow")
	})
	f.reg.RegisterFunc("fastFail", func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		defer close(release)
		return domain.Output{}, errors.New("fast")
	})

	node := dsl.Parallel("par", dsl.Action("first", "slowFail"), dsl.Action("second", "fastFail")).Build()
	exec := run(t, f, node, nil)

	assert.Equal(t, "first", exec.Result.NodeID)
	assert.Equal(t, "slow", exec.Result.Message)
}

func TestRetry_Exhaustion(t *testing.T) {
	var retries []int
	f := newFixture(t, runtime.WithHooks(domain.LifecycleHooks{
		OnRetry: func(_ context.Context, e *domain.NodeEvent) { retries = append(retries, e.Attempt) },
	}))

	node := fail("flaky").
		Retry(3, 10, domain.BackoffLinear).
		OnError(echo("handler", "{{trigger.error.kind}}")).
		Build()

	start := time.Now()
	exec := run(t, f, node, nil)

	assert.Equal(t, 3, f.calls.get("flaky"), "invoked exactly attempts times")
	assert.Equal(t, 1, f.calls.get("handler"), "onError sees only the final outcome")
	assert.Equal(t, "HandlerException", exec.Result.Value)
	assert.Equal(t, []int{2, 3}, retries)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRetry_SucceedsEventually(t *testing.T) {
	f := newFixture(t)
	attempts := 0
	f.reg.RegisterFunc("flaky", func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		attempts++
		if attempts < 2 {
			return domain.Output{}, errors.New("not yet")
		}
		return domain.ValueOutput("ok"), nil
	})

	node := dsl.Action("n", "flaky").Retry(3, 1, domain.BackoffExponential).OnError(echo("onError", nil)).Build()
	exec := run(t, f, node, nil)

	assert.True(t, exec.Result.Succeeded())
	assert.Equal(t, 2, attempts)
	assert.Zero(t, f.calls.get("onError"))
}

func TestActionNotFound_NotRetried(t *testing.T) {
	retried := false
	f := newFixture(t, runtime.WithHooks(domain.LifecycleHooks{
		OnRetry: func(context.Context, *domain.NodeEvent) { retried = true },
	}))

	exec := run(t, f, dsl.Action("x", "doesNotExist").Retry(3, 1, "").Build(), nil)

	assert.Equal(t, domain.ErrorKindActionNotFound, exec.Result.ErrorKind)
	assert.NotEmpty(t, exec.Result.Message)
	assert.False(t, retried)
}

func TestSkip_NoHandlerNoChains(t *testing.T) {
	f := newFixture(t)
	node := fail("guarded").
		When("pageState.count > 10").
		OnSuccess(echo("ok", nil)).
		OnError(echo("err", nil)).
		Build()

	exec := run(t, f, node, &domain.ExecutionContext{PageState: map[string]any{"count": 5}})

	assert.Equal(t, domain.StatusSkipped, exec.Result.Status)
	assert.Zero(t, f.calls.get("guarded"))
	assert.Zero(t, f.calls.get("ok"))
	assert.Zero(t, f.calls.get("err"))
}

func TestCondition_SecurityRejected(t *testing.T) {
	f := newFixture(t)
	exec := run(t, f, echo("x", 1).When("constructor.name === 'Object'").Build(), nil)

	assert.Equal(t, domain.ErrorKindSecurityRejected, exec.Result.ErrorKind)
	assert.Zero(t, f.calls.get("x"))
}

func TestOnSuccess_SeesPostActionContext(t *testing.T) {
	f := newFixture(t)
	node := dsl.SetState("set", map[string]any{"count": 1}).
		OnSuccess(echo("first", "{{pageState.count}}"), echo("last", "done")).
		Build()

	exec := run(t, f, node, nil)

	require.True(t, exec.Result.Succeeded())
	assert.Equal(t, "done", exec.Result.Value, "the last chain result is returned upstream")
	assert.Equal(t, 1, f.calls.get("first"))
	assert.Equal(t, 1, exec.Context.PageState["count"])
}

func TestOnError_TriggerError(t *testing.T) {
	f := newFixture(t)
	node := fail("bad").OnError(echo("handler", "{{trigger.error.nodeId}}: {{trigger.error.message}}")).Build()

	exec := run(t, f, node, nil)

	assert.True(t, exec.Result.Succeeded())
	assert.Equal(t, "bad: boom", exec.Result.Value)
}

func TestTimeout(t *testing.T) {
	f := newFixture(t)
	node := dsl.Action("slow", domain.KindDelay).With("ms", 500).Timeout(20).Build()

	start := time.Now()
	exec := run(t, f, node, nil)

	assert.Equal(t, domain.ErrorKindTimeout, exec.Result.ErrorKind)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestPanic_IsHandlerException(t *testing.T) {
	f := newFixture(t)
	exec := run(t, f, dsl.Action("p", "panic").Build(), nil)

	assert.Equal(t, domain.ErrorKindHandlerException, exec.Result.ErrorKind)
	assert.Contains(t, exec.Result.Message, "kaboom")
}

func TestConditional(t *testing.T) {
	f := newFixture(t)
	node := func() domain.ActionNode {
		return dsl.Conditional("route").
			Branch("pageState.role === 'admin'", echo("admin", "admin")).
			Branch("pageState.role === 'user'", echo("user", "user")).
			Default(echo("guest", "guest")).
			Build()
	}

	exec := run(t, f, node(), &domain.ExecutionContext{PageState: map[string]any{"role": "user"}})
	assert.Equal(t, []any{"user"}, exec.Result.Value)

	exec = run(t, f, node(), &domain.ExecutionContext{PageState: map[string]any{"role": "nobody"}})
	assert.Equal(t, []any{"guest"}, exec.Result.Value)

	noDefault := dsl.Conditional("c").Branch("false", echo("never", nil)).Build()
	exec = run(t, f, noDefault, nil)
	assert.Equal(t, domain.StatusSkipped, exec.Result.Status)
}

func TestForEach_SequentialSum(t *testing.T) {
	f := newFixture(t)
	node := dsl.ForEach("sum", []any{1, 2, 3},
		dsl.SetState("add", map[string]any{"total": "{{pageState.total}} + {{trigger.item}}"}),
		echo("seen", "{{pageState.total}}"),
	).Build()

	exec := run(t, f, node, &domain.ExecutionContext{PageState: map[string]any{"total": 0}})

	require.True(t, exec.Result.Succeeded(), exec.Result.Message)
	assert.Equal(t, float64(6), exec.Context.PageState["total"])

	iterations := exec.Result.Value.([]any)
	require.Len(t, iterations, 3)
	assert.Equal(t, float64(1), iterations[0].([]any)[1])
	assert.Equal(t, float64(3), iterations[1].([]any)[1], "item 2 sees item 1's update")
	assert.Equal(t, float64(6), iterations[2].([]any)[1])
	assert.Nil(t, exec.Context.Trigger.Index, "iteration data does not leak out")
}

func TestForEach_FailFastAcrossIterations(t *testing.T) {
	f := newFixture(t)
	f.reg.RegisterFunc("failOnTwo", func(_ context.Context, p map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
		f.calls.inc("iter")
		if p["item"] == 2 {
			return domain.Output{}, errors.New("two")
		}
		return domain.Output{}, nil
	})

	node := dsl.ForEach("loop", "{{pageState.items}}", dsl.Action("step", "failOnTwo").With("item", "{{trigger.item}}")).Build()
	exec := run(t, f, node, &domain.ExecutionContext{PageState: map[string]any{"items": []any{1, 2, 3}}})

	assert.True(t, exec.Result.Failed())
	assert.Equal(t, 2, f.calls.get("iter"))
}

func TestCancellation_LetsInFlightFinish(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	f.reg.RegisterFunc("block", func(ctx context.Context, _ map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
		close(started)
		<-release
		close(finished)
		return domain.Output{}, ctx.Err()
	})

	var cancelledEvents int
	var mu sync.Mutex
	f.runner = runtime.NewRunner(f.reg, runtime.WithHooks(domain.LifecycleHooks{
		OnCancelled: func(context.Context, *domain.NodeEvent) {
			mu.Lock()
			cancelledEvents++
			mu.Unlock()
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	node := dsl.Sequence("seq", dsl.Action("blocker", "block"), echo("after", nil)).Build()

	done := make(chan *domain.Execution)
	go func() {
		exec, err := f.runner.Run(ctx, &node, nil)
		assert.NoError(t, err)
		done <- exec
	}()

	<-started
	cancel()
	close(release)
	exec := <-done

	<-finished
	assert.Equal(t, domain.ErrorKindCancelled, exec.Result.ErrorKind)
	assert.Zero(t, f.calls.get("after"), "no further steps start after cancellation")
	assert.Equal(t, 1, cancelledEvents)
}

func TestCancellation_StopsPendingRetries(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.reg.RegisterFunc("failThenCancel", func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		f.calls.inc("attempt")
		cancel()
		return domain.Output{}, errors.New("down")
	})

	node := dsl.Action("n", "failThenCancel").Retry(5, 1000, domain.BackoffLinear).Build()
	exec, err := f.runner.Run(ctx, &node, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ErrorKindCancelled, exec.Result.ErrorKind)
	assert.Equal(t, 1, f.calls.get("attempt"))
}

func TestCancellation_DuringLastStep(t *testing.T) {
	tests := []struct {
		name string
		node domain.ActionNode
	}{
		{"sequence", dsl.Sequence("seq", dsl.SetState("mark", map[string]any{"seen": true}), dsl.Action("last", "cancelAndSucceed")).Build()},
		{"leaf root", dsl.Action("only", "cancelAndSucceed").Build()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			f.reg.RegisterFunc("cancelAndSucceed", func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
				cancel()
				return domain.ValueOutput("done"), nil
			})

			exec, err := f.runner.Run(ctx, &tt.node, nil)
			require.NoError(t, err)
			assert.True(t, exec.Result.Failed())
			assert.Equal(t, domain.ErrorKindCancelled, exec.Result.ErrorKind)
			assert.NotEmpty(t, exec.Result.Message)
		})
	}
}

func TestCancellation_KeepsCompletedPatches(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.reg.RegisterFunc("cancelAndSucceed", func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		cancel()
		return domain.Output{}, nil
	})

	node := dsl.Sequence("seq",
		dsl.SetState("mark", map[string]any{"seen": true}),
		dsl.Action("last", "cancelAndSucceed"),
	).Build()
	exec, err := f.runner.Run(ctx, &node, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ErrorKindCancelled, exec.Result.ErrorKind)
	assert.Equal(t, true, exec.Context.PageState["seen"])
}

func TestRun_MalformedTree(t *testing.T) {
	f := newFixture(t)
	node := domain.ActionNode{ID: "seq", Kind: domain.KindSequence, Params: map[string]any{"actions": 42}}

	_, err := f.runner.Run(context.Background(), &node, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedNode)

	_, err = f.runner.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedNode)
}

func TestHooks_LoadingFlag(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(prefix string) func(context.Context, *domain.NodeEvent) {
		return func(_ context.Context, e *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			if e.Loading {
				events = append(events, prefix+":"+e.NodeID)
			}
		}
	}
	f := newFixture(t, runtime.WithHooks(domain.LifecycleHooks{
		OnNodeStart:  record("start"),
		OnNodeFinish: record("finish"),
	}), runtime.WithIDGenerator(func() string { return "exec-1" }))

	node := echo("save", nil).Loading().Build()
	exec := run(t, f, node, nil)

	assert.Equal(t, "exec-1", exec.ID)
	assert.Equal(t, []string{"start:save", "finish:save"}, events)
}

func TestRegistry_ListsCombinators(t *testing.T) {
	f := newFixture(t)
	for _, kind := range []string{domain.KindSequence, domain.KindParallel, domain.KindConditional, domain.KindForEach} {
		d, ok := f.reg.Describe(kind)
		require.True(t, ok, kind)
		assert.True(t, d.Structural)
	}

	res := f.runner.Executor().Execute(context.Background(), &domain.ActionNode{ID: "s", Kind: domain.KindSequence}, domain.NewExecutionContext())
	assert.Equal(t, domain.ErrorKindHandlerException, res.ErrorKind)
}
