package dsl

import (
	"github.com/google/uuid"

	"github.com/aretw0/openportal/pkg/domain"
)

// Builder configures one action node.
type Builder struct {
	node      domain.ActionNode
	children  []*Builder
	branches  []branch
	fallback  []*Builder
	onSuccess []*Builder
	onError   []*Builder
}

type branch struct {
	condition string
	actions   []*Builder
}

// Action starts a node of the given kind.
func Action(id, kind string) *Builder {
	return &Builder{node: domain.ActionNode{ID: id, Kind: kind}}
}

// Sequence builds a sequence combinator.
func Sequence(id string, children ...*Builder) *Builder {
	b := Action(id, domain.KindSequence)
	b.children = children
	return b
}

// Parallel builds a parallel combinator.
func Parallel(id string, children ...*Builder) *Builder {
	b := Action(id, domain.KindParallel)
	b.children = children
	return b
}

// Conditional builds a conditional combinator; add arms with Branch and Default.
func Conditional(id string) *Builder {
	return Action(id, domain.KindConditional)
}

// ForEach builds a forEach combinator. items is a list or a template string.
func ForEach(id string, items any, actions ...*Builder) *Builder {
	b := Action(id, domain.KindForEach).With(domain.ParamItems, items)
	b.children = actions
	return b
}

// SetState builds a setState node over pageState.
func SetState(id string, values map[string]any) *Builder {
	return Action(id, domain.KindSetState).Params(values)
}

// Params replaces the params wholesale.
func (b *Builder) Params(params map[string]any) *Builder {
	b.node.Params = make(map[string]any, len(params))
	for k, v := range params {
		b.node.Params[k] = v
	}
	return b
}

// With sets one param.
func (b *Builder) With(key string, value any) *Builder {
	if b.node.Params == nil {
		b.node.Params = map[string]any{}
	}
	b.node.Params[key] = value
	return b
}

// When sets the node condition.
func (b *Builder) When(condition string) *Builder {
	b.node.Condition = condition
	return b
}

// Loading marks the node as one the widget layer should show progress for.
func (b *Builder) Loading() *Builder {
	b.node.Loading = true
	return b
}

// Timeout sets the handler timeout in milliseconds.
func (b *Builder) Timeout(ms int) *Builder {
	b.node.Timeout = ms
	return b
}

// Retry sets the retry policy. attempts counts every invocation.
func (b *Builder) Retry(attempts, delayMs int, backoff domain.Backoff) *Builder {
	b.node.Retry = &domain.RetryPolicy{Attempts: attempts, Delay: delayMs, Backoff: backoff}
	return b
}

// OnSuccess appends to the success chain.
func (b *Builder) OnSuccess(nodes ...*Builder) *Builder {
	b.onSuccess = append(b.onSuccess, nodes...)
	return b
}

// OnError appends to the error chain.
func (b *Builder) OnError(nodes ...*Builder) *Builder {
	b.onError = append(b.onError, nodes...)
	return b
}

// Branch adds an arm to a conditional node.
func (b *Builder) Branch(condition string, actions ...*Builder) *Builder {
	b.branches = append(b.branches, branch{condition: condition, actions: actions})
	return b
}

// Default sets the actions a conditional node runs when no branch matches.
func (b *Builder) Default(actions ...*Builder) *Builder {
	b.fallback = actions
	return b
}

// Build returns the finished node tree. Builders can be built more than once.
func (b *Builder) Build() domain.ActionNode {
	n := b.node
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	params := make(map[string]any, len(n.Params)+2)
	for k, v := range n.Params {
		params[k] = v
	}

	switch domain.CombinatorOf(n.Kind) {
	case domain.CombinatorSequence, domain.CombinatorParallel:
		params[domain.ParamActions] = buildAll(b.children)
	case domain.CombinatorForEach:
		params[domain.ParamItemActions] = buildAll(b.children)
	case domain.CombinatorConditional:
		branches := make([]domain.Branch, len(b.branches))
		for i, br := range b.branches {
			branches[i] = domain.Branch{Condition: br.condition, Actions: buildAll(br.actions)}
		}
		params[domain.ParamBranches] = branches
		if len(b.fallback) > 0 {
			params[domain.ParamDefault] = buildAll(b.fallback)
		}
	}
	if len(params) > 0 {
		n.Params = params
	} else {
		n.Params = nil
	}

	if b.node.Retry != nil {
		retry := *b.node.Retry
		n.Retry = &retry
	}
	n.OnSuccess = buildAll(b.onSuccess)
	n.OnError = buildAll(b.onError)
	return n
}

func buildAll(builders []*Builder) []domain.ActionNode {
	if len(builders) == 0 {
		return nil
	}
	out := make([]domain.ActionNode, len(builders))
	for i, b := range builders {
		out[i] = b.Build()
	}
	return out
}
