package domain

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Backoff selects how the delay between retry attempts grows.
type Backoff string

const (
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// MaxRetryDelay caps the wait between two attempts.
const MaxRetryDelay = 5 * time.Minute

const maxBackoffShift = 30

// RetryPolicy re-runs a failed node. Attempts counts every invocation,
// including the first one.
type RetryPolicy struct {
	Attempts int     `json:"attempts" yaml:"attempts" mapstructure:"attempts"`
	Delay    int     `json:"delay" yaml:"delay" mapstructure:"delay"` // milliseconds
	Backoff  Backoff `json:"backoff,omitempty" yaml:"backoff,omitempty" mapstructure:"backoff"`
}

// DelayBefore returns the wait before the given attempt (1-based).
// The first attempt never waits.
func (p *RetryPolicy) DelayBefore(attempt int) time.Duration {
	if p == nil || attempt <= 1 || p.Delay <= 0 {
		return 0
	}
	base := time.Duration(p.Delay) * time.Millisecond
	if p.Backoff == BackoffExponential {
		// delay * 2^(n-1) where n is the number of failures so far
		shift := attempt - 2
		if shift > maxBackoffShift {
			shift = maxBackoffShift
		}
		wait := base << uint(shift)
		if wait <= 0 || wait > MaxRetryDelay {
			return MaxRetryDelay
		}
		return wait
	}
	return base
}

// ActionNode is a declarative unit of work as emitted by the backend.
type ActionNode struct {
	ID        string         `json:"id" yaml:"id" mapstructure:"id"`
	Kind      string         `json:"kind" yaml:"kind" mapstructure:"kind"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
	Condition string         `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
	OnSuccess []ActionNode   `json:"onSuccess,omitempty" yaml:"onSuccess,omitempty" mapstructure:"onSuccess"`
	OnError   []ActionNode   `json:"onError,omitempty" yaml:"onError,omitempty" mapstructure:"onError"`
	Loading   bool           `json:"loading" yaml:"loading,omitempty" mapstructure:"loading"`
	Timeout   int            `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"` // milliseconds
	Retry     *RetryPolicy   `json:"retry,omitempty" yaml:"retry,omitempty" mapstructure:"retry"`
}

// TimeoutDuration converts the wire timeout to a duration (0 = none).
func (n *ActionNode) TimeoutDuration() time.Duration {
	if n.Timeout <= 0 {
		return 0
	}
	return time.Duration(n.Timeout) * time.Millisecond
}

// Branch is one arm of a conditional combinator.
type Branch struct {
	Condition string       `json:"condition" yaml:"condition" mapstructure:"condition"`
	Actions   []ActionNode `json:"actions" yaml:"actions" mapstructure:"actions"`
}

// DecodeNodes converts a raw params value into child nodes.
// It accepts typed slices (built in Go) as well as the generic []any produced by
// JSON/YAML decoding. A nil value yields no nodes.
func DecodeNodes(raw any) ([]ActionNode, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []ActionNode:
		return v, nil
	case []*ActionNode:
		nodes := make([]ActionNode, 0, len(v))
		for i, n := range v {
			if n == nil {
				return nil, fmt.Errorf("action %d is nil", i)
			}
			nodes = append(nodes, *n)
		}
		return nodes, nil
	case ActionNode:
		return []ActionNode{v}, nil
	}

	var nodes []ActionNode
	if err := decode(raw, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// DecodeBranches converts params.branches into typed branches.
func DecodeBranches(raw any) ([]Branch, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []Branch:
		return v, nil
	}

	var branches []Branch
	if err := decode(raw, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// DecodeParams decodes resolved params into a typed struct using mapstructure tags.
func DecodeParams(params map[string]any, out any) error {
	return decode(params, out)
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
