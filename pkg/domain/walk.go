package domain

import (
	"errors"
	"fmt"
)

// Child is a nested node together with its path relative to the parent.
type Child struct {
	Path string
	Node *ActionNode
}

// Children decodes the nodes nested in n: its chains and, for combinators,
// the children held in params.
func Children(n *ActionNode) ([]Child, error) {
	var out []Child
	add := func(prefix string, nodes []ActionNode) {
		for i := range nodes {
			out = append(out, Child{Path: fmt.Sprintf("%s[%d]", prefix, i), Node: &nodes[i]})
		}
	}

	switch CombinatorOf(n.Kind) {
	case CombinatorSequence, CombinatorParallel:
		nodes, err := DecodeNodes(n.Params[ParamActions])
		if err != nil {
			return nil, &MalformedNodeError{Path: "params.actions", Reason: err.Error()}
		}
		add("params.actions", nodes)
	case CombinatorConditional:
		branches, err := DecodeBranches(n.Params[ParamBranches])
		if err != nil {
			return nil, &MalformedNodeError{Path: "params.branches", Reason: err.Error()}
		}
		for i, b := range branches {
			if b.Condition == "" {
				return nil, &MalformedNodeError{Path: fmt.Sprintf("params.branches[%d]", i), Reason: "branch has no condition"}
			}
			add(fmt.Sprintf("params.branches[%d].actions", i), b.Actions)
		}
		def, err := DecodeNodes(n.Params[ParamDefault])
		if err != nil {
			return nil, &MalformedNodeError{Path: "params.default", Reason: err.Error()}
		}
		add("params.default", def)
	case CombinatorForEach:
		nodes, err := DecodeNodes(n.Params[ParamItemActions])
		if err != nil {
			return nil, &MalformedNodeError{Path: "params.itemActions", Reason: err.Error()}
		}
		add("params.itemActions", nodes)
	}

	add("onSuccess", n.OnSuccess)
	add("onError", n.OnError)
	return out, nil
}

// Walk visits root and every nested node depth-first. Paths are rooted at
// the root node's ID (or "root" when it has none).
func Walk(root *ActionNode, fn func(path string, n *ActionNode) error) error {
	if root == nil {
		return &MalformedNodeError{Path: "root", Reason: "node is nil"}
	}
	base := root.ID
	if base == "" {
		base = "root"
	}
	return walk(base, root, fn)
}

func walk(path string, n *ActionNode, fn func(string, *ActionNode) error) error {
	if err := fn(path, n); err != nil {
		return err
	}
	children, err := Children(n)
	if err != nil {
		var mErr *MalformedNodeError
		if errors.As(err, &mErr) {
			mErr.Path = path + "." + mErr.Path
			return mErr
		}
		return err
	}
	for _, c := range children {
		if err := walk(path+"."+c.Path, c.Node, fn); err != nil {
			return err
		}
	}
	return nil
}

// Check reports structural problems that make a tree impossible to run:
// missing kinds, undecodable combinator params and unknown backoff modes.
func Check(root *ActionNode) error {
	return Walk(root, func(path string, n *ActionNode) error {
		if n.Kind == "" {
			return &MalformedNodeError{Path: path, Reason: "kind is required"}
		}
		if r := n.Retry; r != nil && r.Backoff != "" && r.Backoff != BackoffLinear && r.Backoff != BackoffExponential {
			return &MalformedNodeError{Path: path + ".retry.backoff", Reason: fmt.Sprintf("unknown backoff %q", r.Backoff)}
		}
		return nil
	})
}
