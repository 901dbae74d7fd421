package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/expr"
)

// IssueCode classifies a graph problem.
type IssueCode string

const (
	IssueMissingKind      IssueCode = "missing_kind"
	IssueUnknownKind      IssueCode = "unknown_kind"
	IssueDuplicateID      IssueCode = "duplicate_id"
	IssueMalformed        IssueCode = "malformed"
	IssueInvalidCondition IssueCode = "invalid_condition"
	IssueRejectedExpr     IssueCode = "rejected_expression"
	IssueInvalidRetry     IssueCode = "invalid_retry"
)

// Issue is one problem found in a graph.
type Issue struct {
	Path    string    `json:"path"`
	NodeID  string    `json:"nodeId,omitempty"`
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Report collects every issue of a graph.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Valid reports whether no issue was found.
func (r *Report) Valid() bool { return len(r.Issues) == 0 }

// Err folds the report into one error, or nil when valid.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	lines := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		lines[i] = issue.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Issues), strings.Join(lines, "\n- "))
}

func (r *Report) add(path string, n *domain.ActionNode, code IssueCode, format string, args ...any) {
	issue := Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		issue.NodeID = n.ID
	}
	r.Issues = append(r.Issues, issue)
}

// KindSet tells which kinds can be executed. *registry.Registry implements it.
type KindSet interface {
	Has(kind string) bool
}

// ValidateGraph checks a graph for duplicate IDs, unknown kinds, malformed
// combinator params, bad retry policies and conditions that do not compile.
// Unknown kinds are reported but would only fail their own node at runtime.
// A nil kinds set skips the kind check.
func ValidateGraph(root *domain.ActionNode, kinds KindSet) *Report {
	v := &graphValidator{kinds: kinds, ids: make(map[string]string), report: &Report{}}
	if root == nil {
		v.report.add("root", nil, IssueMalformed, "graph is empty")
		return v.report
	}
	base := root.ID
	if base == "" {
		base = RootID
	}
	v.visit(base, root)
	return v.report
}

type graphValidator struct {
	kinds  KindSet
	ids    map[string]string
	report *Report
}

func (v *graphValidator) visit(path string, n *domain.ActionNode) {
	switch {
	case n.Kind == "":
		v.report.add(path, n, IssueMissingKind, "kind is required")
	case v.kinds != nil && domain.CombinatorOf(n.Kind) == domain.CombinatorNone && !v.kinds.Has(n.Kind):
		v.report.add(path, n, IssueUnknownKind, "unknown action kind %q", n.Kind)
	}

	if n.ID != "" {
		if first, dup := v.ids[n.ID]; dup {
			v.report.add(path, n, IssueDuplicateID, "id %q already used at %s", n.ID, first)
		} else {
			v.ids[n.ID] = path
		}
	}

	if r := n.Retry; r != nil {
		if r.Attempts < 0 || r.Delay < 0 {
			v.report.add(path+".retry", n, IssueInvalidRetry, "attempts and delay must not be negative")
		}
		if r.Backoff != "" && r.Backoff != domain.BackoffLinear && r.Backoff != domain.BackoffExponential {
			v.report.add(path+".retry.backoff", n, IssueInvalidRetry, "unknown backoff %q", r.Backoff)
		}
	}

	v.expression(path+".condition", n, n.Condition)
	v.combinator(path, n)

	children, err := domain.Children(n)
	if err != nil {
		var mErr *domain.MalformedNodeError
		if errors.As(err, &mErr) {
			v.report.add(path+"."+mErr.Path, n, IssueMalformed, "%s", mErr.Reason)
		} else {
			v.report.add(path, n, IssueMalformed, "%v", err)
		}
		return
	}
	for _, c := range children {
		v.visit(path+"."+c.Path, c.Node)
	}
}

// combinator checks the params Children does not decode.
func (v *graphValidator) combinator(path string, n *domain.ActionNode) {
	switch domain.CombinatorOf(n.Kind) {
	case domain.CombinatorForEach:
		if _, ok := n.Params[domain.ParamItems]; !ok {
			v.report.add(path+".params.items", n, IssueMalformed, "forEach needs items")
		}
	case domain.CombinatorConditional:
		branches, err := domain.DecodeBranches(n.Params[domain.ParamBranches])
		if err != nil {
			return
		}
		for i, b := range branches {
			v.expression(fmt.Sprintf("%s.params.branches[%d].condition", path, i), n, b.Condition)
		}
	}
}

func (v *graphValidator) expression(path string, n *domain.ActionNode, src string) {
	if strings.TrimSpace(src) == "" {
		return
	}
	_, err := expr.Compile(src)
	switch {
	case err == nil:
	case errors.Is(err, expr.ErrRejected):
		v.report.add(path, n, IssueRejectedExpr, "%v", err)
	default:
		v.report.add(path, n, IssueInvalidCondition, "%v", err)
	}
}
