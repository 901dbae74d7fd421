package domain

import (
	"github.com/aretw0/openportal/pkg/ports"
)

// Root namespaces visible to expressions and templates.
const (
	NamespacePageState    = "pageState"
	NamespaceFormData     = "formData"
	NamespaceWidgetStates = "widgetStates"
	NamespaceUser         = "user"
	NamespaceTenant       = "tenant"
	NamespaceRouteParams  = "routeParams"
	NamespaceQueryParams  = "queryParams"
	NamespaceTrigger      = "trigger"
)

// TriggerError describes the failure that dispatched an onError chain.
type TriggerError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	NodeID  string    `json:"nodeId,omitempty"`
}

// Trigger describes what started an execution, plus the extras the runner
// adds for error chains and forEach iterations.
type Trigger struct {
	WidgetID  string        `json:"widgetId,omitempty" yaml:"widgetId,omitempty"`
	EventType string        `json:"eventType,omitempty" yaml:"eventType,omitempty"`
	EventData any           `json:"eventData,omitempty" yaml:"eventData,omitempty"`
	Error     *TriggerError `json:"error,omitempty" yaml:"-"`
	Item      any           `json:"item,omitempty" yaml:"-"`
	Index     *int          `json:"index,omitempty" yaml:"-"`
}

func (t Trigger) scope() map[string]any {
	out := map[string]any{
		"widgetId":  t.WidgetID,
		"eventType": t.EventType,
		"eventData": t.EventData,
	}
	if t.Error != nil {
		out["error"] = map[string]any{
			"kind":    string(t.Error.Kind),
			"message": t.Error.Message,
			"nodeId":  t.Error.NodeID,
		}
	}
	if t.Index != nil {
		out["item"] = t.Item
		out["index"] = *t.Index
	}
	return out
}

// Services bundles the capabilities handlers may call. Any of them may be nil;
// handlers that need a missing one fail with ErrServiceUnavailable.
type Services struct {
	HTTP       ports.HTTPClient
	Navigation ports.Navigator
	Toast      ports.Toaster
	Modal      ports.ModalService
	Datasource ports.DatasourceService
	Cache      ports.CacheService
	Files      ports.FileTransfer
	Forms      ports.FormLocator
}

// ExecutionContext is the read-only view an execution runs against.
// It is never mutated: state changes produce a new context through Apply.
type ExecutionContext struct {
	PageState    map[string]any `json:"pageState" yaml:"pageState"`
	FormData     map[string]any `json:"formData" yaml:"formData"`
	WidgetStates map[string]any `json:"widgetStates" yaml:"widgetStates"`
	User         map[string]any `json:"user,omitempty" yaml:"user,omitempty"`
	Tenant       map[string]any `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	RouteParams  map[string]any `json:"routeParams,omitempty" yaml:"routeParams,omitempty"`
	QueryParams  map[string]any `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`
	Trigger      Trigger        `json:"trigger" yaml:"trigger"`

	Services Services `json:"-" yaml:"-"`
}

// NewExecutionContext returns an empty context with initialized state scopes.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		PageState:    map[string]any{},
		FormData:     map[string]any{},
		WidgetStates: map[string]any{},
	}
}

// Scope exposes the context as the root namespace map used for path lookups.
func (c *ExecutionContext) Scope() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return map[string]any{
		NamespacePageState:    c.PageState,
		NamespaceFormData:     c.FormData,
		NamespaceWidgetStates: c.WidgetStates,
		NamespaceUser:         c.User,
		NamespaceTenant:       c.Tenant,
		NamespaceRouteParams:  c.RouteParams,
		NamespaceQueryParams:  c.QueryParams,
		NamespaceTrigger:      c.Trigger.scope(),
	}
}

// clone makes a shallow copy; maps are shared until a patch replaces them.
func (c *ExecutionContext) clone() *ExecutionContext {
	if c == nil {
		return NewExecutionContext()
	}
	next := *c
	return &next
}

// WithTrigger returns a copy with the given trigger.
func (c *ExecutionContext) WithTrigger(t Trigger) *ExecutionContext {
	next := c.clone()
	next.Trigger = t
	return next
}

// WithError returns a copy whose trigger carries the failure of a node.
func (c *ExecutionContext) WithError(res ActionResult) *ExecutionContext {
	next := c.clone()
	next.Trigger.Error = &TriggerError{Kind: res.ErrorKind, Message: res.Message, NodeID: res.NodeID}
	return next
}

// WithIteration returns a copy whose trigger exposes a forEach item and index.
func (c *ExecutionContext) WithIteration(item any, index int) *ExecutionContext {
	next := c.clone()
	next.Trigger.Item = item
	next.Trigger.Index = &index
	return next
}

// WithFormData returns a copy with the formData scope replaced.
func (c *ExecutionContext) WithFormData(values map[string]any) *ExecutionContext {
	next := c.clone()
	next.FormData = values
	return next
}

// WithServices returns a copy bound to the given services.
func (c *ExecutionContext) WithServices(s Services) *ExecutionContext {
	next := c.clone()
	next.Services = s
	return next
}
