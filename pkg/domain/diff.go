package domain

import (
	"reflect"
)

// StateDiff is the change between two execution contexts, shaped for partial
// updates on the client. Only the writable scopes are compared.
type StateDiff struct {
	// ExecutionID identifies the execution that produced the change.
	ExecutionID string `json:"executionId,omitempty"`

	// Each delta contains only changed, added or deleted top-level keys.
	// Deleted keys are present with a nil value.
	PageState    map[string]any `json:"pageState,omitempty"`
	FormData     map[string]any `json:"formData,omitempty"`
	WidgetStates map[string]any `json:"widgetStates,omitempty"`
}

// Diff calculates the difference between before and after.
// A nil before yields the whole of after (initial load). Nil is returned when nothing changed.
func Diff(before, after *ExecutionContext) *StateDiff {
	if after == nil {
		return nil
	}
	if before == nil {
		before = &ExecutionContext{}
	}

	diff := &StateDiff{
		PageState:    diffScope(before.PageState, after.PageState),
		FormData:     diffScope(before.FormData, after.FormData),
		WidgetStates: diffScope(before.WidgetStates, after.WidgetStates),
	}
	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffScope(old, new map[string]any) map[string]any {
	delta := make(map[string]any)

	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}
	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	// nil lets omitempty drop the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return len(d.PageState) == 0 &&
		len(d.FormData) == 0 &&
		len(d.WidgetStates) == 0
}
