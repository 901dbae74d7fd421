package ports

import "context"

// NavigateRequest is a route change.
type NavigateRequest struct {
	To      string         `json:"to" mapstructure:"to"`
	Replace bool           `json:"replace,omitempty" mapstructure:"replace"`
	Params  map[string]any `json:"params,omitempty" mapstructure:"params"`
	Query   map[string]any `json:"query,omitempty" mapstructure:"query"`
}

// Navigator performs route changes on behalf of navigation actions.
type Navigator interface {
	Navigate(ctx context.Context, req NavigateRequest) error
	Back(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Toast is a transient feedback message.
type Toast struct {
	Level    string `json:"level,omitempty" mapstructure:"level"` // info, success, warning, error
	Title    string `json:"title,omitempty" mapstructure:"title"`
	Message  string `json:"message" mapstructure:"message"`
	Duration int    `json:"duration,omitempty" mapstructure:"duration"` // milliseconds
}

// Toaster shows toasts.
type Toaster interface {
	Toast(ctx context.Context, t Toast) error
}

// Dialog is a blocking confirmation or message dialog.
type Dialog struct {
	ID           string `json:"id,omitempty" mapstructure:"id"`
	Title        string `json:"title,omitempty" mapstructure:"title"`
	Message      string `json:"message" mapstructure:"message"`
	ConfirmLabel string `json:"confirmLabel,omitempty" mapstructure:"confirmLabel"`
	CancelLabel  string `json:"cancelLabel,omitempty" mapstructure:"cancelLabel"`
}

// ModalService opens and closes dialogs and page-defined modals.
// ShowDialog returns the user's answer when the host knows it.
type ModalService interface {
	ShowDialog(ctx context.Context, d Dialog) (any, error)
	CloseDialog(ctx context.Context, id string) error
	OpenModal(ctx context.Context, id string, props map[string]any) error
	CloseModal(ctx context.Context, id string) error
}
