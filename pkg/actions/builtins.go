package actions

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/registry"
	"github.com/aretw0/openportal/pkg/schema"
)

// Option configures the built-in handlers.
type Option func(*builtins)

type builtins struct {
	logger          *slog.Logger
	actionsEndpoint string
}

// WithLogger sets the logger used by the log action and by handler diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builtins) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithActionsEndpoint sets the server-side action gateway used by executeAction.
func WithActionsEndpoint(url string) Option {
	return func(b *builtins) {
		if url != "" {
			b.actionsEndpoint = url
		}
	}
}

// DefaultActionsEndpoint is where executeAction posts when no endpoint is configured.
const DefaultActionsEndpoint = "/api/actions/execute"

var (
	optMap    = schema.Optional(schema.Map())
	optString = schema.Optional(schema.String())
	optBool   = schema.Optional(schema.Bool())
	optNumber = schema.Optional(schema.Number())
	optLevel  = schema.Optional(schema.OneOf("debug", "info", "success", "warn", "warning", "error"))
	optMethod = schema.Optional(schema.OneOf("GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"))
	optScope  = schema.Optional(schema.OneOf(domain.NamespacePageState, domain.NamespaceFormData, domain.NamespaceWidgetStates))
	optKeys   = schema.Optional(schema.AnyOf(schema.String(), schema.List(schema.String())))
)

// RegisterBuiltins registers every built-in leaf kind on reg.
func RegisterBuiltins(reg *registry.Registry, opts ...Option) {
	b := &builtins{logger: logging.NewNop(), actionsEndpoint: DefaultActionsEndpoint}
	for _, opt := range opts {
		opt(b)
	}

	reg.RegisterFunc(domain.KindNavigate, navigate,
		registry.WithDescription("Navigates to params.to."),
		registry.WithSchema(schema.Schema{"to": schema.NonEmptyString(), "replace": optBool, "params": optMap, "query": optMap}))
	reg.RegisterFunc(domain.KindGoBack, goBack, registry.WithDescription("Navigates back."))
	reg.RegisterFunc(domain.KindReload, reload, registry.WithDescription("Reloads the current route."))

	reg.RegisterFunc(domain.KindAPICall, apiCall,
		registry.WithDescription("Issues an HTTP request; the response body is the result value."),
		registry.WithSchema(schema.Schema{"url": schema.NonEmptyString(), "method": optMethod, "headers": optMap, "query": optMap, "body": schema.Optional(schema.Any()), "target": optString}))
	reg.RegisterFunc(domain.KindExecuteAction, b.executeAction,
		registry.WithDescription("Runs a server-side action through the action gateway."),
		registry.WithSchema(schema.Schema{"action": schema.NonEmptyString(), "payload": schema.Optional(schema.Any()), "endpoint": optString, "target": optString}))

	reg.RegisterFunc(domain.KindSetState, setState,
		registry.WithDescription("Sets keys of a state scope (pageState by default)."))
	reg.RegisterFunc(domain.KindMergeState, mergeState,
		registry.WithDescription("Deep-merges values into a state scope (pageState by default)."))
	reg.RegisterFunc(domain.KindResetState, resetState,
		registry.WithDescription("Removes keys from a state scope, or clears it."),
		registry.WithSchema(schema.Schema{"keys": optKeys, "scope": optScope}))

	reg.RegisterFunc(domain.KindShowToast, showToast,
		registry.WithDescription("Shows a toast message."),
		registry.WithSchema(schema.Schema{"message": schema.String(), "title": optString, "level": optLevel, "type": optLevel, "duration": optNumber}))
	reg.RegisterFunc(domain.KindShowDialog, showDialog,
		registry.WithDescription("Shows a dialog; the answer is the result value."),
		registry.WithSchema(schema.Schema{"message": schema.String(), "title": optString, "id": optString, "confirmLabel": optString, "cancelLabel": optString}))
	reg.RegisterFunc(domain.KindCloseDialog, closeDialog,
		registry.WithDescription("Closes a dialog."),
		registry.WithSchema(schema.Schema{"id": optString}))
	reg.RegisterFunc(domain.KindOpenModal, openModal,
		registry.WithDescription("Opens a page modal."),
		registry.WithSchema(schema.Schema{"id": schema.NonEmptyString(), "props": optMap}))
	reg.RegisterFunc(domain.KindCloseModal, closeModal,
		registry.WithDescription("Closes a page modal."),
		registry.WithSchema(schema.Schema{"id": schema.NonEmptyString()}))

	formSchema := registry.WithSchema(schema.Schema{"formId": schema.NonEmptyString(), "values": optMap})
	reg.RegisterFunc(domain.KindSubmitForm, submitForm, registry.WithDescription("Submits a mounted form."), formSchema)
	reg.RegisterFunc(domain.KindValidateForm, validateForm, registry.WithDescription("Validates every visible field of a mounted form."), formSchema)
	reg.RegisterFunc(domain.KindResetForm, resetForm, registry.WithDescription("Resets a mounted form."), formSchema)

	reg.RegisterFunc(domain.KindRefreshDatasource, refreshDatasource,
		registry.WithDescription("Reloads a datasource."),
		registry.WithSchema(schema.Schema{"id": schema.NonEmptyString(), "params": optMap}))
	reg.RegisterFunc(domain.KindInvalidateCache, invalidateCache,
		registry.WithDescription("Invalidates cache entries by key or prefix."),
		registry.WithSchema(schema.Schema{"keys": optKeys, "prefix": optString}))

	reg.RegisterFunc(domain.KindDownloadFile, downloadFile,
		registry.WithDescription("Downloads a file."),
		registry.WithSchema(schema.Schema{"url": schema.NonEmptyString(), "filename": optString, "method": optMethod, "headers": optMap}))
	reg.RegisterFunc(domain.KindUploadFile, uploadFile,
		registry.WithDescription("Uploads a file as multipart form data."),
		registry.WithSchema(schema.Schema{"url": schema.NonEmptyString(), "field": optString, "filename": optString, "path": optString, "fields": optMap, "headers": optMap}))

	reg.RegisterFunc(domain.KindLog, b.log,
		registry.WithDescription("Writes a structured log line."),
		registry.WithSchema(schema.Schema{"message": schema.String(), "level": optLevel}))
	reg.RegisterFunc(domain.KindDelay, delay,
		registry.WithDescription("Waits for params.ms milliseconds."),
		registry.WithSchema(schema.Schema{"ms": schema.Number()}))
}

func unavailable(service string) error {
	return fmt.Errorf("%w: %s", domain.ErrServiceUnavailable, service)
}

func decodeParams[T any](kind string, params map[string]any) (T, error) {
	var out T
	if err := domain.DecodeParams(params, &out); err != nil {
		return out, fmt.Errorf("%s: decode params: %w", kind, err)
	}
	return out, nil
}
