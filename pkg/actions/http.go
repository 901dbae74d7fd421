package actions

import (
	"context"
	"strings"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/ports"
)

type apiCallParams struct {
	ports.HTTPRequest `mapstructure:",squash"`
	// Target stores the response body under this pageState key.
	Target string `mapstructure:"target"`
}

func apiCall(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	p, err := decodeParams[apiCallParams](domain.KindAPICall, params)
	if err != nil {
		return domain.Output{}, err
	}
	body, err := doRequest(ctx, ectx, p.HTTPRequest)
	if err != nil {
		return domain.Output{}, err
	}
	return storeResult(body, p.Target), nil
}

type executeActionParams struct {
	Action   string `mapstructure:"action"`
	Payload  any    `mapstructure:"payload"`
	Endpoint string `mapstructure:"endpoint"`
	Target   string `mapstructure:"target"`
}

// executeAction posts to the server-side action gateway. The trigger travels
// along so the backend can audit which widget started the action.
func (b *builtins) executeAction(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	p, err := decodeParams[executeActionParams](domain.KindExecuteAction, params)
	if err != nil {
		return domain.Output{}, err
	}
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = b.actionsEndpoint
	}

	req := ports.HTTPRequest{
		Method: "POST",
		URL:    endpoint,
		Body: map[string]any{
			"action":  p.Action,
			"payload": p.Payload,
			"trigger": map[string]any{
				"widgetId":  ectx.Trigger.WidgetID,
				"eventType": ectx.Trigger.EventType,
			},
			"routeParams": ectx.RouteParams,
		},
	}
	body, err := doRequest(ctx, ectx, req)
	if err != nil {
		return domain.Output{}, err
	}
	return storeResult(body, p.Target), nil
}

func doRequest(ctx context.Context, ectx *domain.ExecutionContext, req ports.HTTPRequest) (any, error) {
	client := ectx.Services.HTTP
	if client == nil {
		return nil, unavailable("http")
	}
	req.Method = strings.ToUpper(req.Method)
	if req.Method == "" {
		req.Method = "GET"
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &domain.HTTPError{Method: req.Method, URL: req.URL, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp.Body, nil
}

func storeResult(value any, target string) domain.Output {
	if target == "" {
		return domain.ValueOutput(value)
	}
	patch := domain.SetPatch(domain.ScopePageState, map[string]any{target: value})
	return domain.Output{Value: value, Patch: &patch}
}

func downloadFile(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	files := ectx.Services.Files
	if files == nil {
		return domain.Output{}, unavailable("files")
	}
	req, err := decodeParams[ports.DownloadRequest](domain.KindDownloadFile, params)
	if err != nil {
		return domain.Output{}, err
	}
	res, err := files.Download(ctx, req)
	if err != nil {
		return domain.Output{}, err
	}
	return domain.ValueOutput(res), nil
}

func uploadFile(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	files := ectx.Services.Files
	if files == nil {
		return domain.Output{}, unavailable("files")
	}
	req, err := decodeParams[ports.UploadRequest](domain.KindUploadFile, params)
	if err != nil {
		return domain.Output{}, err
	}
	resp, err := files.Upload(ctx, req)
	if err != nil {
		return domain.Output{}, err
	}
	if !resp.OK() {
		return domain.Output{}, &domain.HTTPError{Method: "POST", URL: req.URL, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return domain.ValueOutput(resp.Body), nil
}
