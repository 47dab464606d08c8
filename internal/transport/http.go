package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	"github.com/projectdiscovery/gologger"

	"apiscope/internal/compose"
	"apiscope/internal/model"
	"apiscope/internal/value"
)

const defaultTimeout = 10 * time.Second

// HTTP sends requests to a live server.
type HTTP struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTP{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Execute(ctx context.Context, ep model.Endpoint, params model.RequestParams) (model.RequestResult, error) {
	method := strings.ToUpper(ep.Method)
	url := compose.URL(h.BaseURL, ep.Path, params.PathParams, params.QueryParams)

	var body io.Reader
	if model.AllowsBody(method) && params.BodyParams != nil {
		body = strings.NewReader(value.Compact(params.BodyParams))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return model.RequestResult{}, errors.Wrap(err, "could not build request")
	}
	for _, hd := range params.Headers {
		if strings.TrimSpace(hd.Name) == "" || strings.TrimSpace(hd.Value) == "" {
			continue
		}
		req.Header.Set(hd.Name, hd.Value)
	}

	gologger.Debug().Msgf("%s %s", method, url)
	start := time.Now()
	resp, err := h.Client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return model.RequestResult{}, errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RequestResult{}, errors.Wrap(err, "could not read response body")
	}

	headers := map[string]string{}
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	gologger.Debug().Msgf("%s %s -> %d in %s", method, url, resp.StatusCode, elapsed)

	return model.RequestResult{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Data:       decodeBody(resp.Header.Get("Content-Type"), b),
		Headers:    headers,
		Time:       elapsed,
	}, nil
}

// decodeBody turns JSON payloads into a value tree and leaves anything else
// as text.
func decodeBody(contentType string, b []byte) any {
	text := string(bytes.TrimSpace(b))
	if text == "" {
		return nil
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") || (ct == "" && govalidator.IsJSON(text)) {
		if v, err := value.Parse(text); err == nil {
			return v
		}
	}
	return string(b)
}
