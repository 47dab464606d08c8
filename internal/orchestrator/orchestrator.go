// Package orchestrator validates a parameter snapshot, hands it to the
// transport and keeps the session's request history.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/projectdiscovery/gologger"

	"apiscope/internal/model"
	"apiscope/internal/store"
	"apiscope/internal/transport"
	"apiscope/internal/value"
)

// ErrBusy is returned while a previous submission is still outstanding.
var ErrBusy = errors.New("a request is already in flight")

// RequestError wraps a transport failure.
type RequestError struct {
	Endpoint string
	Err      error
}

func (e *RequestError) Error() string { return "request failed: " + e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

type Orchestrator struct {
	transport transport.Transport
	now       func() time.Time

	mu      sync.Mutex
	loading bool
	last    *model.RequestResult
	history []model.HistoryEntry
}

func New(t transport.Transport) *Orchestrator {
	return &Orchestrator{transport: t, now: time.Now}
}

// Loading reports whether a submission is outstanding.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// Last returns the most recently resolved result. Failed submissions leave
// it untouched.
func (o *Orchestrator) Last() (model.RequestResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return model.RequestResult{}, false
	}
	return *o.last, true
}

// History returns completed requests, oldest first.
func (o *Orchestrator) History() []model.HistoryEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.HistoryEntry(nil), o.history...)
}

// Params assembles the transport payload from a snapshot. The body is
// omitted when the endpoint does not take one.
func Params(st store.State) model.RequestParams {
	p := model.RequestParams{
		PathParams:  st.PathParams.Clone(),
		QueryParams: st.QueryParams.Clone(),
		Headers:     st.Headers.Clone(),
	}
	if st.BodyEnabled {
		p.BodyParams = value.Clone(st.Body)
	}
	return p
}

// Submit validates st and, when it is complete, executes the request. It
// blocks until the transport resolves; callers on a UI loop run it in a
// goroutine. Validation failures return *ValidationError and never reach the
// transport.
func (o *Orchestrator) Submit(ctx context.Context, st store.State) (model.RequestResult, error) {
	if st.Endpoint == nil {
		return model.RequestResult{}, store.ErrNoEndpoint
	}
	ep := *st.Endpoint
	if err := Validate(ep, st); err != nil {
		return model.RequestResult{}, err
	}

	o.mu.Lock()
	if o.loading {
		o.mu.Unlock()
		return model.RequestResult{}, ErrBusy
	}
	o.loading = true
	o.mu.Unlock()

	params := Params(st)
	started := o.now()
	res, err := o.transport.Execute(ctx, ep, params)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.loading = false
	if err != nil {
		gologger.Warning().Msgf("%s: %s", ep.Key(), err)
		return model.RequestResult{}, &RequestError{Endpoint: ep.Key(), Err: err}
	}

	o.last = &res
	o.history = append(o.history, model.HistoryEntry{
		ID:        uuid.NewString(),
		Endpoint:  ep,
		Params:    params,
		Result:    model.RequestResult{Status: res.Status, StatusText: res.StatusText, Data: value.Clone(res.Data), Headers: copyHeaders(res.Headers), Time: res.Time},
		Timestamp: started,
	})
	gologger.Verbose().Msgf("%s -> %d %s (%s)", ep.Key(), res.Status, res.StatusText, res.Time)
	return res, nil
}

func copyHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
