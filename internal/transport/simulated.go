package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/projectdiscovery/gologger"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

// Simulated answers from the catalog instead of the network: the first
// declared response with a JSON example supplies status and data.
type Simulated struct {
	Delay time.Duration
	now   func() time.Time
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay, now: time.Now}
}

func (s *Simulated) Execute(ctx context.Context, ep model.Endpoint, params model.RequestParams) (model.RequestResult, error) {
	start := s.now()
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return model.RequestResult{}, ctx.Err()
		case <-t.C:
		}
	}

	status := http.StatusOK
	var data any = value.NewObject()
	for _, r := range ep.Responses {
		if !r.HasExample {
			continue
		}
		if code, err := strconv.Atoi(r.Status); err == nil {
			status = code
		}
		data = value.Clone(r.Example)
		break
	}
	gologger.Debug().Msgf("simulated %s -> %d", ep.Key(), status)

	return model.RequestResult{
		Status:     status,
		StatusText: http.StatusText(status),
		Data:       data,
		Headers:    map[string]string{"content-type": "application/json"},
		Time:       s.now().Sub(start),
	}, nil
}
