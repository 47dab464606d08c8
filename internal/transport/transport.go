// Package transport performs (or simulates) the request for an endpoint.
package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"apiscope/internal/model"
)

// Transport executes one request. Implementations may fail on network or
// decoding errors; they never validate parameters.
type Transport interface {
	Execute(ctx context.Context, ep model.Endpoint, params model.RequestParams) (model.RequestResult, error)
}

type Mode string

const (
	ModeHTTP     Mode = "http"
	ModeSimulate Mode = "simulate"
)

type Options struct {
	Mode           Mode
	BaseURL        string
	Timeout        time.Duration
	SimulatedDelay time.Duration
}

func New(opts Options) (Transport, error) {
	switch Mode(strings.ToLower(string(opts.Mode))) {
	case ModeHTTP, "":
		return NewHTTP(opts.BaseURL, opts.Timeout), nil
	case ModeSimulate:
		return NewSimulated(opts.SimulatedDelay), nil
	default:
		return nil, fmt.Errorf("unknown transport mode %q (want http or simulate)", opts.Mode)
	}
}
