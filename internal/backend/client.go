package backend

import (
	"context"
	"net/http"
	"time"

	"cleantech-console/internal/session"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var backendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "console",
	Subsystem: "backend",
	Name:      "calls_total",
	Help:      "Calls to the facility API broken down by method and result.",
}, []string{"method", "result"})

// Envelope wraps every backend response.
type Envelope[T any] struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// Client talks to the facility REST API. The bearer token is taken from the
// session in the request context.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar())

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.httpClient.R().SetContext(ctx).ForceContentType("application/json")
	if s, ok := session.FromContext(ctx); ok && s.Token != "" {
		req.SetAuthToken(s.Token)
	}
	return req
}

// do executes one call and unwraps the envelope. prepare sets body, query
// or multipart fields on the request.
func do[T any](ctx context.Context, c *Client, method, path string, prepare func(*resty.Request)) (T, error) {
	var env Envelope[T]
	var zero T

	req := c.request(ctx).SetResult(&env).SetError(&env)
	if prepare != nil {
		prepare(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		backendCalls.WithLabelValues(method, "transport").Inc()
		c.logger.Error("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return zero, &TransportError{Method: method, Path: path, Err: err}
	}

	status := resp.StatusCode()
	if resp.IsError() && env.Message == "" {
		backendCalls.WithLabelValues(method, "transport").Inc()
		c.logger.Error("backend returned http error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", status),
		)
		return zero, &TransportError{Method: method, Path: path, Status: status}
	}

	if !env.Succeeded {
		backendCalls.WithLabelValues(method, "logical").Inc()
		c.logger.Warn("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", status),
			zap.String("msg", env.Message),
		)
		return zero, &LogicalError{Method: method, Path: path, Status: status, Message: env.Message}
	}

	backendCalls.WithLabelValues(method, "ok").Inc()
	c.logger.Debug("backend call ok",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", status),
	)
	return env.Data, nil
}

func jsonBody(body any) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
}

// Ping checks that the backend answers at all; any HTTP status counts.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.httpClient.R().SetContext(ctx).Head("/")
	if err != nil {
		return &TransportError{Method: http.MethodHead, Path: "/", Err: err}
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return &TransportError{Method: http.MethodHead, Path: "/", Status: resp.StatusCode()}
	}
	return nil
}
