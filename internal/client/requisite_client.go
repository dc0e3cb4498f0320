// Package client holds outbound integrations with other campus services.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-api/internal/models"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
)

const maxResponseBytes = 1 << 20

// BreakerSettings tunes the circuit breaker in front of the catalog service.
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// RequisiteClientConfig configures the catalog client.
type RequisiteClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Breaker    BreakerSettings
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// RequisiteClient fetches requisites from the course catalog service over HTTP.
type RequisiteClient struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog responded with status %d", e.status)
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// NewRequisiteClient validates the base URL and builds the client.
func NewRequisiteClient(cfg RequisiteClientConfig) (*RequisiteClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid requisite base url %q", cfg.BaseURL)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	bs := cfg.Breaker
	if bs.MinRequests == 0 {
		bs.MinRequests = 5
	}
	if bs.FailureRatio <= 0 {
		bs.FailureRatio = 0.6
	}
	logger := cfg.Logger

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "requisite-catalog",
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bs.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bs.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *statusError
			if errors.As(err, &se) {
				return se.status < http.StatusInternalServerError
			}
			return false
		},
	})

	return &RequisiteClient{baseURL: base, http: httpClient, breaker: breaker, logger: logger}, nil
}

// Prerequisites fetches GET /courses/{id}/prerequisites.
func (c *RequisiteClient) Prerequisites(ctx context.Context, courseID string) ([]models.RequisiteGroup, error) {
	var out envelope[[]models.RequisiteGroup]
	if err := c.get(ctx, courseID, "prerequisites", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Corequisites fetches GET /courses/{id}/corequisites.
func (c *RequisiteClient) Corequisites(ctx context.Context, courseID string) ([]models.RequisiteCourse, error) {
	var out envelope[[]models.RequisiteCourse]
	if err := c.get(ctx, courseID, "corequisites", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// State reports the breaker state, used by readiness checks.
func (c *RequisiteClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *RequisiteClient) get(ctx context.Context, courseID, kind string, dest interface{}) error {
	endpoint := c.baseURL.JoinPath("courses", courseID, kind).String()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			// unknown course: no requisites
			return nil, nil
		case resp.StatusCode >= http.StatusBadRequest:
			return nil, &statusError{status: resp.StatusCode}
		}
		if err := json.Unmarshal(body, dest); err != nil {
			return nil, fmt.Errorf("decode %s for %s: %w", kind, courseID, err)
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "requisite catalog unavailable")
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, fmt.Sprintf("fetch %s for %s", kind, courseID))
	}
	return nil
}
