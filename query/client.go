package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-terrawatch/config"
	"go-terrawatch/types"
)

// compositeRequest is the wire request for a server-side composite.
type compositeRequest struct {
	Variable types.Variable    `json:"variable"`
	Region   types.BoundingBox `json:"region"`
	Start    string            `json:"start"`
	End      string            `json:"end"`
}

// compositeResponse mirrors the platform's composite payload.
type compositeResponse struct {
	Mean         float64          `json:"mean"`
	StdDev       float64          `json:"stdDev"`
	CDF          []types.CDFPoint `json:"cdf"`
	SampleCount  int              `json:"sampleCount"`
	Completeness float64          `json:"completeness"`
}

// Client is the production Adapter: a JSON-over-HTTP client for the
// geospatial compute platform, rate limited so a burst of concurrent
// sub-period requests cannot trip the platform's quota.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(cfg config.QueryConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		timeout: cfg.Timeout,
		logger:  logger.With(zap.String("component", "query-client")),
	}
}

// Query requests one composite. Each call carries its own deadline.
func (c *Client) Query(ctx context.Context, region types.AreaOfInterest, variable types.Variable, dateRange types.DateRange) (types.TimeSeriesSample, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return types.TimeSeriesSample{}, fmt.Errorf("rate limit wait: %w", types.ErrTaskCancelled)
		}
		return types.TimeSeriesSample{}, fmt.Errorf("rate limit wait: %w", types.ErrTimeout)
	}

	payload, err := json.Marshal(compositeRequest{
		Variable: variable,
		Region:   region.BoundingBox,
		Start:    dateRange.Start.UTC().Format("2006-01-02"),
		End:      dateRange.End.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return types.TimeSeriesSample{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/composite", bytes.NewBuffer(payload))
	if err != nil {
		return types.TimeSeriesSample{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			// The caller gave up, not the platform.
			return types.TimeSeriesSample{}, fmt.Errorf("composite query %s: %w", variable, types.ErrTaskCancelled)
		case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
			return types.TimeSeriesSample{}, fmt.Errorf("composite query %s: %w", variable, types.ErrTimeout)
		default:
			return types.TimeSeriesSample{}, fmt.Errorf("composite query %s: %v: %w", variable, err, types.ErrDependencyUnavailable)
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound, http.StatusNoContent:
		return types.TimeSeriesSample{}, fmt.Errorf("composite query %s %s-%s: %w",
			variable, dateRange.Start.Format("2006-01-02"), dateRange.End.Format("2006-01-02"), types.ErrNoData)
	default:
		c.logger.Warn("platform returned unexpected status",
			zap.String("variable", string(variable)),
			zap.Int("status", resp.StatusCode))
		return types.TimeSeriesSample{}, fmt.Errorf("platform status %s: %w", resp.Status, types.ErrDependencyUnavailable)
	}

	var body compositeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.TimeSeriesSample{}, fmt.Errorf("decoding composite response: %v: %w", err, types.ErrDependencyUnavailable)
	}

	return types.TimeSeriesSample{
		Variable:     variable,
		Range:        dateRange,
		Mean:         body.Mean,
		StdDev:       body.StdDev,
		CDF:          body.CDF,
		SampleCount:  body.SampleCount,
		Completeness: body.Completeness,
	}, nil
}
