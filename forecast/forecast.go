// Package forecast fetches short-term weather forecasts and reduces them to
// the fixed feature vector the risk fusion engine consumes.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"go-terrawatch/config"
	"go-terrawatch/types"
)

// Provider answers forecast features for a point.
type Provider interface {
	Forecast(ctx context.Context, lat, lon float64) (types.ForecastFeatures, error)
}

// Client talks to an Open-Meteo compatible forecast API.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(cfg config.ForecastConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		timeout: cfg.Timeout,
		logger:  logger.With(zap.String("component", "forecast-client")),
	}
}

// dailyForecast mirrors the daily block of the Open-Meteo response.
type dailyForecast struct {
	PrecipitationSum []float64 `json:"precipitation_sum"`
	WindSpeed10mMax  []float64 `json:"windspeed_10m_max"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
}

type forecastResponse struct {
	Daily dailyForecast `json:"daily"`
}

// Forecast fetches the 7-day daily forecast and reduces it to features:
// total precipitation, peak wind speed and the max-temperature trend
// (second half of the week minus the first half).
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (types.ForecastFeatures, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("daily", "precipitation_sum,windspeed_10m_max,temperature_2m_max")
	params.Set("forecast_days", "7")
	params.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+params.Encode(), nil)
	if err != nil {
		return types.ForecastFeatures{}, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			return types.ForecastFeatures{}, fmt.Errorf("forecast request: %w", types.ErrTaskCancelled)
		case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
			return types.ForecastFeatures{}, fmt.Errorf("forecast request: %w", types.ErrTimeout)
		default:
			return types.ForecastFeatures{}, fmt.Errorf("forecast request: %v: %w", err, types.ErrDependencyUnavailable)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("forecast provider returned unexpected status", zap.Int("status", resp.StatusCode))
		return types.ForecastFeatures{}, fmt.Errorf("forecast provider status %s: %w", resp.Status, types.ErrDependencyUnavailable)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.ForecastFeatures{}, fmt.Errorf("decoding forecast: %v: %w", err, types.ErrDependencyUnavailable)
	}

	if len(body.Daily.PrecipitationSum) == 0 {
		return types.ForecastFeatures{}, fmt.Errorf("forecast provider returned no daily data: %w", types.ErrNoData)
	}

	return reduce(body.Daily), nil
}

// reduce folds the daily arrays into the feature vector.
func reduce(d dailyForecast) types.ForecastFeatures {
	var f types.ForecastFeatures
	for i, p := range d.PrecipitationSum {
		if i >= 7 {
			break
		}
		f.PrecipitationSum7dMM += p
	}
	for i, w := range d.WindSpeed10mMax {
		if i >= 7 {
			break
		}
		if w > f.MaxWindKMH {
			f.MaxWindKMH = w
		}
	}
	f.TemperatureTrendC = temperatureTrend(d.Temperature2mMax)
	return f
}

// temperatureTrend compares the back half of the week against the front
// half; positive means warming.
func temperatureTrend(tmax []float64) float64 {
	if len(tmax) < 2 {
		return 0
	}
	mid := len(tmax) / 2
	front := mean(tmax[:mid])
	back := mean(tmax[mid:])
	return back - front
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
