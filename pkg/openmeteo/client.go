// Package openmeteo provides a client for the Open-Meteo hourly forecast API.
package openmeteo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/polyclass/internal/resilience"
)

// DefaultBaseURL is the public Open-Meteo API host.
const DefaultBaseURL = "https://api.open-meteo.com"

// Errors describing responses that carry no usable series.
var (
	ErrMalformed    = eris.New("openmeteo: malformed response")
	ErrFieldMissing = eris.New("openmeteo: field missing from response")
)

// Client fetches hourly forecast series.
type Client interface {
	// Hourly returns the hourly series for the requested fields at a point.
	Hourly(ctx context.Context, req HourlyRequest) (*Forecast, error)
}

// HourlyRequest identifies a point, the hourly variables and the forecast window.
type HourlyRequest struct {
	Latitude     float64
	Longitude    float64
	Fields       []string
	ForecastDays int    // defaults to 1
	Timezone     string // defaults to "auto"
}

// Forecast is the decoded hourly response. Entries are nil where the API reported null.
type Forecast struct {
	Latitude  float64
	Longitude float64
	Timezone  string
	Times     []string
	Hourly    map[string][]*float64
}

// Series returns the hourly values for field.
func (f *Forecast) Series(field string) ([]*float64, error) {
	s, ok := f.Hourly[field]
	if !ok {
		return nil, eris.Wrapf(ErrFieldMissing, "field %q", field)
	}
	return s, nil
}

// ValueAt returns the value of field at index hour.
func (f *Forecast) ValueAt(field string, hour int) (float64, error) {
	s, err := f.Series(field)
	if err != nil {
		return 0, err
	}
	if hour < 0 || hour >= len(s) {
		return 0, eris.Wrapf(ErrFieldMissing, "field %q has %d hours, want index %d", field, len(s), hour)
	}
	if s[hour] == nil {
		return 0, eris.Wrapf(ErrFieldMissing, "field %q is null at hour %d", field, hour)
	}
	return *s[hour], nil
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API host (used by tests).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p resilience.RetryPolicy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryPolicy
}

// NewClient creates an Open-Meteo client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		retry:   resilience.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type forecastResponse struct {
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Timezone  string                     `json:"timezone"`
	Hourly    map[string]json.RawMessage `json:"hourly"`
}

type errorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Hourly fetches the forecast, retrying transient failures.
func (c *httpClient) Hourly(ctx context.Context, req HourlyRequest) (*Forecast, error) {
	if len(req.Fields) == 0 {
		return nil, eris.New("openmeteo: at least one hourly field is required")
	}
	reqURL := c.forecastURL(req)
	return resilience.Retry(ctx, c.retry, func(ctx context.Context) (*Forecast, error) {
		return c.fetch(ctx, reqURL)
	})
}

func (c *httpClient) forecastURL(req HourlyRequest) string {
	days := req.ForecastDays
	if days <= 0 {
		days = 1
	}
	tz := req.Timezone
	if tz == "" {
		tz = "auto"
	}
	params := url.Values{
		"latitude":      {strconv.FormatFloat(req.Latitude, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(req.Longitude, 'f', -1, 64)},
		"hourly":        {strings.Join(req.Fields, ",")},
		"forecast_days": {strconv.Itoa(days)},
		"timezone":      {tz},
	}
	return c.baseURL + "/v1/forecast?" + params.Encode()
}

func (c *httpClient) fetch(ctx context.Context, reqURL string) (*Forecast, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "openmeteo: rate limit")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "openmeteo: build request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "openmeteo: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openmeteo: read body")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("openmeteo: status %d: %s", resp.StatusCode, errorReason(body))
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	return decodeForecast(body)
}

func decodeForecast(body []byte) (*Forecast, error) {
	var raw forecastResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(ErrMalformed, err.Error())
	}
	if raw.Hourly == nil {
		return nil, eris.Wrap(ErrMalformed, "no hourly block")
	}

	f := &Forecast{
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Timezone:  raw.Timezone,
		Hourly:    make(map[string][]*float64, len(raw.Hourly)),
	}
	for name, msg := range raw.Hourly {
		if name == "time" {
			_ = json.Unmarshal(msg, &f.Times)
			continue
		}
		var series []*float64
		if err := json.Unmarshal(msg, &series); err != nil {
			// Non-numeric series are dropped so lookups report the field as missing.
			continue
		}
		f.Hourly[name] = series
	}
	return f, nil
}

func errorReason(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Reason != "" {
		return e.Reason
	}
	body = bytes.TrimSpace(body)
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
