// Package holidays implements domain.HolidayProvider against the Nager.Date
// public-holiday API.
package holidays

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
)

// Client fetches public holidays for one country per calendar year.
type Client struct {
	baseURL    string
	country    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a holiday API client.
func NewClient(baseURL, country string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		country: country,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Holidays returns every public holiday in the given year, as UTC midnights.
func (c *Client) Holidays(ctx context.Context, year int) ([]time.Time, error) {
	u := fmt.Sprintf("%s/PublicHolidays/%d/%s", c.baseURL, year, c.country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.HolidayRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("holiday request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.HolidayRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("holiday API error: status %d: %s", resp.StatusCode, body)
	}

	var records []holidayRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		c.metrics.HolidayRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dates := make([]time.Time, 0, len(records))
	for _, r := range records {
		d, err := domain.ParseDate(r.Date)
		if err != nil {
			c.logger.Warn("skipping malformed holiday date", "date", r.Date, "error", err)
			continue
		}
		dates = append(dates, d)
	}

	c.metrics.HolidayRequests.WithLabelValues("success").Inc()
	return dates, nil
}

// Nager.Date API response type.

type holidayRecord struct {
	Date      string `json:"date"` // YYYY-MM-DD
	LocalName string `json:"localName"`
	Name      string `json:"name"`
}
