package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"drivebook/backend/internal/domain"
)

const defaultBaseURL = "https://brasilapi.com.br"

// Client fetches national holidays from the BrasilAPI feriados feed. A
// year's holidays are fixed once published, so responses are cached for the
// process lifetime.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.RWMutex
	cache map[int]domain.DateSet
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithBaseURL(u string) Option {
	return func(cl *Client) { cl.baseURL = u }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		cache:      make(map[int]domain.DateSet),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type feriado struct {
	Date string `json:"date"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (c *Client) Holidays(ctx context.Context, year int) (domain.DateSet, error) {
	c.mu.RLock()
	cached, ok := c.cache[year]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/api/feriados/v1/%d", c.baseURL, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch holidays: unexpected status %d", resp.StatusCode)
	}

	var rows []feriado
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}

	set := domain.DateSet{}
	for _, row := range rows {
		d, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		set.Add(d)
	}

	c.mu.Lock()
	c.cache[year] = set
	c.mu.Unlock()

	return set, nil
}
