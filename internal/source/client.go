package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yeshinnorbu/claw/internal/config"
	"go.uber.org/zap"
)

const userAgent = "Claw/1.0"

// Client pages through the legacy WordPress REST surface. One FetchAll call
// produces the full record sequence for an endpoint; pagination within an
// endpoint is strictly sequential with a flat delay between requests.
type Client struct {
	http     *http.Client
	baseURL  string
	pageSize int
	delay    time.Duration
	maxPages int
	wcKey    string
	wcSecret string
	log      *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  cfg.SourceBaseURL,
		pageSize: cfg.PageSize,
		delay:    cfg.PageDelay,
		maxPages: cfg.MaxPages,
		wcKey:    cfg.WCKey,
		wcSecret: cfg.WCSecret,
		log:      log.Named("source.client"),
	}
}

// envelope is the wrapped response shape the tribe events API returns:
// the record list sits under "events" or "results" with a page count.
type envelope struct {
	Events     []json.RawMessage `json:"events"`
	Results    []json.RawMessage `json:"results"`
	TotalPages int               `json:"total_pages"`
}

// FetchAll retrieves every page of an endpoint. An HTTP or decode failure
// mid-pagination stops this endpoint and returns the pages already
// retrieved together with the error; partial results are kept, not
// discarded.
func (c *Client) FetchAll(ctx context.Context, ep Endpoint) ([]json.RawMessage, error) {
	var items []json.RawMessage

	for page := 1; page <= c.maxPages; page++ {
		if page > 1 {
			if err := c.wait(ctx); err != nil {
				return items, err
			}
		}

		body, err := c.fetchPage(ctx, ep, page)
		if err != nil {
			c.log.Warn("pagination aborted, keeping partial results",
				zap.String("endpoint", ep.Name),
				zap.Int("page", page),
				zap.Int("records", len(items)),
				zap.Error(err),
			)
			return items, err
		}

		// Bare-array shape: a short page signals the last page.
		var pageItems []json.RawMessage
		if err := json.Unmarshal(body, &pageItems); err == nil {
			if len(pageItems) == 0 {
				break
			}
			items = append(items, pageItems...)
			c.log.Debug("page fetched",
				zap.String("endpoint", ep.Name),
				zap.Int("page", page),
				zap.Int("total", len(items)),
			)
			if len(pageItems) < c.pageSize {
				break
			}
			continue
		}

		// Enveloped shape: terminate at the advertised page count.
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			c.log.Warn("undecodable page, keeping partial results",
				zap.String("endpoint", ep.Name),
				zap.Int("page", page),
				zap.Error(err),
			)
			return items, fmt.Errorf("decode %s page %d: %w", ep.Name, page, err)
		}
		pageItems = env.Events
		if pageItems == nil {
			pageItems = env.Results
		}
		items = append(items, pageItems...)
		c.log.Debug("page fetched",
			zap.String("endpoint", ep.Name),
			zap.Int("page", page),
			zap.Int("total_pages", env.TotalPages),
			zap.Int("total", len(items)),
		)
		if page >= env.TotalPages {
			break
		}
	}

	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, ep Endpoint, page int) ([]byte, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.pageSize))
	q.Set("page", strconv.Itoa(page))
	for k, v := range ep.Params {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?%s", c.baseURL, ep.Path, q.Encode()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if ep.Auth == AuthBasic {
		req.SetBasicAuth(c.wcKey, c.wcSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("HTTP %d on %s page %d: %s", resp.StatusCode, ep.Name, page, snippet)
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) wait(ctx context.Context) error {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
