// Package catalog pulls product records from the upstream catalog feed.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"prodtrans/internal/domain"
)

// ModifiedSinceLayout is the timestamp format the feed expects for the
// lastModifiedDate parameter.
const ModifiedSinceLayout = "2006-01-02 15:04:05"

const (
	defaultPageSize = 50
	defaultTimeout  = 30 * time.Second
)

// Options configures the feed client.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// Tenant is sent as the app parameter on every page request.
	Tenant   string
	PageSize int
	Timeout  time.Duration
}

// Client reads pages of product records from the catalog feed. Every request
// carries a fresh correlation id so feed-side logs can be matched to ours.
type Client struct {
	opts Options
	http *resty.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("catalog: base url is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{opts: opts, http: resty.New().SetTimeout(opts.Timeout)}, nil
}

// Page is one slice of the feed.
type Page struct {
	Total   int
	Records []domain.Record
}

type feedReply struct {
	Data struct {
		TotalCount int             `json:"totalCount"`
		DataList   []domain.Record `json:"dataList"`
	} `json:"data"`
}

// FetchPage returns the records modified at or after since, starting at
// startIndex.
func (c *Client) FetchPage(ctx context.Context, since time.Time, startIndex int) (*Page, error) {
	var reply feedReply
	req := c.http.R().SetContext(ctx).
		SetHeader("client_id", c.opts.ClientID).
		SetHeader("client_secret", c.opts.ClientSecret).
		SetHeader("correlation_id", uuid.NewString()).
		SetQueryParams(map[string]string{
			"app":              c.opts.Tenant,
			"lastModifiedDate": since.UTC().Format(ModifiedSinceLayout),
			"startIndex":       strconv.Itoa(startIndex),
			"noOfResults":      strconv.Itoa(c.opts.PageSize),
		}).
		SetResult(&reply)
	resp, err := req.Get(c.opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch page at %d: %w", startIndex, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("catalog: fetch page at %d: %s; body: %s", startIndex, resp.Status(), snippet(resp.String()))
	}
	return &Page{Total: reply.Data.TotalCount, Records: reply.Data.DataList}, nil
}

// FetchModifiedSince walks the feed and returns every record modified at or
// after since.
func (c *Client) FetchModifiedSince(ctx context.Context, since time.Time) ([]domain.Record, error) {
	var all []domain.Record
	start := 0
	for {
		page, err := c.FetchPage(ctx, since, start)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		start += len(page.Records)
		if len(page.Records) == 0 || start >= page.Total {
			return all, nil
		}
	}
}

func snippet(body string) string {
	const max = 200
	if len(body) <= max {
		return body
	}
	return body[:max] + "..."
}
