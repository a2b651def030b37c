package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// defaultPageLimit is the item count requested per search page.
const defaultPageLimit = 100

// Client talks to one STAC API endpoint. The zero value is not usable;
// construct with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given catalog URL, e.g.
// "https://earth-search.aws.element84.com/v1".
func NewClient(catalogURL string) (*Client, error) {
	u, err := url.Parse(catalogURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog URL %q: %w", catalogURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("catalog URL %q must be http or https", catalogURL)
	}
	return &Client{
		baseURL:    strings.TrimRight(catalogURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// SearchOptions filter an item search.
type SearchOptions struct {
	Collection          string
	BBox                orb.Bound
	DateRange           string // ISO-8601 interval, e.g. "2020-06-01/2020-12-30"
	CloudCoverThreshold float64
}

// Search queries the catalog for items matching the options and returns
// them in the catalog's order, following pagination links until the
// result set is exhausted. The caller's context bounds the whole
// exchange.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]Item, error) {
	collection := opts.Collection
	if collection == "" {
		collection = Sentinel2L2A
	}
	req := searchRequest{
		Collections: []string{collection},
		BBox: []float64{
			opts.BBox.Min[0], opts.BBox.Min[1],
			opts.BBox.Max[0], opts.BBox.Max[1],
		},
		Datetime: opts.DateRange,
		Limit:    defaultPageLimit,
	}
	// The cloud filter is always sent; a threshold of 0 means no
	// scene can qualify, not an unfiltered search.
	req.Query = map[string]rangeFilter{
		"eo:cloud_cover": {LT: opts.CloudCoverThreshold},
	}

	var items []Item
	page, err := c.postSearch(ctx, c.baseURL+"/search", req)
	if err != nil {
		return nil, err
	}
	items = append(items, page.Features...)

	// Follow rel=next links; catalogs cap page size well below the
	// full result count for large windows.
	for next := nextLink(page.Links); next != ""; next = nextLink(page.Links) {
		page, err = c.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Features...)
	}
	return items, nil
}

func (c *Client) postSearch(ctx context.Context, searchURL string, req searchRequest) (*searchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/geo+json")
	return c.do(httpReq)
}

func (c *Client) getPage(ctx context.Context, pageURL string) (*searchResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build page request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/geo+json")
	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (*searchResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &page, nil
}

func nextLink(links []link) string {
	for _, l := range links {
		if l.Rel == "next" && l.Href != "" {
			return l.Href
		}
	}
	return ""
}
