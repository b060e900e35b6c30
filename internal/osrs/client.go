package osrs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the RuneScape Wiki prices API. The wiki requires a
// descriptive User-Agent on every request.
type Client struct {
	http *resty.Client
}

// NewClient creates a prices API client for the given base URL.
func NewClient(baseURL, userAgent string) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &Client{http: rc}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode())
	}
	return nil
}

// Latest fetches the current high/low snapshot for every tradable item,
// keyed by item ID.
func (c *Client) Latest(ctx context.Context) (map[int]PriceInfo, error) {
	var body latestResponse
	if err := c.get(ctx, "/latest", nil, &body); err != nil {
		return nil, err
	}

	prices := make(map[int]PriceInfo, len(body.Data))
	for key, info := range body.Data {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue // non-numeric keys are not items
		}
		prices[id] = info
	}
	return prices, nil
}

// Mapping fetches the static metadata for all items.
func (c *Client) Mapping(ctx context.Context) ([]ItemMapping, error) {
	var mappings []ItemMapping
	if err := c.get(ctx, "/mapping", nil, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// Timeseries fetches price/volume observations for one item at the given
// granularity, oldest first as served by the API.
func (c *Client) Timeseries(ctx context.Context, itemID int, step Timestep) ([]SeriesPoint, error) {
	var body timeseriesResponse
	params := map[string]string{
		"id":       strconv.Itoa(itemID),
		"timestep": string(step),
	}
	if err := c.get(ctx, "/timeseries", params, &body); err != nil {
		return nil, fmt.Errorf("timeseries for item %d: %w", itemID, err)
	}
	return body.Data, nil
}
