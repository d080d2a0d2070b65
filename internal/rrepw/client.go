package rrepw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/peteski22/prnbridge/internal/remote"
)

// defaultPageSize is the number of PRNs requested per page.
const defaultPageSize = 100

// Client is an RREPW API client.
type Client struct {
	// pageSize is the number of PRNs requested per page.
	pageSize int

	// remote sends requests to RREPW.
	remote *remote.Client
}

// IssuedPrns fetches the PRNs authorised or cancelled within [from, to).
func (c *Client) IssuedPrns(ctx context.Context, from time.Time, to time.Time) ([]Prn, error) {
	var all []Prn
	var cursor string

	for {
		prns, next, err := c.fetchPrnsPage(ctx, from, to, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, prns...)

		if next == "" {
			break
		}
		if next == cursor {
			return nil, fmt.Errorf("fetching issued PRNs: cursor %q repeats", next)
		}
		cursor = next
	}

	return all, nil
}

// UpdatePrnStatus sets the status of a PRN.
func (c *Client) UpdatePrnStatus(ctx context.Context, prnNumber string, update StatusUpdate) error {
	if prnNumber == "" {
		return errors.New("PRN number is required")
	}

	path := fmt.Sprintf("/v1/packaging-recycling-notes/%s/status", url.PathEscape(prnNumber))
	if err := c.remote.Do(ctx, http.MethodPatch, path, update, nil); err != nil {
		return fmt.Errorf("updating status of PRN %s: %w", prnNumber, err)
	}

	return nil
}

// UpsertOrganisation creates or replaces an organisation.
func (c *Client) UpsertOrganisation(ctx context.Context, org Organisation) error {
	if org.ID == "" {
		return errors.New("organisation ID is required")
	}

	path := "/v1/organisations/" + url.PathEscape(org.ID)
	if err := c.remote.Do(ctx, http.MethodPut, path, org, nil); err != nil {
		return fmt.Errorf("upserting organisation %s: %w", org.ID, err)
	}

	return nil
}

// fetchPrnsPage fetches a single page of issued PRNs.
func (c *Client) fetchPrnsPage(ctx context.Context, from time.Time, to time.Time, cursor string) ([]Prn, string, error) {
	params := url.Values{}
	params.Set("statuses", strings.Join([]string{StatusAwaitingAcceptance, StatusCancelled}, ","))
	params.Set("dateFrom", from.UTC().Format(time.RFC3339))
	params.Set("dateTo", to.UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var result prnsResponse
	if err := c.remote.Do(ctx, http.MethodGet, "/v1/packaging-recycling-notes?"+params.Encode(), nil, &result); err != nil {
		return nil, "", fmt.Errorf("fetching issued PRNs: %w", err)
	}

	if !result.HasMore {
		return result.Items, "", nil
	}

	return result.Items, result.NextCursor, nil
}

// NewClient creates a new RREPW API client.
func NewClient(baseURL string, opts ...remote.Option) (*Client, error) {
	rc, err := remote.NewClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating RREPW client: %w", err)
	}

	return &Client{
		pageSize: defaultPageSize,
		remote:   rc,
	}, nil
}
