package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/remote"
)

// Client is a common backend API client.
type Client struct {
	// remote sends requests to the backend.
	remote *remote.Client
}

// PrnQuery selects PRN status updates.
type PrnQuery struct {
	// From is the inclusive lower bound of the status date.
	From time.Time

	// SourceSystem restricts results to PRNs from one system, empty for all.
	SourceSystem SourceSystem

	// To is the exclusive upper bound of the status date.
	To time.Time
}

// ProducerEmails returns the contacts to notify about PRNs issued to an organisation.
func (c *Client) ProducerEmails(ctx context.Context, organisationID uuid.UUID) ([]ProducerEmail, error) {
	if organisationID == uuid.Nil {
		return nil, errors.New("organisation ID is required")
	}

	path := fmt.Sprintf("/api/v1/organisations/%s/person-emails", organisationID)

	var result []ProducerEmail
	if err := c.remote.Do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("getting producer emails: %w", err)
	}

	return result, nil
}

// SavePrn creates or updates a PRN.
func (c *Client) SavePrn(ctx context.Context, req *SavePrnRequest) error {
	if req == nil {
		return errors.New("save request is required")
	}

	if err := c.remote.Do(ctx, http.MethodPost, "/api/v2/prn", req, nil); err != nil {
		return fmt.Errorf("saving PRN %s: %w", req.PrnNumber, err)
	}

	return nil
}

// UpdatedPrns returns the PRN status changes within the query window.
func (c *Client) UpdatedPrns(ctx context.Context, q PrnQuery) ([]PrnStatusUpdate, error) {
	params := windowParams(q.From, q.To)
	if q.SourceSystem != "" {
		params.Set("sourceSystem", string(q.SourceSystem))
	}

	var result []PrnStatusUpdate
	if err := c.remote.Do(ctx, http.MethodGet, "/api/v1/prn/ModifiedPrnsByDate?"+params.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("getting updated PRNs: %w", err)
	}

	return result, nil
}

// UpdatedProducers returns the producers and compliance schemes that changed in the window.
func (c *Client) UpdatedProducers(ctx context.Context, from time.Time, to time.Time) ([]UpdatedProducer, error) {
	var result []UpdatedProducer
	path := "/api/v1/organisations/updated?" + windowParams(from, to).Encode()
	if err := c.remote.Do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("getting updated producers: %w", err)
	}

	return result, nil
}

// windowParams encodes a date window as query parameters.
func windowParams(from time.Time, to time.Time) url.Values {
	params := url.Values{}
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))
	return params
}

// NewClient creates a new common backend API client.
func NewClient(baseURL string, opts ...remote.Option) (*Client, error) {
	rc, err := remote.NewClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	return &Client{remote: rc}, nil
}
