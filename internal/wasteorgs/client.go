package wasteorgs

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/remote"
)

// Client is a waste organisations registry client.
type Client struct {
	// remote sends requests to the registry.
	remote *remote.Client
}

// PutOrganisation creates or replaces an organisation.
func (c *Client) PutOrganisation(ctx context.Context, org Organisation) error {
	if org.ID == uuid.Nil {
		return errors.New("organisation ID is required")
	}

	path := fmt.Sprintf("/organisations/%s", org.ID)
	if err := c.remote.Do(ctx, http.MethodPut, path, org, nil); err != nil {
		return fmt.Errorf("putting organisation %s: %w", org.ID, err)
	}

	return nil
}

// NewClient creates a new waste organisations registry client.
func NewClient(baseURL string, opts ...remote.Option) (*Client, error) {
	rc, err := remote.NewClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating waste organisations client: %w", err)
	}

	return &Client{remote: rc}, nil
}
