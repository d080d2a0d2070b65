package npwd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peteski22/prnbridge/internal/remote"
)

const (
	// prnsPath is the OData entity set of PRNs.
	prnsPath = "/odata/PRNs"

	// producersPath is the OData entity set of producers.
	producersPath = "/odata/Producers"
)

// Client is an NPWD OData API client.
type Client struct {
	// remote sends requests to NPWD.
	remote *remote.Client
}

// IssuedPrns fetches the PRNs issued or cancelled with a status date in [from, to),
// following server-driven paging.
func (c *Client) IssuedPrns(ctx context.Context, from time.Time, to time.Time) ([]Prn, error) {
	params := url.Values{}
	params.Set("$filter", IssuedFilter(from, to))
	params.Set("$orderby", "StatusDate asc")

	var all []Prn
	next := prnsPath + "?" + params.Encode()
	seen := map[string]bool{}

	for next != "" {
		if seen[next] {
			return nil, fmt.Errorf("fetching issued PRNs: next link %q repeats", next)
		}
		seen[next] = true

		var page prnsResponse
		if err := c.remote.Do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, fmt.Errorf("fetching issued PRNs: %w", err)
		}

		all = append(all, page.Value...)
		next = page.NextLink
	}

	return all, nil
}

// PatchPrns sends PRN status changes to NPWD in one call.
func (c *Client) PatchPrns(ctx context.Context, delta PrnDelta) error {
	if delta.Context == "" {
		delta.Context = c.deltaContext("PRNs")
	}

	if err := c.remote.Do(ctx, http.MethodPatch, prnsPath, delta, nil); err != nil {
		return fmt.Errorf("patching %d PRNs: %w", len(delta.Value), err)
	}

	return nil
}

// PatchProducers sends producer changes to NPWD in one call.
func (c *Client) PatchProducers(ctx context.Context, delta ProducerDelta) error {
	if delta.Context == "" {
		delta.Context = c.deltaContext("Producers")
	}

	if err := c.remote.Do(ctx, http.MethodPatch, producersPath, delta, nil); err != nil {
		return fmt.Errorf("patching %d producers: %w", len(delta.Value), err)
	}

	return nil
}

// deltaContext returns the OData delta context URL for an entity set.
func (c *Client) deltaContext(entitySet string) string {
	return strings.TrimRight(c.remote.BaseURL(), "/") + "/odata/$metadata#" + entitySet + "/$delta"
}

// IssuedFilter builds the OData filter selecting issued PRNs with a status date in [from, to).
func IssuedFilter(from time.Time, to time.Time) string {
	statuses := make([]string, 0, len(IssuedStatuses))
	for _, s := range IssuedStatuses {
		statuses = append(statuses, fmt.Sprintf("EvidenceStatusCode eq '%s'", s))
	}

	return fmt.Sprintf(
		"(%s) and StatusDate ge %s and StatusDate lt %s",
		strings.Join(statuses, " or "),
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	)
}

// NewClient creates a new NPWD API client.
func NewClient(baseURL string, opts ...remote.Option) (*Client, error) {
	rc, err := remote.NewClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating NPWD client: %w", err)
	}

	return &Client{remote: rc}, nil
}
