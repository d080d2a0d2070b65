package remote

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Credentials holds OAuth2 client credentials grant settings.
type Credentials struct {
	// ClientID is the OAuth client identifier.
	ClientID string

	// ClientSecret is the OAuth client secret.
	ClientSecret string

	// EndpointParams are extra form values sent to the token endpoint.
	EndpointParams map[string][]string

	// Scopes are the requested scopes.
	Scopes []string

	// TokenURL is the token endpoint.
	TokenURL string
}

// validate checks that all required Credentials fields are set.
func (c *Credentials) validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("client ID is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("client secret is required"))
	}
	if c.TokenURL == "" {
		errs = append(errs, errors.New("token URL is required"))
	}
	return errors.Join(errs...)
}

// authenticatedClient wraps base so that requests carry a bearer token.
// Tokens are cached and refreshed by the returned client; token requests go through base.
func authenticatedClient(creds Credentials, base *http.Client) *http.Client {
	cfg := clientcredentials.Config{
		ClientID:       creds.ClientID,
		ClientSecret:   creds.ClientSecret,
		EndpointParams: creds.EndpointParams,
		Scopes:         creds.Scopes,
		TokenURL:       creds.TokenURL,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cfg.Client(ctx)
	client.Timeout = base.Timeout

	return client
}
