// Package gcloud builds authenticated HTTP clients for Google Cloud REST
// services (speech recognition and text-to-speech).
package gcloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-pidog/internal/httpc"
)

// CloudPlatformScope is requested when falling back to default credentials.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ErrNoCredentials is returned when neither an API key nor Application
// Default Credentials are available.
var ErrNoCredentials = errors.New("gcloud: no API key and no default credentials")

// Credentials selects how requests are authenticated.
type Credentials struct {
	// APIKey is sent as the key query parameter. Empty means Application
	// Default Credentials.
	APIKey string

	// HTTPClient carries requests (proxy, timeouts). Defaults to httpc.Client.
	HTTPClient *http.Client

	// Endpoint overrides the service base URL.
	Endpoint string

	// NoAuth sends requests without credentials. Used against local fakes.
	NoAuth bool
}

// HTTPClient returns a client that authenticates every request.
func HTTPClient(ctx context.Context, c Credentials) (*http.Client, error) {
	base := c.HTTPClient
	if base == nil {
		base = httpc.Client
	}

	switch {
	case c.NoAuth:
		return base, nil

	case c.APIKey != "":
		return &http.Client{
			Timeout:   base.Timeout,
			Transport: &transport.APIKey{Key: c.APIKey, Transport: base.Transport},
		}, nil
	}

	ts, err := google.DefaultTokenSource(ctx, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
	client.Timeout = base.Timeout
	return client, nil
}

// ClientOptions returns the options for a google.golang.org/api service
// constructor.
func ClientOptions(ctx context.Context, c Credentials) ([]option.ClientOption, error) {
	client, err := HTTPClient(ctx, c)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	return opts, nil
}
