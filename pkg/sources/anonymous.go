package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/utils"
)

const DefaultBaseURL = "https://anonymous.4open.science"

// Anonymous talks to the anonymized-repository API.
type Anonymous struct {
	api *utils.API
}

func NewAnonymous(api *utils.API) *Anonymous {
	return &Anonymous{api: api}
}

func (a *Anonymous) listURL(projectID string) string {
	return a.api.URL(fmt.Sprintf("/api/repo/%s/files/", url.PathEscape(projectID)))
}

func (a *Anonymous) FileEndpoint(projectID string) string {
	return a.api.URL(fmt.Sprintf("/api/repo/%s/file/", url.PathEscape(projectID)))
}

// FetchManifest checks for the sentinel before any decoding is attempted.
func (a *Anonymous) FetchManifest(ctx context.Context, projectID string) (data.ManifestNode, error) {
	resp, err := a.api.Get(ctx, a.listURL(projectID))
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	if ContainsSentinel(resp.Body) {
		return nil, &RateLimitError{Body: string(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch manifest: %w", &StatusError{Code: resp.StatusCode})
	}

	node, err := data.ParseManifest(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	return node, nil
}

func (a *Anonymous) FetchFile(ctx context.Context, fileURL string) ([]byte, error) {
	resp, err := a.api.Get(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	if ContainsSentinel(resp.Body) {
		return nil, &RateLimitError{Body: string(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	return resp.Body, nil
}
