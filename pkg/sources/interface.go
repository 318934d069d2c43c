package sources

import (
	"context"

	"github.com/kerbaras/anonclone/pkg/data"
)

type Source interface {
	// FetchManifest retrieves and decodes the file listing of a project.
	FetchManifest(ctx context.Context, projectID string) (data.ManifestNode, error)
	// FileEndpoint is the URL prefix that a file's relative path is appended to.
	FileEndpoint(projectID string) string
	// FetchFile performs a single GET of a file URL.
	FetchFile(ctx context.Context, url string) ([]byte, error)
}
