package schema

import (
	"context"
	"io/fs"
	"net/http"
	"time"
)

// Loader resolves a Source into a parsed, validated form definition.
type Loader interface {
	Load(ctx context.Context, src Source) (FormDefinition, error)
}

// LoaderOptions configures loader construction. Zero values disable the
// corresponding strategy: a nil FileSystem rejects fs sources, and URL
// sources require either an explicit HTTPClient or AllowHTTPFallback.
type LoaderOptions struct {
	FileSystem        fs.FS
	HTTPClient        *http.Client
	AllowHTTPFallback bool
	RequestTimeout    time.Duration
}
