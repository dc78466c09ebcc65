// Package schemaload implements schema.Loader by delegating to file, fs.FS,
// or HTTP strategies.
package schemaload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// Loader fetches definition documents and parses them.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

var _ schema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options schema.LoaderOptions) schema.Loader {
	loader := &Loader{
		fs:      options.FileSystem,
		timeout: options.RequestTimeout,
	}

	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if loader.timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = loader.timeout
		}
		loader.http = &clone
	case options.AllowHTTPFallback:
		loader.http = &http.Client{Timeout: loader.timeout}
	}

	return loader
}

// Load fetches a document from the provided source and parses it into a form
// definition.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.FormDefinition, error) {
	if src == nil {
		return schema.FormDefinition{}, errors.New("schemaload: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return schema.FormDefinition{}, err
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case schema.SourceKindFile:
		data, err = l.readFile(src.Location())
	case schema.SourceKindFS:
		data, err = l.readFS(src.Location())
	case schema.SourceKindURL:
		data, err = l.fetch(ctx, src.Location())
	default:
		err = fmt.Errorf("schemaload: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return schema.FormDefinition{}, err
	}

	return schema.ParseDefinition(data)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("schemaload: file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemaload: read %s: %w", path, err)
	}
	return data, nil
}

func (l *Loader) readFS(name string) ([]byte, error) {
	if l.fs == nil {
		return nil, errors.New("schemaload: no filesystem configured for fs sources")
	}
	data, err := fs.ReadFile(l.fs, name)
	if err != nil {
		return nil, fmt.Errorf("schemaload: read %s: %w", name, err)
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if l.http == nil {
		return nil, errors.New("schemaload: http support disabled")
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("schemaload: build request: %w", err)
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schemaload: fetch %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("schemaload: fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
