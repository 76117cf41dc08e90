package aerialmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultHTTPTimeout = 10 * time.Second

// TileFetcher retrieves the raw payload of a single tile. Implementations are
// safe for concurrent use; the cache fans fetches out over goroutines.
type TileFetcher interface {
	Fetch(ctx context.Context, tile TileId) ([]byte, error)
}

// NewTileFetcher builds a fetcher for a tile source string, dispatching on
// the parsed scheme.
func NewTileFetcher(ctx context.Context, source string) (TileFetcher, error) {
	uri, err := ParseURI(source)
	if err != nil {
		return nil, err
	}

	switch uri.Scheme() {
	case HTTPScheme:
		return NewHTTPTileFetcher(uri.Template()), nil
	case FileScheme:
		return NewFileTileFetcher(uri.Template()), nil
	case S3Scheme:
		return NewS3TileFetcher(ctx, uri.Host(), uri.Template())
	default:
		return nil, fmt.Errorf("no fetcher for scheme %q", uri.Scheme())
	}
}

// HTTPTileFetcher loads tiles from an XYZ tile server.
type HTTPTileFetcher struct {
	template string
	client   *http.Client
}

func NewHTTPTileFetcher(template string) *HTTPTileFetcher {
	return &HTTPTileFetcher{
		template: template,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (f *HTTPTileFetcher) Fetch(ctx context.Context, tile TileId) ([]byte, error) {
	url := expandTemplate(f.template, tile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building tile request for %q: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tile %s: %w", tile.Key(), err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching tile %s: unexpected status %d", tile.Key(), resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tile %s body: %w", tile.Key(), err)
	}

	return data, nil
}

// FileTileFetcher loads tiles from a pyramid on the local filesystem.
type FileTileFetcher struct {
	template string
}

func NewFileTileFetcher(template string) *FileTileFetcher {
	return &FileTileFetcher{template: filepath.Clean(template)}
}

func (f *FileTileFetcher) Fetch(_ context.Context, tile TileId) ([]byte, error) {
	path := expandTemplate(f.template, tile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tile file %s: %w", path, err)
	}

	return data, nil
}

// S3TileFetcher loads tiles from an S3 bucket holding an XYZ pyramid.
type S3TileFetcher struct {
	bucket   string
	template string
	client   *s3.Client
}

func NewS3TileFetcher(ctx context.Context, bucket, template string) (*S3TileFetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3TileFetcher{
		bucket:   bucket,
		template: template,
		client:   s3.NewFromConfig(cfg),
	}, nil
}

func (f *S3TileFetcher) Fetch(ctx context.Context, tile TileId) ([]byte, error) {
	key := expandTemplate(f.template, tile)

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching tile s3://%s/%s: %w", f.bucket, key, err)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tile s3://%s/%s body: %w", f.bucket, key, err)
	}

	return data, nil
}
