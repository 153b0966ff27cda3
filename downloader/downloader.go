package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type GetOptions struct {
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

// A thing capable of retrieving a feed archive, optionally with
// caching.
type Downloader interface {
	Get(ctx context.Context, url string, options GetOptions) ([]byte, error)
}

// Fetch retrieves a feed archive. Doesn't cache. Provided as
// convenience for implementing custom Downloaders.
//
// Besides http(s) URLs, file:// URLs and bare filesystem paths are
// accepted, since agencies commonly hand over schedule dumps as plain
// files.
func Fetch(ctx context.Context, url string, options GetOptions) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		path := strings.TrimPrefix(url, "file://")
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if options.MaxSize > 0 && len(body) > options.MaxSize {
			return nil, fmt.Errorf("%s exceeds max size %d", path, options.MaxSize)
		}
		return body, nil
	}

	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if options.MaxSize > 0 {
		reader = io.LimitReader(resp.Body, int64(options.MaxSize))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}
