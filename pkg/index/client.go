package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/probitylabs/probity/pkg/cache"
	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/httputil"
)

// DefaultIndexURL is the canonical simple index.
const DefaultIndexURL = "https://pypi.org/simple/"

// Options configures an index Client.
type Options struct {
	IndexURL     string               // simple index base URL (default: DefaultIndexURL)
	JSONIndexURL string               // JSON index base URL (default: derived from IndexURL)
	Cache        cache.Cache          // response cache (default: no caching)
	CacheTTL     time.Duration        // how long index responses stay fresh
	HTTPClient   *http.Client         // default: a pooled client with timeouts
	Strict       bool                 // fail on malformed index entries instead of skipping
	Logf         func(string, ...any) // skipped-entry reporting (optional)
}

// Client fetches and parses package metadata from the index. It prefers
// the JSON format (hashes, upload times, yank status) and falls back to
// the simple listing when asked.
//
// All methods are safe for concurrent use.
type Client struct {
	http     *http.Client
	cache    cache.Cache
	ttl      time.Duration
	indexURL string
	jsonURL  string
	strict   bool
	logf     func(string, ...any)
}

// NewClient creates an index client. Zero-value Options give a PyPI client
// with no response caching.
func NewClient(opts Options) *Client {
	indexURL := opts.IndexURL
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	if !strings.HasSuffix(indexURL, "/") {
		indexURL += "/"
	}
	jsonURL := opts.JSONIndexURL
	if jsonURL == "" {
		// pypi.org/simple/ → pypi.org; mirrors that serve only one format
		// can point both URLs at the same place.
		jsonURL = strings.TrimSuffix(indexURL, "simple/")
	}
	if !strings.HasSuffix(jsonURL, "/") {
		jsonURL += "/"
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = httputil.NewHTTPClient()
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Client{
		http:     httpc,
		cache:    c,
		ttl:      opts.CacheTTL,
		indexURL: indexURL,
		jsonURL:  jsonURL,
		strict:   opts.Strict,
		logf:     logf,
	}
}

// Package fetches and parses the catalog for name. With useJSON it reads
// the JSON document; otherwise the simple listing. With refresh the
// response cache is bypassed (the fresh response is still stored).
func (c *Client) Package(ctx context.Context, name string, useJSON, refresh bool) (*Package, error) {
	name = NormalizeName(name)

	var url, key string
	if useJSON {
		url = fmt.Sprintf("%spypi/%s/json", c.jsonURL, name)
		key = "index:json:" + name
	} else {
		url = fmt.Sprintf("%s%s/", c.indexURL, name)
		key = "index:simple:" + name
	}

	body, err := c.fetch(ctx, url, key, refresh)
	if err != nil {
		return nil, err
	}

	var p *Package
	if useJSON {
		p, err = ParseJSON(name, bytes.NewReader(body), c.strict, c.logf)
	} else {
		p, err = ParseSimple(name, bytes.NewReader(body), c.strict, c.logf)
	}
	if err != nil {
		return nil, err
	}
	if len(p.Releases) == 0 {
		return nil, errors.New(errors.ErrCodePackageNotFound, "no releases for %s", name)
	}
	return p, nil
}

// fetch returns the response body for url, consulting the response cache
// first. Transient transport failures are retried with backoff; a 404
// surfaces as PACKAGE_NOT_FOUND without retrying.
func (c *Client) fetch(ctx context.Context, url, key string, refresh bool) ([]byte, error) {
	if !refresh {
		if data, hit, _ := c.cache.Get(ctx, key); hit {
			return data, nil
		}
	}

	var body []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return httputil.Retryable(errors.Wrap(errors.ErrCodeTransport, err, "fetch %s", url))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			return errors.New(errors.ErrCodePackageNotFound, "%s returned 404", url)
		case resp.StatusCode >= 500:
			return httputil.Retryable(errors.New(errors.ErrCodeTransport, "%s returned %d", url, resp.StatusCode))
		default:
			return errors.New(errors.ErrCodeTransport, "%s returned %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return httputil.Retryable(errors.Wrap(errors.ErrCodeTransport, err, "read %s", url))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(ctx, key, body, c.ttl)
	return body, nil
}
