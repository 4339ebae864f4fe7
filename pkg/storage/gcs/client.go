package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/grmc/storefront-backend/pkg/config"
	"github.com/grmc/storefront-backend/pkg/logger"
)

const (
	pingTimeout    = 5 * time.Second
	defaultAPIBase = "https://storage.googleapis.com"
)

// Client talks to the Cloud Storage JSON API for the product and report image buckets.
type Client struct {
	httpClient *http.Client
	apiBase    string
	publicBase string
	buckets    []string
	maxBytes   int64

	tokenSource *tokenSource
}

type Pinger interface {
	Ping(ctx context.Context) error
}

var ErrObjectTooLarge = errors.New("object exceeds upload limit")

func closeBody(ctx context.Context, logg *logger.Logger, body io.Closer, msg string) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil && logg != nil {
		logg.WarnErr(ctx, msg, err)
	}
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, publicBase string, logg *logger.Logger) (*Client, error) {
	buckets := nonEmpty(cfg.ProductsBucket, cfg.ImagesBucket)
	if len(buckets) == 0 {
		return nil, errors.New("at least one gcs bucket is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	var ts *tokenSource
	var err error
	switch {
	case gcp.CredentialsJSON != "":
		ts, err = newServiceAccountTokenSource(httpClient, gcp.CredentialsJSON)
	case gcp.ApplicationCredentials != "":
		bytes, readErr := os.ReadFile(gcp.ApplicationCredentials)
		if readErr != nil {
			return nil, fmt.Errorf("reading credentials file: %w", readErr)
		}
		ts, err = newServiceAccountTokenSource(httpClient, string(bytes))
	default:
		ts = newMetadataTokenSource(httpClient)
	}
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient:  httpClient,
		apiBase:     defaultAPIBase,
		publicBase:  strings.TrimRight(publicBase, "/"),
		buckets:     buckets,
		maxBytes:    cfg.MaxUploadBytes(),
		tokenSource: ts,
	}
	if client.publicBase == "" {
		client.publicBase = defaultAPIBase
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

func (c *Client) Close() error {
	return nil
}

// Ping lists a single object in every configured bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if len(c.buckets) == 0 {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	for _, bucket := range c.buckets {
		u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.apiBase, url.PathEscape(bucket))
		resp, err := c.do(ctx, http.MethodGet, u, "", nil)
		if err != nil {
			return err
		}
		err = statusError(resp, "gcs object check failed", http.StatusOK)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// Upload streams body into bucket/object with a media upload and returns the public URL.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) (string, error) {
	if c == nil || c.tokenSource == nil {
		return "", errors.New("gcs client not initialized")
	}
	bucket = strings.TrimSpace(bucket)
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if bucket == "" || object == "" {
		return "", errors.New("bucket and object are required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if c.maxBytes > 0 {
		body = &limitedReader{r: body, remaining: c.maxBytes}
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiBase, url.PathEscape(bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodPost, u, contentType, body)
	if err != nil {
		if errors.Is(err, ErrObjectTooLarge) {
			return "", ErrObjectTooLarge
		}
		return "", err
	}
	defer func() { closeBody(ctx, nil, resp.Body, "gcs: closing response body failed") }()

	if err := statusError(resp, "gcs upload failed", http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}
	return c.PublicURL(bucket, object), nil
}

// DeleteObject removes bucket/object. A missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" || object == "" {
		return errors.New("bucket and object are required")
	}
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.apiBase, url.PathEscape(bucket), url.PathEscape(object))
	resp, err := c.do(ctx, http.MethodDelete, u, "", nil)
	if err != nil {
		return err
	}
	defer func() { closeBody(ctx, nil, resp.Body, "gcs: closing response body failed") }()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return statusError(resp, "gcs delete failed", http.StatusOK, http.StatusNoContent)
}

// PublicURL is the anonymous read URL for bucket/object.
func (c *Client) PublicURL(bucket, object string) string {
	base := defaultAPIBase
	if c != nil && c.publicBase != "" {
		base = c.publicBase
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, strings.TrimLeft(object, "/"))
}

func (c *Client) do(ctx context.Context, method, u, contentType string, body io.Reader) (*http.Response, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func statusError(resp *http.Response, msg string, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("%s: %s: %s", msg, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("%s: %s", msg, resp.Status)
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrObjectTooLarge
	}
	return n, err
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
