package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"world-builder/internal/domain"
	"world-builder/internal/infra/metrics"
)

const maxFetchBytes = 32 << 20

// Config описывает бакет с изображениями миров.
type Config struct {
	Bucket          string
	PublicBaseURL   string
	CredentialsFile string
}

type writerFunc func(ctx context.Context, key, contentType string) io.WriteCloser

type readerFunc func(ctx context.Context, key string) (io.ReadCloser, error)

// GCS реализует domain.ObjectStorage поверх Google Cloud Storage.
// Объекты своего бакета читаются через клиент, остальные URL (статические ассеты) по HTTP.
type GCS struct {
	client    *storage.Client
	bucket    string
	publicURL string
	newWriter writerFunc
	newReader readerFunc
	http      *http.Client
}

var _ domain.ObjectStorage = (*GCS)(nil)

// NewGCS создаёт клиента хранилища.
func NewGCS(ctx context.Context, cfg Config) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: GCS_BUCKET не задан")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}
	g := &GCS{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
		http:      &http.Client{Timeout: 60 * time.Second},
	}
	g.newWriter = func(ctx context.Context, key, contentType string) io.WriteCloser {
		w := client.Bucket(g.bucket).Object(key).NewWriter(ctx)
		w.ContentType = contentType
		w.CacheControl = "public, max-age=31536000"
		return w
	}
	g.newReader = func(ctx context.Context, key string) (io.ReadCloser, error) {
		return client.Bucket(g.bucket).Object(key).NewReader(ctx)
	}
	return g, nil
}

// Close закрывает клиента GCS.
func (g *GCS) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func publicBase(cfg Config) string {
	if base := strings.TrimSpace(cfg.PublicBaseURL); base != "" {
		return strings.TrimRight(base, "/")
	}
	return "https://storage.googleapis.com/" + cfg.Bucket
}

// PublicURL возвращает публичный адрес объекта.
func (g *GCS) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return g.publicURL + "/" + strings.Join(segments, "/")
}

// Upload записывает объект и возвращает публичный URL.
func (g *GCS) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	key := strings.TrimLeft(path, "/")
	if key == "" {
		return "", fmt.Errorf("storage: пустой путь")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	w := g.newWriter(ctx, key, contentType)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		metrics.ObserveNetworkRequest("gcs", "upload", g.bucket, start, err)
		return "", fmt.Errorf("storage: запись %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		metrics.ObserveNetworkRequest("gcs", "upload", g.bucket, start, err)
		return "", fmt.Errorf("storage: закрытие %s: %w", key, err)
	}
	metrics.ObserveNetworkRequest("gcs", "upload", g.bucket, start, nil)
	return g.PublicURL(key), nil
}

// objectKey возвращает ключ объекта, если URL указывает внутрь публичной базы бакета.
func (g *GCS) objectKey(rawURL string) (string, bool) {
	rest, ok := strings.CutPrefix(rawURL, g.publicURL+"/")
	if !ok || rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return key, true
}

// Fetch скачивает объект: из бакета по ключу либо по публичному URL.
func (g *GCS) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if key, ok := g.objectKey(rawURL); ok && g.newReader != nil {
		return g.fetchObject(ctx, key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("gcs", "fetch", g.bucket, start, err)
		return nil, fmt.Errorf("storage: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		err := fmt.Errorf("storage: fetch %s: status %d", rawURL, resp.StatusCode)
		metrics.ObserveNetworkRequest("gcs", "fetch", g.bucket, start, err)
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	metrics.ObserveNetworkRequest("gcs", "fetch", g.bucket, start, err)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rawURL, err)
	}
	return data, nil
}

func (g *GCS) fetchObject(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	r, err := g.newReader(ctx, key)
	if err != nil {
		metrics.ObserveNetworkRequest("gcs", "read", g.bucket, start, err)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("storage: объект %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: open %s: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, maxFetchBytes))
	metrics.ObserveNetworkRequest("gcs", "read", g.bucket, start, err)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}
