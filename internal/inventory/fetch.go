package inventory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// UserAgent is sent with every inventory download.
var UserAgent = "snakedown/dev"

var httpClient = &http.Client{Timeout: 60 * time.Second}

// maxConcurrentFetches bounds parallel downloads in FillCache.
const maxConcurrentFetches = 4

// Source is an external documentation site that publishes an inventory.
type Source struct {
	// Key names the cache file and is unique per run.
	Key string
	// URL is the root of the documentation site.
	URL string
}

// BaseURL returns the site root with a trailing slash, so relative
// locations resolve beneath it rather than replacing its last segment.
func BaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url %q is not absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// CachePath returns where the inventory for key is stored under cacheDir.
func CachePath(cacheDir, key string) string {
	return filepath.Join(cacheDir, "sphinx", strings.ToLower(key)+".inv")
}

// Fetch downloads objects.inv from the documentation site at siteURL.
func Fetch(ctx context.Context, siteURL string) ([]byte, error) {
	base, err := BaseURL(siteURL)
	if err != nil {
		return nil, err
	}
	invURL := base.JoinPath("objects.inv").String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, invURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", invURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s returned %d: %s", invURL, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", invURL, err)
	}
	return data, nil
}

// HasCache reports whether an inventory for key is already on disk.
func HasCache(cacheDir, key string) bool {
	_, err := os.Stat(CachePath(cacheDir, key))
	return err == nil
}

// Cache downloads the inventory for src into cacheDir unless it is
// already present. force always downloads.
func Cache(ctx context.Context, src Source, cacheDir string, force bool) error {
	path := CachePath(cacheDir, src.Key)
	if !force && HasCache(cacheDir, src.Key) {
		slog.Debug("inventory already cached", "key", src.Key, "path", path)
		return nil
	}

	slog.Info("fetching inventory", "key", src.Key, "url", src.URL)
	data, err := Fetch(ctx, src.URL)
	if err != nil {
		return fmt.Errorf("fetching inventory %s: %w", src.Key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating inventory cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), src.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("moving cache file into place: %w", err)
	}
	return nil
}

// FillCache makes sure every source has a cached inventory. Downloads run
// concurrently; FillCache returns once all of them have finished.
func FillCache(ctx context.Context, sources []Source, cacheDir string, force bool) error {
	sorted := append([]Source(nil), sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, src := range sorted {
		g.Go(func() error {
			return Cache(ctx, src, cacheDir, force)
		})
	}
	return g.Wait()
}

// ClearCache removes every cached inventory under cacheDir and returns
// how many files were deleted.
func ClearCache(cacheDir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(cacheDir, "sphinx", "*.inv"))
	if err != nil {
		return 0, fmt.Errorf("listing cached inventories: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return 0, fmt.Errorf("removing %s: %w", m, err)
		}
	}
	return len(matches), nil
}
