// Package assetcache keeps a versioned offline mirror of the application's
// static assets.
//
// Each cache generation is one directory named with the application prefix
// plus a version tag. Installing a generation fetches the full asset
// manifest from the origin all-or-nothing; activating it deletes every
// other generation this application created. Served GET requests follow a
// stale-while-revalidate policy: a cached entry is returned immediately and
// refreshed from the network in the background.
package assetcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Prefix marks generation directories created by this application, so
// activation never touches unrelated directories sharing the cache root.
const Prefix = "platebook-assets-"

// DefaultTimeout bounds each origin fetch.
const DefaultTimeout = 30 * time.Second

// Cache is a disk-backed generational mirror of an upstream asset origin.
type Cache struct {
	root       string
	generation string
	origin     *url.URL
	manifest   []string
	client     *http.Client
	proxy      *httputil.ReverseProxy
	log        zerolog.Logger

	mu sync.Mutex // serializes entry writes

	revalidated func(key string) // test hook, called after a background refresh attempt
}

// New creates a cache rooted at dir for the given generation name. The
// generation must carry the application prefix.
func New(dir, generation, origin string, manifest []string, log zerolog.Logger) (*Cache, error) {
	if !strings.HasPrefix(generation, Prefix) {
		return nil, fmt.Errorf("generation %q must start with %q", generation, Prefix)
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}

	return &Cache{
		root:       dir,
		generation: generation,
		origin:     originURL,
		manifest:   manifest,
		client:     &http.Client{Timeout: DefaultTimeout},
		proxy:      httputil.NewSingleHostReverseProxy(originURL),
		log:        log,
	}, nil
}

// Generation returns the active generation name.
func (c *Cache) Generation() string { return c.generation }

func (c *Cache) generationDir() string {
	return filepath.Join(c.root, c.generation)
}

// Install fetches every manifest asset into this generation. Population is
// all-or-nothing: a single failed fetch discards the partial generation and
// leaves any previously installed generations untouched. Installing an
// already present generation is a no-op.
func (c *Cache) Install(ctx context.Context) error {
	genDir := c.generationDir()
	if _, err := os.Stat(genDir); err == nil {
		return nil
	}

	staging := genDir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}

	for _, path := range c.manifest {
		body, contentType, err := c.fetch(ctx, path)
		if err != nil {
			os.RemoveAll(staging)
			return fmt.Errorf("install %s: %w", path, err)
		}
		if err := writeEntry(staging, path, body, contentType); err != nil {
			os.RemoveAll(staging)
			return fmt.Errorf("store %s: %w", path, err)
		}
	}

	if err := os.Rename(staging, genDir); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("commit generation: %w", err)
	}

	c.log.Info().Str("generation", c.generation).Int("assets", len(c.manifest)).
		Msg("asset cache generation installed")
	return nil
}

// Activate removes every other generation created by this application,
// identified by the directory name prefix. The active generation and
// unrelated directories are kept.
func (c *Cache) Activate() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return fmt.Errorf("list cache root: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, Prefix) || name == c.generation {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, name)); err != nil {
			return fmt.Errorf("remove generation %s: %w", name, err)
		}
		c.log.Info().Str("generation", name).Msg("superseded asset cache generation removed")
	}
	return nil
}

// Generations lists this application's generation directories under the
// cache root, in directory order.
func (c *Cache) Generations() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), Prefix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// ServeHTTP serves GET requests from the cache with stale-while-revalidate
// semantics. A cached entry is written to the client immediately while a
// background fetch refreshes it; a miss waits on the origin fetch itself.
// Non-GET requests bypass the cache entirely.
func (c *Cache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.proxy.ServeHTTP(w, r)
		return
	}

	key := requestKey(r.URL)
	body, contentType, err := c.readEntry(key)
	if err == nil {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		_, _ = w.Write(body)

		go c.revalidate(key)
		return
	}

	// No cached fallback: the caller waits on the network itself.
	body, contentType, err = c.fetch(r.Context(), key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("asset fetch failed with no cached fallback")
		http.Error(w, "asset origin unreachable", http.StatusBadGateway)
		return
	}
	if err := c.store(key, body, contentType); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to cache fetched asset")
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	_, _ = w.Write(body)
}

// revalidate refreshes one cached entry from the origin. A network failure
// leaves the already served cached entry standing.
func (c *Cache) revalidate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	body, contentType, err := c.fetch(ctx, key)
	if err == nil {
		if err := c.store(key, body, contentType); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to refresh cached asset")
		}
	}

	if c.revalidated != nil {
		c.revalidated(key)
	}
}

func (c *Cache) fetch(ctx context.Context, key string) ([]byte, string, error) {
	ref, err := url.Parse(key)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.origin.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("origin returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Cache) store(key string, body []byte, contentType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeEntry(c.generationDir(), key, body, contentType)
}

func (c *Cache) readEntry(key string) ([]byte, string, error) {
	base := filepath.Join(c.generationDir(), entryName(key))
	body, err := os.ReadFile(base)
	if err != nil {
		return nil, "", err
	}

	var meta entryMeta
	if raw, err := os.ReadFile(base + ".meta"); err == nil {
		_ = json.Unmarshal(raw, &meta)
	}
	return body, meta.ContentType, nil
}

type entryMeta struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// requestKey is the full request identity the cache is keyed by.
func requestKey(u *url.URL) string {
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func entryName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// writeEntry stores one body+meta pair atomically via rename, so a reader
// never observes a half-written entry.
func writeEntry(dir, key string, body []byte, contentType string) error {
	base := filepath.Join(dir, entryName(key))

	tmp := base + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, base); err != nil {
		return err
	}

	meta, err := json.Marshal(entryMeta{Key: key, ContentType: contentType, FetchedAt: time.Now()})
	if err != nil {
		return err
	}
	tmpMeta := base + ".meta.tmp"
	if err := os.WriteFile(tmpMeta, meta, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpMeta, base+".meta")
}
