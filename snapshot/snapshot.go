// Package snapshot downloads and persists camera images to a
// county-partitioned disk layout, grounded on store.Store.FetchImages'
// fetch-and-cache shape, adapted to spec.md §4.4's fullsize-first/base-URL
// fallback algorithm and size thresholds.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

const (
	fetchTimeout = 15 * time.Second
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// minFullsizeBytes is the "fullsize validity" threshold: a fullsize
	// response at or above this size is accepted without falling back to
	// the base URL (spec.md §4.4).
	minFullsizeBytes = 5000
	// minValidImageBytes rejects a final response as corrupt/placeholder
	// regardless of which URL produced it (spec.md §4.4, invariant #3).
	minValidImageBytes = 1500
)

// Store downloads camera snapshots to a county-partitioned directory tree.
type Store struct {
	baseDir string
	client  *http.Client
	logger  *log.Logger
}

// NewStore creates a Store rooted at baseDir, which is created if absent.
func NewStore(baseDir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create base dir: %w", err)
	}
	return &Store{
		baseDir: baseDir,
		client:  &http.Client{Timeout: fetchTimeout},
		logger:  logger,
	}, nil
}

// BaseDir returns the root directory snapshots are written under, for
// callers that need to serve them back out (server.Start's static route).
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Result describes the outcome of a single Save call.
type Result struct {
	Path  string // path relative to baseDir, empty if no snapshot was stored
	Bytes int
}

// Save implements spec.md §4.4's algorithm: GET the preferred fullsize URL
// if one is given, accepting it only if the response is 200 and at least
// minFullsizeBytes; otherwise (or if no fullsize URL is given) fall back to
// baseURL. The final chosen body is rejected as corrupt below
// minValidImageBytes, and a warning is logged for a body between
// minValidImageBytes and minFullsizeBytes. On success the image is written
// to <baseDir>/<countyNo>/<entityID>_<unixTimestamp>.jpg and the path
// relative to baseDir is returned.
func (s *Store) Save(ctx context.Context, entityID string, countyNo int, baseURL, fullsizeURL string) (Result, error) {
	var body []byte
	var err error

	if fullsizeURL != "" {
		body, err = s.get(ctx, fullsizeURL)
		fullsizeInvalid := err != nil || len(body) < minFullsizeBytes
		canFallBack := baseURL != "" && baseURL != fullsizeURL
		if fullsizeInvalid && canFallBack {
			body, err = s.get(ctx, baseURL)
		}
	} else {
		body, err = s.get(ctx, baseURL)
	}
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: fetch image: %w", err)
	}

	if len(body) < minValidImageBytes {
		return Result{}, fmt.Errorf("snapshot: image too small (%d bytes), rejected as corrupt", len(body))
	}
	if len(body) < minFullsizeBytes && s.logger != nil {
		s.logger.Warn("snapshot below fullsize threshold", "entity_id", entityID, "bytes", len(body))
	}

	filename := fmt.Sprintf("%s_%d.jpg", entityID, time.Now().Unix())
	relPath := filepath.Join(strconv.Itoa(countyNo), filename)
	absPath := filepath.Join(s.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("snapshot: mkdir: %w", err)
	}
	if err := os.WriteFile(absPath, body, 0o644); err != nil {
		return Result{}, fmt.Errorf("snapshot: write file: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("snapshot stored", "entity_id", entityID, "bytes", len(body), "path", relPath)
	}

	return Result{Path: relPath, Bytes: len(body)}, nil
}

func (s *Store) get(ctx context.Context, url string) ([]byte, error) {
	getCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(getCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: build GET request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot: do GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot: image fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read image body: %w", err)
	}
	return body, nil
}
