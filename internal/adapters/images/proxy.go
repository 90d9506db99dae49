// Content-addressable on-disk cache for remote property images. URLs are
// rewritten into local proxy tokens; the bytes are fetched once and reused.
package images

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// RoutePrefix is where the thin HTTP layer serves proxied images.
const RoutePrefix = "/images/"

const maxImageBytes = 20 << 20

var knownExts = []string{"jpg", "jpeg", "png", "gif", "webp"}

var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var contentTypeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

type Proxy struct {
	dir string
	hc  *http.Client
}

func New(dir string, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Proxy{dir: dir, hc: &http.Client{Timeout: timeout}}
}

// TransformURL rewrites an external image URL into its proxy form.
// Idempotent: URLs already in proxy form pass through unchanged.
func (p *Proxy) TransformURL(raw string) string {
	if raw == "" || strings.HasPrefix(raw, RoutePrefix) {
		return raw
	}
	return RoutePrefix + base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeToken recovers the source URL from a proxy token.
func DecodeToken(token string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(b) == 0 {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidImageToken, token)
	}
	return string(b), nil
}

// Fetch serves the image behind a proxy token: disk cache first, download
// and persist on miss.
func (p *Proxy) Fetch(ctx context.Context, token string) ([]byte, string, error) {
	src, err := DecodeToken(token)
	if err != nil {
		return nil, "", err
	}
	return p.fetchSource(ctx, src)
}

// Warm caches one source URL if it isn't cached yet.
func (p *Proxy) Warm(ctx context.Context, url string) error {
	_, _, err := p.fetchSource(ctx, url)
	return err
}

func (p *Proxy) fetchSource(ctx context.Context, src string) ([]byte, string, error) {
	sum := sha1.Sum([]byte(src))
	hash := hex.EncodeToString(sum[:])

	for _, ext := range knownExts {
		b, err := os.ReadFile(filepath.Join(p.dir, hash+"."+ext))
		if err == nil {
			observability.ObserveCache("image", "hit")
			return b, contentTypeByExt[ext], nil
		}
	}
	observability.ObserveCache("image", "miss")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrImageUnavailable, err)
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrImageUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, "", fmt.Errorf("%w: source returned %d", domain.ErrImageUnavailable, resp.StatusCode)
	}

	// read one byte past the cap so truncation is detectable; a truncated
	// image must never be persisted under its content hash
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil || len(b) == 0 {
		return nil, "", fmt.Errorf("%w: read body: %v", domain.ErrImageUnavailable, err)
	}
	if len(b) > maxImageBytes {
		return nil, "", fmt.Errorf("%w: source larger than %d bytes", domain.ErrImageUnavailable, maxImageBytes)
	}

	ct := strings.ToLower(strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]))
	ext, ok := extByContentType[ct]
	if !ok {
		ext = "jpg"
	}

	// write-once content-addressed storage; a concurrent writer of the
	// same hash produces identical bytes, so last-write-wins is harmless
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", p.dir).Msg("image cache dir create failed")
	} else if err := os.WriteFile(filepath.Join(p.dir, hash+"."+ext), b, 0o644); err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("image cache write failed")
	} else {
		observability.ObserveCache("image", "set")
	}

	return b, contentTypeByExt[ext], nil
}
