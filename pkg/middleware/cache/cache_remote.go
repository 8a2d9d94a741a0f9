package cache

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	mcache "gopkg.d7z.net/middleware/cache"

	"gopkg.d7z.net/class-pages/pkg/utils"
)

// DefaultTTL applies when no ttl is configured.
const DefaultTTL = time.Hour

// CacheRemote stores rendered pages in a gopkg.d7z.net/middleware cache (memory://, redis:// ...)
// so every server behind the same backend shares them.
type CacheRemote struct {
	base     mcache.Cache
	closer   io.Closer
	sizeItem int
	ttl      time.Duration

	// keys live below a generation child; Delete switches to a fresh one and lets the old expire
	generation atomic.Int64
}

func NewCacheRemote(base mcache.Cache, maxUsage int, ttl time.Duration) *CacheRemote {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &CacheRemote{
		base:     base,
		sizeItem: maxUsage,
		ttl:      ttl,
	}
	if closer, ok := base.(io.Closer); ok {
		c.closer = closer
	}
	// a restarted process must not pick up pages rendered from older sources
	c.generation.Store(time.Now().UnixNano())
	return c
}

func NewCacheFromURL(url string, maxUsage int, ttl time.Duration) (*CacheRemote, error) {
	base, err := mcache.NewCacheFromURL(url)
	if err != nil {
		return nil, errors.Wrapf(err, "open page cache %s", url)
	}
	return NewCacheRemote(base, maxUsage, ttl), nil
}

func (c *CacheRemote) current() mcache.Cache {
	return c.base.Child("pages", strconv.FormatInt(c.generation.Load(), 36))
}

func (c *CacheRemote) Put(key string, reader io.Reader) error {
	ctx := context.Background()
	if reader == nil {
		return c.current().Put(ctx, key, map[string]string{
			"404": "true",
		}, bytes.NewBuffer(nil), c.ttl)
	}
	data, err := io.ReadAll(io.LimitReader(reader, int64(c.sizeItem)+1))
	if err != nil {
		return err
	}
	if len(data) > c.sizeItem {
		return ErrCacheOutOfMemory
	}
	return c.current().Put(ctx, key, map[string]string{
		"Content-Length": strconv.Itoa(len(data)),
		"Last-Modified":  time.Now().UTC().Format(http.TimeFormat),
	}, bytes.NewReader(data), c.ttl)
}

func (c *CacheRemote) Get(key string) (*Content, error) {
	content, err := c.current().Get(context.Background(), key)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}
	defer content.Close()
	if content.Metadata["404"] == "true" {
		return nil, nil
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	lastMod, err := time.Parse(http.TimeFormat, content.Metadata["Last-Modified"])
	if err != nil {
		lastMod = time.Now()
	}
	return &Content{
		ReadSeekCloser: utils.NopCloser{
			ReadSeeker: bytes.NewReader(data),
		},
		Length:       len(data),
		LastModified: lastMod,
	}, nil
}

// Delete drops every key, the backend has no prefix scan.
func (c *CacheRemote) Delete(prefix string) error {
	next := time.Now().UnixNano()
	if prev := c.generation.Load(); next <= prev {
		next = prev + 1
	}
	c.generation.Store(next)
	zap.L().Debug("page cache generation switched", zap.String("prefix", prefix), zap.Int64("generation", next))
	return nil
}

func (c *CacheRemote) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
