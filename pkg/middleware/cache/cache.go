package cache

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

type Content struct {
	io.ReadSeekCloser
	Length       int
	LastModified time.Time
}

func (c *Content) ReadToString() (string, error) {
	all, err := io.ReadAll(c)
	if err != nil {
		return "", err
	}
	return string(all), nil
}

type Cache interface {
	Put(key string, reader io.Reader) error
	// Get return Content or nil when put nil io.reader
	Get(key string) (*Content, error)
	// Delete removes every key that starts with prefix
	Delete(prefix string) error
	io.Closer
}

var ErrCacheOutOfMemory = errors.New("内容无法被缓存，超过最大限定值")
