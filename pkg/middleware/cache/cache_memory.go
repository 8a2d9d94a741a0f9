package cache

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"gopkg.d7z.net/class-pages/pkg/utils"
)

// MaxEntries bounds the number of keys, negative entries included.
const MaxEntries = 1 << 16

type memoryItem struct {
	data         []byte
	missing      bool
	lastModified time.Time
}

// CacheMemory 内存缓存，按字节限制单项与总量，超出时淘汰最久未使用的内容
type CacheMemory struct {
	l          sync.Mutex
	items      *lru.Cache[string, *memoryItem]
	sizeGlobal int
	sizeItem   int

	current int
}

func NewCacheMemory(maxUsage, maxGlobalUsage int) *CacheMemory {
	c := &CacheMemory{
		sizeGlobal: maxGlobalUsage,
		sizeItem:   maxUsage,
	}
	// callbacks run synchronously inside calls made while c.l is held
	items, err := lru.NewWithEvict[string, *memoryItem](MaxEntries, func(_ string, value *memoryItem) {
		c.current -= len(value.data)
	})
	if err != nil {
		panic(err)
	}
	c.items = items
	return c
}

func (c *CacheMemory) Put(key string, reader io.Reader) error {
	item := &memoryItem{lastModified: time.Now()}
	// 可以指定空的 reader 作为 404 缓存
	if reader == nil {
		item.missing = true
	} else {
		data, err := io.ReadAll(io.LimitReader(reader, int64(c.sizeItem)+1))
		if err != nil {
			return err
		}
		if len(data) > c.sizeItem || len(data) > c.sizeGlobal {
			return ErrCacheOutOfMemory
		}
		item.data = data
	}

	c.l.Lock()
	defer c.l.Unlock()
	c.items.Remove(key)
	for c.current+len(item.data) > c.sizeGlobal {
		if _, _, ok := c.items.RemoveOldest(); !ok {
			return ErrCacheOutOfMemory
		}
	}
	c.items.Add(key, item)
	c.current += len(item.data)
	return nil
}

func (c *CacheMemory) Get(key string) (*Content, error) {
	c.l.Lock()
	defer c.l.Unlock()
	item, ok := c.items.Get(key)
	if !ok {
		return nil, os.ErrNotExist
	}
	if item.missing {
		return nil, nil
	}
	return &Content{
		ReadSeekCloser: utils.NopCloser{
			ReadSeeker: bytes.NewReader(item.data),
		},
		Length:       len(item.data),
		LastModified: item.lastModified,
	}, nil
}

func (c *CacheMemory) Delete(prefix string) error {
	c.l.Lock()
	defer c.l.Unlock()
	for _, key := range c.items.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.items.Remove(key)
		}
	}
	return nil
}

func (c *CacheMemory) Len() int {
	c.l.Lock()
	defer c.l.Unlock()
	return c.items.Len()
}

func (c *CacheMemory) Close() error {
	c.l.Lock()
	defer c.l.Unlock()
	c.items.Purge()
	c.current = 0
	return nil
}
