package cache

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheGetPutDelete(t *testing.T) {
	memory := NewCacheMemory(1024, 10240)

	require.NoError(t, memory.Put("hello", strings.NewReader("world")))

	value, err := memory.Get("hello")
	require.NoError(t, err)
	all, err := io.ReadAll(value)
	require.NoError(t, err)
	require.Equal(t, "world", string(all))
	require.Equal(t, 5, memory.current)

	require.NoError(t, memory.Put("hello", strings.NewReader("kotlin")))

	value, err = memory.Get("hello")
	require.NoError(t, err)
	all, err = io.ReadAll(value)
	require.NoError(t, err)
	require.Equal(t, "kotlin", string(all))
	require.Equal(t, 6, memory.current)
	require.Equal(t, 1, memory.Len())

	require.NoError(t, memory.Put("data", strings.NewReader("kotlin")))
	require.Equal(t, 12, memory.current)
	require.Equal(t, 2, memory.Len())

	require.NoError(t, memory.Delete("hello"))
	_, err = memory.Get("hello")
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, 1, memory.Len())
	require.Equal(t, 6, memory.current)

	require.NoError(t, memory.Put("hello", nil))
	value, err = memory.Get("hello")
	require.NoError(t, err)
	require.Nil(t, value)
	require.Equal(t, 6, memory.current)
}

func TestCacheDeletePrefix(t *testing.T) {
	memory := NewCacheMemory(1024, 10240)
	require.NoError(t, memory.Put("page/", strings.NewReader("home")))
	require.NoError(t, memory.Put("page/contact", strings.NewReader("contact")))
	require.NoError(t, memory.Put("asset/app.css", strings.NewReader("body{}")))

	require.NoError(t, memory.Delete("page/"))
	require.Equal(t, 1, memory.Len())
	require.Equal(t, 6, memory.current)

	require.NoError(t, memory.Delete(""))
	require.Equal(t, 0, memory.Len())
	require.Equal(t, 0, memory.current)
}

func TestCacheLimit(t *testing.T) {
	memory := NewCacheMemory(5, 5*5)
	require.NoError(t, memory.Put("hello", strings.NewReader("world")))
	require.Equal(t, 5, memory.current)
	require.ErrorIs(t, memory.Put("hello", strings.NewReader("world1")), ErrCacheOutOfMemory)
	require.Equal(t, 5, memory.current)
	for i := 0; i < 4; i++ {
		require.NoError(t, memory.Put(fmt.Sprintf("hello-%d", i), strings.NewReader("govet")))
	}
	value, err := memory.Get("hello")
	require.NoError(t, err)
	all, err := io.ReadAll(value)
	require.NoError(t, err)
	require.Equal(t, "world", string(all))

	// hello was read last, hello-0 is now the oldest entry
	require.NoError(t, memory.Put("test", strings.NewReader("govet")))

	_, err = memory.Get("hello-0")
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = memory.Get("hello")
	require.NoError(t, err)

	require.Equal(t, 5, memory.Len())
	require.Equal(t, 25, memory.current)
}

func TestCacheClose(t *testing.T) {
	memory := NewCacheMemory(16, 64)
	require.NoError(t, memory.Put("a", strings.NewReader("1234")))
	require.NoError(t, memory.Close())
	_, err := memory.Get("a")
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, 0, memory.current)
}
