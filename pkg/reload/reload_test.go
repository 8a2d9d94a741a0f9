package reload

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.d7z.net/middleware/subscribe"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + Endpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, Message, string(data))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubRejectsPlainRequests(t *testing.T) {
	hub := NewHub()
	recorder := httptest.NewRecorder()
	hub.ServeHTTP(recorder, httptest.NewRequest("GET", Endpoint, nil))
	assert.Equal(t, 400, recorder.Code)
	assert.Equal(t, 0, hub.Clients())
}

func TestScript(t *testing.T) {
	assert.Contains(t, Script, Endpoint)
	assert.True(t, strings.HasPrefix(Script, "<script>"))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0o755))

	changed := make(chan struct{}, 8)
	watcher, err := NewWatcher(dir, func() {
		changed <- struct{}{}
	}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "HomePage.tmpl"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "HomePage.tmpl"), []byte("b"), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestNotifyListen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var events subscribe.Subscriber = subscribe.NewMemorySubscriber()

	var purged, broadcast atomic.Int32
	require.NoError(t, Listen(ctx, events,
		func() { purged.Add(1) },
		func() { broadcast.Add(1) },
	))
	notify := Notify(ctx, events)
	notify()
	assert.Eventually(t, func() bool {
		return purged.Load() == 1 && broadcast.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatcherPublishesToHub(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var events subscribe.Subscriber = subscribe.NewMemorySubscriber()

	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()
	require.NoError(t, Listen(ctx, events, hub.Broadcast))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+Endpoint, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	watcher, err := NewWatcher(dir, Notify(ctx, events), WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, watcher.Start(ctx))
	defer watcher.Stop()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.yaml"), []byte("title: x"), 0o644))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, Message, string(data))
}
