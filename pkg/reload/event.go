package reload

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.d7z.net/middleware/subscribe"
)

// Topic carries site change notices between the watcher and whoever serves the site.
const Topic = "class-pages/site-changed"

// Notify returns a watcher callback that announces a change on events.
func Notify(ctx context.Context, events subscribe.Subscriber) func() {
	return func() {
		if err := events.Publish(ctx, Topic, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			zap.L().Warn("failed to publish site change", zap.Error(err))
		}
	}
}

// Listen runs handlers, in order, for every change announced on events until ctx ends.
func Listen(ctx context.Context, events subscribe.Subscriber, handlers ...func()) error {
	changes, err := events.Subscribe(ctx, Topic)
	if err != nil {
		return errors.Wrapf(err, "subscribe %s", Topic)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case at, ok := <-changes:
				if !ok {
					return
				}
				zap.L().Debug("site changed", zap.Any("at", at))
				for _, handler := range handlers {
					handler()
				}
			}
		}
	}()
	return nil
}
