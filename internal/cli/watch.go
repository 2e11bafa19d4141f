package cli

import (
	"context"
	"time"
)

// reloadDebounce lets editors finish writing before definitions are re-read.
const reloadDebounce = 100 * time.Millisecond

// WatchActions reloads the runtime's reducers whenever an action definition
// changes, until ctx ends. It returns immediately when nothing is watchable.
// onReload, if set, is called after every reload attempt with its result.
func WatchActions(ctx context.Context, rt *Runtime, onReload func(event string, err error)) error {
	if rt.Watcher == nil {
		return nil
	}
	events, err := rt.Watcher.Watch(ctx)
	if err != nil {
		return err
	}

	rt.logger.Info("Watching actions", "path", rt.Config.Actions)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			rt.logger.Info("Change detected, reloading actions", "event", event)

			// Coalesce bursts of events from a single save
			timer := time.NewTimer(reloadDebounce)
		drain:
			for {
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case _, ok := <-events:
					if !ok {
						break drain
					}
				case <-timer.C:
					break drain
				}
			}

			err := rt.Reload(ctx)
			if err != nil {
				rt.logger.Error("Reload failed, keeping previous actions", "err", err)
			}
			if onReload != nil {
				onReload(event, err)
			}
		}
	}
}
