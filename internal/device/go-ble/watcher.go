package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/groutine"
)

// scanWatcher turns go-ble's blocking Scan into a device.DeviceWatcher.
// Each Start creates a run: a scan goroutine, a goroutine that reports the end
// of the scan window and, with StaleAfter set, a sweeper that reports devices
// that went quiet.
type scanWatcher struct {
	adapter *Adapter
	logger  *logrus.Logger

	mu  sync.Mutex
	run *scanRun
}

type scanRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   <-chan struct{}
	fn     func(device.WatchEvent)
	seen   *hashmap.Map[string, time.Time]
}

func newScanWatcher(a *Adapter) *scanWatcher {
	return &scanWatcher{adapter: a, logger: a.logger}
}

// Start begins a scan pass. It fails if a pass is already running.
func (w *scanWatcher) Start(ctx context.Context, fn func(device.WatchEvent)) error {
	if fn == nil {
		return fmt.Errorf("%w: watch handler is nil", device.ErrInvalidArgument)
	}
	dev, err := w.adapter.device()
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.run != nil {
		return errors.New("device watcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &scanRun{
		ctx:    runCtx,
		cancel: cancel,
		fn:     fn,
		seen:   hashmap.New[string, time.Time](),
	}
	opts := w.adapter.opts

	r.done = groutine.Go(runCtx, "ble-scan", func(ctx context.Context) {
		err := dev.Scan(ctx, true, func(adv ble.Advertisement) { w.advertised(r, adv) })
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.WithError(NormalizeError(err)).Warn("BLE scan ended with error")
		}

		w.mu.Lock()
		if w.run == r {
			w.run = nil
		}
		w.mu.Unlock()
		cancel()

		// delivered without holding the lock, the handler may Start again
		fn(device.WatchEvent{Kind: device.WatcherStopped})
	})

	groutine.Go(runCtx, "ble-scan-window", func(ctx context.Context) {
		t := time.NewTimer(opts.ScanWindow)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			w.deliver(r, device.WatchEvent{Kind: device.EnumerationCompleted})
		}
	})

	if opts.StaleAfter > 0 {
		groutine.Go(runCtx, "ble-scan-sweeper", func(ctx context.Context) {
			w.sweep(ctx, r, opts.StaleAfter)
		})
	}

	w.run = r
	w.logger.WithField("window", opts.ScanWindow).Debug("BLE scan started")
	return nil
}

// Stop cancels the running pass and returns after WatcherStopped was delivered.
func (w *scanWatcher) Stop() error {
	w.mu.Lock()
	r := w.run
	w.run = nil
	w.mu.Unlock()

	if r == nil {
		return nil
	}
	r.cancel()
	<-r.done
	return nil
}

func (w *scanWatcher) advertised(r *scanRun, adv ble.Advertisement) {
	if r.ctx.Err() != nil {
		return
	}

	now := time.Now()
	d := discovered(adv, now)
	if !w.adapter.opts.include(d) {
		return
	}

	_, known := r.seen.Get(d.ID)
	r.seen.Set(d.ID, now)
	if d.Name != "" {
		w.adapter.names.Set(d.ID, d.Name)
	}
	if known {
		return
	}
	w.deliver(r, device.WatchEvent{Kind: device.DeviceAdded, Device: d})
}

func (w *scanWatcher) sweep(ctx context.Context, r *scanRun, staleAfter time.Duration) {
	ticker := time.NewTicker(staleAfter / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			var stale []string
			r.seen.Range(func(id string, last time.Time) bool {
				if now.Sub(last) > staleAfter {
					stale = append(stale, id)
				}
				return true
			})
			for _, id := range stale {
				r.seen.Del(id)
				w.deliver(r, device.WatchEvent{Kind: device.DeviceRemoved, Device: device.DiscoveredDevice{ID: id}})
			}
		}
	}
}

// deliver forwards ev unless the run was cancelled.
func (w *scanWatcher) deliver(r *scanRun, ev device.WatchEvent) {
	if r.ctx.Err() != nil {
		return
	}
	r.fn(ev)
}
