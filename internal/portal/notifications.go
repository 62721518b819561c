package portal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/backend"
)

// notifier runs one notification poller per authenticated reviewer
// session. Pollers are attached to their Session, so logout, forced logout
// and idle eviction all stop them.
type notifier struct {
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	feeds map[string]*feed
}

// feed is the latest notification snapshot of one session.
type feed struct {
	task *goAttend.Task

	mu    sync.RWMutex
	items []backend.Notification
}

func newNotifier(interval time.Duration, logger *slog.Logger) *notifier {
	return &notifier{
		interval: interval,
		logger:   logger,
		feeds:    make(map[string]*feed),
	}
}

// Items returns a copy of the latest snapshot.
func (f *feed) Items() []backend.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.items == nil {
		return nil
	}
	return append([]backend.Notification(nil), f.items...)
}

func (f *feed) set(items []backend.Notification) {
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

func (f *feed) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items[:0]
	for _, n := range f.items {
		if n.ID != id {
			out = append(out, n)
		}
	}
	f.items = out
}

// ensure returns the live feed for sess, starting a poller when there is
// none or the previous one has stopped. Sessions that are not
// authenticated get an empty feed and no poller.
func (n *notifier) ensure(sess *goAttend.Session) *feed {
	if !sess.IsAuthenticated() {
		return &feed{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	sid := sess.ID()
	if f, ok := n.feeds[sid]; ok {
		select {
		case <-f.task.Done():
		default:
			return f
		}
	}

	f := &feed{}
	api := backend.New(sess.API())
	logger := n.logger.With("session_id", sid)
	f.task = goAttend.StartPeriodic(context.Background(), "notifications", n.interval, func(ctx context.Context) {
		items, err := api.Notifications(ctx)
		if err != nil {
			if sess.ForceLogout(ctx, err) {
				return
			}
			if ctx.Err() == nil {
				logger.Warn("notification poll failed", "error", err)
			}
			return
		}
		f.set(items)
	})
	sess.Attach(f.task)
	n.feeds[sid] = f

	go func() {
		<-f.task.Done()
		n.mu.Lock()
		if n.feeds[sid] == f {
			delete(n.feeds, sid)
		}
		n.mu.Unlock()
	}()
	return f
}

func (n *notifier) markRead(sid, id string) {
	n.mu.Lock()
	f := n.feeds[sid]
	n.mu.Unlock()
	if f != nil {
		f.remove(id)
	}
}

func (n *notifier) active() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.feeds)
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	feeds := make([]*feed, 0, len(n.feeds))
	for _, f := range n.feeds {
		feeds = append(feeds, f)
	}
	n.mu.Unlock()

	for _, f := range feeds {
		f.task.Stop()
	}
}
