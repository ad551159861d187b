package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
)

// DefaultPollInterval is how often an active student dashboard refetches.
const DefaultPollInterval = 30 * time.Second

// StudentLister fetches one student's requests. *odclient.Client satisfies it.
type StudentLister interface {
	ListByStudent(ctx context.Context, email string) ([]odclient.Request, error)
}

// StudentDashboardOption configures a StudentDashboard.
type StudentDashboardOption func(*StudentDashboard)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) StudentDashboardOption {
	return func(s *StudentDashboard) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRefreshHook runs after every fetch, successful or not.
func WithRefreshHook(fn func([]odclient.Request, error)) StudentDashboardOption {
	return func(s *StudentDashboard) { s.onRefresh = fn }
}

// WithDashboardLogger sets the logger used for poll failures.
func WithDashboardLogger(l *zap.Logger) StudentDashboardOption {
	return func(s *StudentDashboard) {
		if l != nil {
			s.logger = l
		}
	}
}

// StudentDashboard keeps a student's request history fresh while active.
type StudentDashboard struct {
	client    StudentLister
	email     string
	interval  time.Duration
	logger    *zap.Logger
	onRefresh func([]odclient.Request, error)

	mu          sync.RWMutex
	requests    []odclient.Request
	lastUpdated time.Time
	lastErr     error

	pollMu    sync.Mutex
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// NewStudentDashboard returns an inactive dashboard for email.
func NewStudentDashboard(client StudentLister, email string, opts ...StudentDashboardOption) *StudentDashboard {
	d := &StudentDashboard{
		client:   client,
		email:    email,
		interval: DefaultPollInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Activate fetches immediately and then every poll interval until Deactivate.
// A poll is rescheduled while the previous fetch is still running. The error of
// the initial fetch is returned but polling starts regardless. Calling Activate
// on an active dashboard does nothing.
func (d *StudentDashboard) Activate(ctx context.Context) error {
	d.pollMu.Lock()
	defer d.pollMu.Unlock()
	if d.scheduler != nil {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create poll scheduler: %w", err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	_, err = scheduler.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(func() {
			if err := d.Refresh(pollCtx); err != nil && pollCtx.Err() == nil {
				d.logger.Warn("od history poll failed", zap.String("email", d.email), zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return fmt.Errorf("schedule od history poll: %w", err)
	}

	firstErr := d.Refresh(pollCtx)

	scheduler.Start()
	d.scheduler = scheduler
	d.cancel = cancel
	return firstErr
}

// Deactivate stops polling and waits for an in-flight fetch to return.
func (d *StudentDashboard) Deactivate() {
	d.pollMu.Lock()
	defer d.pollMu.Unlock()
	if d.scheduler == nil {
		return
	}
	d.cancel()
	if err := d.scheduler.Shutdown(); err != nil {
		d.logger.Warn("poll scheduler shutdown", zap.Error(err))
	}
	d.scheduler = nil
	d.cancel = nil
}

// Active reports whether polling is running.
func (d *StudentDashboard) Active() bool {
	d.pollMu.Lock()
	defer d.pollMu.Unlock()
	return d.scheduler != nil
}

// Refresh fetches the list now. On failure the previous list is kept.
func (d *StudentDashboard) Refresh(ctx context.Context) error {
	list, err := d.client.ListByStudent(ctx, d.email)

	d.mu.Lock()
	if err != nil {
		d.lastErr = err
	} else {
		d.requests = list
		d.lastUpdated = time.Now()
		d.lastErr = nil
	}
	snapshot := append([]odclient.Request(nil), d.requests...)
	d.mu.Unlock()

	if d.onRefresh != nil {
		d.onRefresh(snapshot, err)
	}
	return err
}

// View applies search (venue, reason, description), status filter and sort to
// a copy of the loaded list.
func (d *StudentDashboard) View(q ListQuery) []odclient.Request {
	d.mu.RLock()
	out := filterRequests(d.requests, q, studentSearchFields)
	d.mu.RUnlock()
	sortRequests(out, q.Sort)
	return out
}

// Stats counts the full loaded list by status.
func (d *StudentDashboard) Stats() Counts {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return countStatuses(d.requests)
}

// LastUpdated is the time of the last successful fetch.
func (d *StudentDashboard) LastUpdated() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastUpdated
}

// LastError is the error of the most recent fetch, nil after a success.
func (d *StudentDashboard) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}
