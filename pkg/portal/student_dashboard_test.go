package portal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
)

type countingLister struct {
	calls atomic.Int32

	mu     sync.Mutex
	emails []string
	list   []odclient.Request
	err    error
}

func (l *countingLister) ListByStudent(_ context.Context, email string) ([]odclient.Request, error) {
	l.calls.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.emails = append(l.emails, email)
	if l.err != nil {
		return nil, l.err
	}
	return append([]odclient.Request(nil), l.list...), nil
}

func (l *countingLister) set(list []odclient.Request, err error) {
	l.mu.Lock()
	l.list = list
	l.err = err
	l.mu.Unlock()
}

func TestStudentDashboardActivateFetchesImmediately(t *testing.T) {
	lister := &countingLister{list: sampleRequests()}
	d := NewStudentDashboard(lister, "asha.cse2024@citchennai.net", WithPollInterval(time.Hour))

	require.NoError(t, d.Activate(context.Background()))
	defer d.Deactivate()

	assert.True(t, d.Active())
	assert.Equal(t, int32(1), lister.calls.Load())
	assert.Equal(t, []string{"asha.cse2024@citchennai.net"}, lister.emails)
	assert.Equal(t, Counts{Total: 4, Pending: 2, Approved: 1, Rejected: 1}, d.Stats())
	assert.False(t, d.LastUpdated().IsZero())

	require.NoError(t, d.Activate(context.Background()))
	assert.Equal(t, int32(1), lister.calls.Load())
}

func TestStudentDashboardPollsUntilDeactivated(t *testing.T) {
	lister := &countingLister{list: sampleRequests()}
	d := NewStudentDashboard(lister, "asha.cse2024@citchennai.net", WithPollInterval(20*time.Millisecond))

	require.NoError(t, d.Activate(context.Background()))
	require.Eventually(t, func() bool { return lister.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	d.Deactivate()
	assert.False(t, d.Active())
	stopped := lister.calls.Load()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, stopped, lister.calls.Load())
}

func TestStudentDashboardRefreshFailureKeepsList(t *testing.T) {
	lister := &countingLister{list: sampleRequests()}
	var hookErrs []error
	d := NewStudentDashboard(lister, "asha.cse2024@citchennai.net",
		WithRefreshHook(func(_ []odclient.Request, err error) { hookErrs = append(hookErrs, err) }),
	)

	require.NoError(t, d.Refresh(context.Background()))
	updated := d.LastUpdated()

	boom := errors.New("network down")
	lister.set(nil, boom)
	err := d.Refresh(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Len(t, d.View(ListQuery{}), 4)
	assert.Equal(t, boom, d.LastError())
	assert.Equal(t, updated, d.LastUpdated())
	assert.Equal(t, []error{nil, boom}, hookErrs)

	lister.set(sampleRequests()[:1], nil)
	require.NoError(t, d.Refresh(context.Background()))
	assert.NoError(t, d.LastError())
	assert.Len(t, d.View(ListQuery{}), 1)
}

func TestStudentDashboardActivateReturnsFirstError(t *testing.T) {
	boom := errors.New("unavailable")
	lister := &countingLister{err: boom}
	d := NewStudentDashboard(lister, "asha.cse2024@citchennai.net", WithPollInterval(time.Hour))

	err := d.Activate(context.Background())
	require.ErrorIs(t, err, boom)
	assert.True(t, d.Active())
	d.Deactivate()
	d.Deactivate()
	assert.False(t, d.Active())
}

func TestStudentDashboardView(t *testing.T) {
	lister := &countingLister{list: sampleRequests()}
	d := NewStudentDashboard(lister, "asha.cse2024@citchennai.net")
	require.NoError(t, d.Refresh(context.Background()))

	assert.Equal(t, []string{"c", "a", "d", "b"}, ids(d.View(ListQuery{})))
	assert.Equal(t, []string{"c", "a"}, ids(d.View(ListQuery{Status: "pending"})))
	assert.Equal(t, []string{"b"}, ids(d.View(ListQuery{Search: "stadium", Sort: SortDateAsc})))
}

type slowLister struct {
	delay    time.Duration
	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func (l *slowLister) ListByStudent(_ context.Context, _ string) ([]odclient.Request, error) {
	l.calls.Add(1)
	n := l.inflight.Add(1)
	defer l.inflight.Add(-1)
	for {
		peak := l.peak.Load()
		if n <= peak || l.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(l.delay)
	return nil, nil
}

func TestStudentDashboardPollsOneFetchAtATime(t *testing.T) {
	lister := &slowLister{delay: 60 * time.Millisecond}
	d := NewStudentDashboard(lister, "asha.cse2024@citchennai.net", WithPollInterval(10*time.Millisecond))

	require.NoError(t, d.Activate(context.Background()))
	require.Eventually(t, func() bool { return lister.calls.Load() >= 4 }, 3*time.Second, 5*time.Millisecond)
	d.Deactivate()

	assert.Equal(t, int32(1), lister.peak.Load())
	assert.Equal(t, int32(0), lister.inflight.Load())
}
