package worker

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var expiryNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func expiringPermit(id int64, in time.Duration) *entity.Permit {
	at := expiryNow.Add(in)
	return &entity.Permit{ID: id, Status: permit.StatusPermitIssued, ExpiresAt: &at}
}

func newTestExpiryWorker(permits *fakePermitRepo, activities *fakeActivityRepo, notifier *fakeExpiryNotifier) *ExpiryWorker {
	w := NewExpiryWorker(ExpiryWorkerConfig{Window: 14 * 24 * time.Hour}, permits, activities, fakeTxManager{}, notifier, zap.NewNop())
	w.now = func() time.Time { return expiryNow }
	return w
}

func TestExpiryWorker_RemindsOnce(t *testing.T) {
	permits := &fakePermitRepo{expiring: []*entity.Permit{
		expiringPermit(1, 3*24*time.Hour),
		expiringPermit(2, 60*24*time.Hour),
	}}
	activities := &fakeActivityRepo{}
	notifier := &fakeExpiryNotifier{}
	w := newTestExpiryWorker(permits, activities, notifier)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, expiryNow.Add(14*24*time.Hour), permits.before)

	assert.Equal(t, []int64{1}, notifier.sent)
	assert.Equal(t, expiryNow, permits.notified[1])
	require.Len(t, activities.created, 1)
	assert.Equal(t, entity.ActivityExpiryReminder, activities.created[0].Action)
	assert.Equal(t, entity.SystemActor, activities.created[0].Actor)
	assert.Equal(t, "expires 2026-03-17", activities.created[0].Detail)

	// already reminded permits are not picked up again
	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, notifier.sent, 1)
}

func TestExpiryWorker_NeverChangesStatus(t *testing.T) {
	p := expiringPermit(1, -2*24*time.Hour)
	permits := &fakePermitRepo{expiring: []*entity.Permit{p}}
	w := newTestExpiryWorker(permits, &fakeActivityRepo{}, &fakeExpiryNotifier{})

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, permit.StatusPermitIssued, p.Status)
}

func TestExpiryWorker_FailedReminderIsRetried(t *testing.T) {
	permits := &fakePermitRepo{expiring: []*entity.Permit{
		expiringPermit(1, time.Hour),
		expiringPermit(2, 2*time.Hour),
	}}
	activities := &fakeActivityRepo{}
	notifier := &fakeExpiryNotifier{failOn: 1}
	w := newTestExpiryWorker(permits, activities, notifier)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, permits.notified, int64(1))
	assert.Contains(t, permits.notified, int64(2))
	assert.Len(t, activities.created, 1)
	assert.Equal(t, 1, w.failedCount)

	notifier.failOn = 0
	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, permits.notified, int64(1))
}

func TestExpiryWorker_StartRunsImmediately(t *testing.T) {
	permits := &fakePermitRepo{expiring: []*entity.Permit{expiringPermit(1, time.Hour)}}
	notifier := &fakeExpiryNotifier{}
	w := newTestExpiryWorker(permits, &fakeActivityRepo{}, notifier)

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Stop())
}

func TestExpiryWorker_StopWaitsForPollLoop(t *testing.T) {
	permits := &fakePermitRepo{expiring: []*entity.Permit{expiringPermit(1, time.Hour)}}
	call := newBlockingCall()
	w := NewExpiryWorker(ExpiryWorkerConfig{}, permits, &fakeActivityRepo{}, fakeTxManager{}, blockingExpiryNotifier{call}, zap.NewNop())
	w.now = func() time.Time { return expiryNow }

	require.NoError(t, w.Start(context.Background()))
	select {
	case <-call.entered:
	case <-time.After(time.Second):
		t.Fatal("reminder was never sent")
	}

	require.NoError(t, w.Stop())
	assert.True(t, call.returned.Load(), "Stop returned while a reminder was in flight")
	assert.NotContains(t, permits.notified, int64(1))
}

func TestNewExpiryWorker_Defaults(t *testing.T) {
	w := NewExpiryWorker(ExpiryWorkerConfig{}, &fakePermitRepo{}, &fakeActivityRepo{}, fakeTxManager{}, &fakeExpiryNotifier{}, zap.NewNop())
	assert.Equal(t, DefaultExpiryWorkerConfig(), w.config)
}
