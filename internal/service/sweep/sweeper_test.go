package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/service/dispatch"
	"github.com/paybridge/platform-api/internal/service/webhook"
	"github.com/paybridge/platform-api/pkg/metrics"
)

type fakeAccountRepo struct {
	accounts []*model.PaymentAccount
}

func (f *fakeAccountRepo) Create(context.Context, *model.PaymentAccount) error { return nil }
func (f *fakeAccountRepo) GetByAccountID(context.Context, string) (*model.PaymentAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) GetByUserID(context.Context, uuid.UUID) (*model.PaymentAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) List(context.Context) ([]*model.PaymentAccount, error) {
	return f.accounts, nil
}
func (f *fakeAccountRepo) ListByUserID(context.Context, uuid.UUID) ([]*model.PaymentAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) UpdateStoreDomain(context.Context, string, string) error { return nil }

type fakeSweepRepo struct {
	runs   map[int64]*model.SweepRun
	nextID int64
}

func newFakeSweepRepo() *fakeSweepRepo {
	return &fakeSweepRepo{runs: map[int64]*model.SweepRun{}}
}

func (f *fakeSweepRepo) StartRun(_ context.Context, accountID string) (*model.SweepRun, error) {
	f.nextID++
	run := &model.SweepRun{ID: f.nextID, AccountID: accountID, StartedAt: time.Now()}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeSweepRepo) FinishRun(_ context.Context, runID int64, recovered, ignored, failed int, message string) error {
	run := f.runs[runID]
	now := time.Now()
	run.FinishedAt = &now
	run.RecoveredEvents = recovered
	run.IgnoredEvents = ignored
	run.FailedNotifications = failed
	run.Message = message
	return nil
}

func (f *fakeSweepRepo) ListRuns(_ context.Context, accountID string, _ int) ([]*model.SweepRun, error) {
	var out []*model.SweepRun
	for _, run := range f.runs {
		if run.AccountID == accountID {
			out = append(out, run)
		}
	}
	return out, nil
}

type fakeLister struct {
	events map[string][]*provider.Event
	errs   map[string]error
	gotOpt []provider.ListEventsOptions
}

func (f *fakeLister) ListEvents(_ context.Context, opts provider.ListEventsOptions) ([]*provider.Event, error) {
	f.gotOpt = append(f.gotOpt, opts)
	if err := f.errs[opts.AccountID]; err != nil {
		return nil, err
	}
	return f.events[opts.AccountID], nil
}

type fakeProcessor struct {
	results map[string]webhook.ProcessResult
	sources []model.EventSource
}

func (f *fakeProcessor) Process(_ context.Context, event *provider.Event, source model.EventSource) (webhook.ProcessResult, error) {
	f.sources = append(f.sources, source)
	return f.results[event.ID], nil
}

func newTestSweeper(accounts *fakeAccountRepo, runs *fakeSweepRepo, processor *fakeProcessor, lister *fakeLister) *Sweeper {
	return New(accounts, runs, processor, lister, NewLocalLock(), Config{
		Enabled:  true,
		Interval: time.Minute,
		Lookback: time.Hour,
	}, metrics.New("test"), zerolog.Nop())
}

func TestRunOnceCountsOutcomes(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*model.PaymentAccount{{AccountID: "acct_1"}}}
	runs := newFakeSweepRepo()
	lister := &fakeLister{events: map[string][]*provider.Event{
		"acct_1": {{ID: "evt_recovered"}, {ID: "evt_failed"}, {ID: "evt_seen"}},
	}}
	processor := &fakeProcessor{results: map[string]webhook.ProcessResult{
		"evt_recovered": {Outcome: webhook.OutcomeSuccess, Dispatch: dispatch.Result{Attempted: true, Delivered: true}},
		"evt_failed":    {Outcome: webhook.OutcomeSuccess, Dispatch: dispatch.Result{Attempted: true, Delivered: false}},
		"evt_seen":      {Outcome: webhook.OutcomeDuplicate},
	}}

	sweeper := newTestSweeper(accounts, runs, processor, lister)
	require.NoError(t, sweeper.RunOnce(context.Background()))

	require.Len(t, runs.runs, 1)
	run := runs.runs[1]
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 1, run.RecoveredEvents)
	assert.Equal(t, 1, run.FailedNotifications)
	assert.Equal(t, 1, run.IgnoredEvents)
	assert.Empty(t, run.Message)

	for _, source := range processor.sources {
		assert.Equal(t, model.EventSourceSweep, source)
	}

	require.Len(t, lister.gotOpt, 1)
	assert.ElementsMatch(t, []string{"checkout.session.completed", "payment_intent.succeeded"}, lister.gotOpt[0].Types)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), lister.gotOpt[0].CreatedSince, 5*time.Second)
}

func TestRunOnceIsolatesAccountFailures(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*model.PaymentAccount{
		{AccountID: "acct_bad"},
		{AccountID: "acct_good"},
	}}
	runs := newFakeSweepRepo()
	lister := &fakeLister{
		events: map[string][]*provider.Event{"acct_good": {{ID: "evt_1"}}},
		errs:   map[string]error{"acct_bad": errors.New("listing blew up")},
	}
	processor := &fakeProcessor{results: map[string]webhook.ProcessResult{
		"evt_1": {Outcome: webhook.OutcomeSuccess, Dispatch: dispatch.Result{Attempted: true, Delivered: true}},
	}}

	sweeper := newTestSweeper(accounts, runs, processor, lister)
	require.NoError(t, sweeper.RunOnce(context.Background()))

	require.Len(t, runs.runs, 2, "the failing account does not abort the pass")

	var badRun, goodRun *model.SweepRun
	for _, run := range runs.runs {
		switch run.AccountID {
		case "acct_bad":
			badRun = run
		case "acct_good":
			goodRun = run
		}
	}
	require.NotNil(t, badRun)
	require.NotNil(t, goodRun)
	assert.Contains(t, badRun.Message, "listing blew up")
	assert.NotNil(t, badRun.FinishedAt, "failed runs are still finalized")
	assert.Equal(t, 1, goodRun.RecoveredEvents)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*model.PaymentAccount{{AccountID: "acct_1"}}}
	runs := newFakeSweepRepo()
	lister := &fakeLister{}
	processor := &fakeProcessor{}

	lock := NewLocalLock()
	held, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, held)

	sweeper := New(accounts, runs, processor, lister, lock, Config{Enabled: true}, metrics.New("test"), zerolog.Nop())
	require.NoError(t, sweeper.RunOnce(context.Background()))

	assert.Empty(t, runs.runs, "an overlapping pass does nothing")
}
