package publish

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pressroom/internal/types"
)

type fakePublisher struct {
	err   error
	calls int
	url   string
}

func (f *fakePublisher) ValidateConnection(context.Context) error { return nil }

func (f *fakePublisher) Publish(context.Context, *Request) (*PostInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &PostInfo{ID: "42", URL: f.url}, nil
}

func (f *fakePublisher) DeletePost(context.Context, string) error { return nil }

type fakeLedger struct {
	refunds []int64
}

func (f *fakeLedger) Refund(_ context.Context, _ uuid.UUID, amount int64) (int64, error) {
	f.refunds = append(f.refunds, amount)
	return 0, nil
}

type fakeRecords struct {
	records []*types.PublicationRecord
}

func (f *fakeRecords) CreatePublication(_ context.Context, rec *types.PublicationRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func publishJob(cross ...types.PlatformType) *types.GenerationJob {
	return &types.GenerationJob{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Slot: &types.ContentSlot{
			ID:                 uuid.New(),
			Name:               "coffee-blog",
			Platform:           types.PlatformWordPress,
			ContentType:        types.ContentTypeLongform,
			CrossPostPlatforms: cross,
		},
		Topic:       types.TopicCluster{MainPhrase: "cold brew coffee"},
		ContentType: types.ContentTypeLongform,
		Charged:     300,
		Outline:     &types.Outline{Title: "The Complete Guide"},
		Draft:       "# The Complete Guide\n\nBody text.",
	}
}

func newTestCoordinator(registry *Registry) (*Coordinator, *fakeLedger, *fakeRecords) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ledger := &fakeLedger{}
	records := &fakeRecords{}
	return NewCoordinator(registry, ledger, records, log), ledger, records
}

func TestPublish_LeadSuccess(t *testing.T) {
	registry := NewRegistry()
	wp := &fakePublisher{url: "https://blog.example/post-1"}
	registry.Register(types.PlatformWordPress, wp)
	c, ledger, records := newTestCoordinator(registry)

	job := publishJob()
	outcome, err := c.Publish(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, "https://blog.example/post-1", outcome.URL)
	assert.Empty(t, ledger.refunds, "success must not refund")
	require.Len(t, records.records, 1)

	rec := records.records[0]
	assert.Equal(t, types.PublicationSucceeded, rec.Status)
	assert.Equal(t, job.Slot.ID, rec.SlotID)
	assert.Equal(t, "cold brew coffee", rec.Topic)
	assert.Equal(t, int64(300), rec.TokensSpent)
	assert.NotZero(t, rec.ContentHash)
}

func TestPublish_LeadFailureRefundsFullCharge(t *testing.T) {
	registry := NewRegistry()
	registry.Register(types.PlatformWordPress, &fakePublisher{err: fmt.Errorf("target unreachable")})
	c, ledger, records := newTestCoordinator(registry)

	job := publishJob()
	_, err := c.Publish(context.Background(), job)

	var pubErr *Error
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, types.PlatformWordPress, pubErr.Platform)

	assert.Equal(t, []int64{300}, ledger.refunds)
	require.Len(t, records.records, 1)
	assert.Equal(t, types.PublicationFailed, records.records[0].Status)
	assert.Contains(t, records.records[0].FailReason, "unreachable")
}

func TestPublish_LeadFailureSkipsCrossPosts(t *testing.T) {
	registry := NewRegistry()
	registry.Register(types.PlatformWordPress, &fakePublisher{err: fmt.Errorf("down")})
	tg := &fakePublisher{url: "https://t.me/c/1"}
	registry.Register(types.PlatformTelegram, tg)
	c, _, _ := newTestCoordinator(registry)

	_, err := c.Publish(context.Background(), publishJob(types.PlatformTelegram))
	require.Error(t, err)
	assert.Zero(t, tg.calls, "cross-posts must not run after lead failure")
}

func TestPublish_CrossPostFailureRefundsShareOnly(t *testing.T) {
	registry := NewRegistry()
	registry.Register(types.PlatformWordPress, &fakePublisher{url: "https://blog.example/post-1"})
	registry.Register(types.PlatformTelegram, &fakePublisher{err: fmt.Errorf("bot token revoked")})
	registry.Register(types.PlatformVK, &fakePublisher{url: "https://vk.com/wall-1"})
	c, ledger, records := newTestCoordinator(registry)

	job := publishJob(types.PlatformTelegram, types.PlatformVK)
	outcome, err := c.Publish(context.Background(), job)
	require.NoError(t, err, "secondary failure must not abort the lead publish")

	assert.Equal(t, "https://blog.example/post-1", outcome.URL)
	require.Len(t, outcome.Warnings, 1)
	assert.Contains(t, outcome.Warnings[0], "telegram")

	// 300 split three ways: only the failed telegram share comes back.
	assert.Equal(t, []int64{100}, ledger.refunds)

	require.Len(t, records.records, 3)
	byPlatform := make(map[types.PlatformType]*types.PublicationRecord)
	for _, rec := range records.records {
		byPlatform[rec.Platform] = rec
	}
	assert.Equal(t, types.PublicationSucceeded, byPlatform[types.PlatformWordPress].Status)
	assert.Equal(t, types.PublicationFailed, byPlatform[types.PlatformTelegram].Status)
	assert.Equal(t, types.PublicationSucceeded, byPlatform[types.PlatformVK].Status)
	assert.Equal(t, int64(100), byPlatform[types.PlatformWordPress].TokensSpent)
	assert.Equal(t, int64(100), byPlatform[types.PlatformTelegram].TokensSpent)
}

func TestPublish_UnregisteredPlatformFailsLead(t *testing.T) {
	c, ledger, records := newTestCoordinator(NewRegistry())

	_, err := c.Publish(context.Background(), publishJob())
	require.Error(t, err)
	assert.Equal(t, []int64{300}, ledger.refunds)
	require.Len(t, records.records, 1)
	assert.Equal(t, types.PublicationFailed, records.records[0].Status)
}

func TestRegistry_ReplaceAndGet(t *testing.T) {
	registry := NewRegistry()
	first := &fakePublisher{}
	second := &fakePublisher{}

	registry.Register(types.PlatformWordPress, first)
	registry.Register(types.PlatformWordPress, second)

	got, ok := registry.Get(types.PlatformWordPress)
	require.True(t, ok)
	assert.Same(t, Publisher(second), got)

	_, ok = registry.Get(types.PlatformVK)
	assert.False(t, ok)
}
