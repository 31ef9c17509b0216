package redis

import (
	"context"
	"testing"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBroker_PublishSubscribe(t *testing.T) {
	_, client, m := setupTestRedis(t)
	broker := NewEventBroker(client, "live_feed_channel", testLogger(), m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan domain.LiveEvent, 4)
	go sub.Run(ctx, func(evt domain.LiveEvent) { received <- evt })

	want := domain.LiveEvent{FloorPlanID: uuid.New(), TenantID: uuid.New(), Event: domain.EventFloorPlanChanged}
	require.NoError(t, broker.Publish(ctx, want))

	select {
	case got := <-received:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live event")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("published")))
}

func TestEventBroker_WireFormat(t *testing.T) {
	mr, client, m := setupTestRedis(t)
	broker := NewEventBroker(client, "live_feed_channel", testLogger(), m)

	mrSub := mr.NewSubscriber()
	defer mrSub.Close()
	mrSub.Subscribe("live_feed_channel")

	fpID, tenantID := uuid.New(), uuid.New()
	require.NoError(t, broker.Publish(context.Background(), domain.LiveEvent{FloorPlanID: fpID, TenantID: tenantID, Event: domain.EventBookingChanged}))

	select {
	case msg := <-mrSub.Messages():
		assert.JSONEq(t,
			`{"floor_plan_id":"`+fpID.String()+`","company_id":"`+tenantID.String()+`","event":"BOOKING_CHANGED"}`,
			msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSubscription_SkipsMalformedMessages(t *testing.T) {
	mr, client, m := setupTestRedis(t)
	broker := NewEventBroker(client, "live_feed_channel", testLogger(), m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan domain.LiveEvent, 4)
	go sub.Run(ctx, func(evt domain.LiveEvent) { received <- evt })

	mr.Publish("live_feed_channel", "not json")
	want := domain.LiveEvent{FloorPlanID: uuid.New(), TenantID: uuid.New(), Event: domain.EventFloorPlanRestored}
	require.NoError(t, broker.Publish(ctx, want))

	select {
	case got := <-received:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live event")
	}
}

func TestEventBroker_PublishFailure(t *testing.T) {
	mr, client, m := setupTestRedis(t)
	broker := NewEventBroker(client, "live_feed_channel", testLogger(), m)
	mr.Close()

	err := broker.Publish(context.Background(), domain.LiveEvent{Event: domain.EventFloorPlanChanged})
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")))
}

func TestAdminRepository_Info(t *testing.T) {
	mr, client, m := setupTestRedis(t)
	broker := NewEventBroker(client, "live_feed_channel", testLogger(), m)
	admin := NewAdminRepository(client, "live_feed_channel", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, mr.Set(domain.FloorPlanCacheKey(uuid.New()), "{}"))
	require.NoError(t, mr.Set(domain.FloorPlanStatusCacheKey(uuid.New()), "{}"))
	require.NoError(t, mr.Set(domain.FloorPlanStatusCacheKey(uuid.New()), "{}"))

	info, err := admin.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Subscribers)
	assert.Equal(t, 1, info.CachedKeys["cache:floor_plan:"])
	assert.Equal(t, 0, info.CachedKeys["cache:all_floor_plans:"])
	assert.Equal(t, 2, info.CachedKeys["cache:floor_plan_status:"])
}
