package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirasaad/fxengine/pkg/eventbus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisBus(t *testing.T) (*RedisEventBus, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewWithRedisClient(client, testLogger(), &RedisEventBusConfig{Block: 50 * time.Millisecond})
	t.Cleanup(func() {
		_ = bus.Close()
		_ = client.Close()
	})
	return bus, client
}

func TestRedisBus_HandlerReceivesEvent(t *testing.T) {
	bus, _ := setupRedisBus(t)

	received := make(chan string, 1)
	bus.Register(eventbus.EventTypeRateQuoteRefreshed, func(_ context.Context, e eventbus.Event) error {
		received <- e.(*eventbus.RateQuoteRefreshed).Rate.String()
		return nil
	})
	require.NoError(t, bus.Emit(context.Background(), refreshed("0.85")))

	select {
	case rate := <-received:
		assert.Equal(t, "0.85", rate)
	case <-time.After(3 * time.Second):
		t.Fatal("handler did not receive event in time")
	}
}

func TestRedisBus_MultipleEvents(t *testing.T) {
	bus, _ := setupRedisBus(t)

	var count atomic.Int32
	done := make(chan struct{})
	bus.Register(eventbus.EventTypeRateQuoteRefreshed, func(context.Context, eventbus.Event) error {
		if count.Add(1) == 3 {
			close(done)
		}
		return nil
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Emit(context.Background(), refreshed("0.85")))
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all events were received")
	}
}

func TestRedisBus_FailedHandlerGoesToDLQAndRetries(t *testing.T) {
	bus, client := setupRedisBus(t)
	ctx := context.Background()

	var fail atomic.Bool
	fail.Store(true)
	received := make(chan struct{}, 1)
	bus.Register(eventbus.EventTypeRateQuoteRefreshed, func(context.Context, eventbus.Event) error {
		if fail.Load() {
			return errors.New("temporary failure")
		}
		received <- struct{}{}
		return nil
	})
	require.NoError(t, bus.Emit(ctx, refreshed("0.85")))

	dlq := dlqStreamName(eventbus.EventTypeRateQuoteRefreshed)
	require.Eventually(t, func() bool {
		n, err := client.XLen(ctx, dlq).Result()
		return err == nil && n == 1
	}, 3*time.Second, 20*time.Millisecond)

	fail.Store(false)
	bus.processAllDLQs(ctx)

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("DLQ retry did not republish message in time")
	}
	n, err := client.XLen(ctx, dlq).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisBus_UndecodableMessageGoesToDLQ(t *testing.T) {
	bus, client := setupRedisBus(t)
	ctx := context.Background()

	var calls atomic.Int32
	bus.Register(eventbus.EventTypeArbitrageOpportunityDetected, func(context.Context, eventbus.Event) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamNameFor(eventbus.EventTypeArbitrageOpportunityDetected),
		Values: map[string]any{"event": "garbage"},
	}).Err())

	dlq := dlqStreamName(eventbus.EventTypeArbitrageOpportunityDetected)
	require.Eventually(t, func() bool {
		n, err := client.XLen(ctx, dlq).Result()
		return err == nil && n == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Zero(t, calls.Load())

	// undecodable entries stay parked
	bus.processAllDLQs(ctx)
	n, err := client.XLen(ctx, dlq).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewWithRedis_Errors(t *testing.T) {
	_, err := NewWithRedis("", testLogger(), nil)
	assert.Error(t, err)
	_, err = NewWithRedis("://bad", testLogger(), nil)
	assert.Error(t, err)
	_, err = NewWithRedis("redis://127.0.0.1:1", testLogger(), nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	bus, err := NewWithRedis("redis://"+mr.Addr(), testLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, bus.Close())
}
