package oracle

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osms-business/osms_server/internal/model"
)

func TestSimulated_Extremes(t *testing.T) {
	intent := &model.PaymentIntent{ID: 1}
	ctx := context.Background()

	always := NewSimulated(1, 1)
	never := NewSimulated(0, 1)
	for i := 0; i < 20; i++ {
		obs, err := always.Observe(ctx, intent)
		require.NoError(t, err)
		assert.Equal(t, Observed, obs)

		obs, err = never.Observe(ctx, intent)
		require.NoError(t, err)
		assert.Equal(t, NotObserved, obs)
	}
}

func TestSimulated_RoughProbability(t *testing.T) {
	s := NewSimulated(0.3, 42)
	intent := &model.PaymentIntent{ID: 1}

	hits := 0
	for i := 0; i < 2000; i++ {
		if obs, _ := s.Observe(context.Background(), intent); obs == Observed {
			hits++
		}
	}
	assert.InDelta(t, 600, hits, 100)
}

func TestRedis_MarkAndObserve(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	o := NewRedis(client)
	ctx := context.Background()
	intent := &model.PaymentIntent{DepositAddress: "bc1qabc"}

	obs, err := o.Observe(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, NotObserved, obs)

	require.NoError(t, o.Mark(ctx, "bc1qabc", Observed))
	obs, err = o.Observe(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, Observed, obs)
	assert.True(t, mr.TTL(keyPrefix+"bc1qabc") > 0)

	require.NoError(t, o.Mark(ctx, "bc1qabc", Rejected))
	obs, _ = o.Observe(ctx, intent)
	assert.Equal(t, Rejected, obs)

	require.NoError(t, o.Mark(ctx, "bc1qabc", NotObserved))
	obs, _ = o.Observe(ctx, intent)
	assert.Equal(t, NotObserved, obs)
}

func TestRedis_GarbageValueIsNotObserved(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set(keyPrefix+"0xdeadbeef", "maybe"))

	obs, err := NewRedis(client).Observe(context.Background(), &model.PaymentIntent{DepositAddress: "0xdeadbeef"})
	require.NoError(t, err)
	assert.Equal(t, NotObserved, obs)
}

func TestParseObservation(t *testing.T) {
	obs, err := ParseObservation(" Observed ")
	require.NoError(t, err)
	assert.Equal(t, Observed, obs)

	obs, err = ParseObservation("failed")
	require.NoError(t, err)
	assert.Equal(t, Rejected, obs)

	_, err = ParseObservation("pending")
	assert.Error(t, err)
}
