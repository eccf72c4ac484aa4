package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
)

type countingMethods struct {
	calls   int
	methods []catalog.PaymentMethod
	err     error
}

func (c *countingMethods) ListPaymentMethods(context.Context) ([]catalog.PaymentMethod, error) {
	c.calls++
	return c.methods, c.err
}

func TestCachedMethodsServesFromCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := &countingMethods{methods: []catalog.PaymentMethod{
		{Ref: "cash", DisplayName: "Cash", Kind: "cash", Active: true},
		{Ref: "card", DisplayName: "Card", Kind: "card", Active: false},
	}}
	cached := catalog.CachedMethods{Source: source, Client: client, TTL: time.Minute}

	ctx := context.Background()
	first, err := cached.ListPaymentMethods(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, source.calls)

	second, err := cached.ListPaymentMethods(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.calls, "second call should hit the cache")

	mr.FastForward(2 * time.Minute)
	_, err = cached.ListPaymentMethods(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls, "expired entry should refetch")
}

func TestCachedMethodsSourceErrorNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := &countingMethods{err: errors.New("boom")}
	cached := catalog.CachedMethods{Source: source, Client: client, TTL: time.Minute}

	_, err = cached.ListPaymentMethods(context.Background())
	require.Error(t, err)

	source.err = nil
	source.methods = []catalog.PaymentMethod{{Ref: "cash", Active: true}}
	methods, err := cached.ListPaymentMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 1)
	require.Equal(t, 2, source.calls)
}

func TestCachedMethodsNoClientFallsThrough(t *testing.T) {
	source := &countingMethods{methods: []catalog.PaymentMethod{{Ref: "qris", Active: true}}}
	cached := catalog.CachedMethods{Source: source}

	for i := 0; i < 3; i++ {
		methods, err := cached.ListPaymentMethods(context.Background())
		require.NoError(t, err)
		require.Len(t, methods, 1)
	}
	require.Equal(t, 3, source.calls)
}
