package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const methodsCacheKey = "pos:payment-methods"

// Methods lists the configured payment methods.
type Methods interface {
	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

// CachedMethods wraps a Methods source with a Redis JSON cache. The method
// catalog changes rarely; a short TTL keeps admin edits visible without
// hammering the collaborator on every sale.
type CachedMethods struct {
	Source Methods
	Client *redis.Client
	TTL    time.Duration
}

// ListPaymentMethods serves from cache when possible, falling back to the
// source and repopulating. Cache failures degrade to a direct call.
func (c CachedMethods) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	if c.Client != nil {
		data, err := c.Client.Get(ctx, methodsCacheKey).Bytes()
		if err == nil {
			var methods []PaymentMethod
			if jsonErr := json.Unmarshal(data, &methods); jsonErr == nil {
				return methods, nil
			}
		}
	}
	methods, err := c.Source.ListPaymentMethods(ctx)
	if err != nil {
		return nil, err
	}
	if c.Client != nil {
		ttl := c.TTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		if data, jsonErr := json.Marshal(methods); jsonErr == nil {
			_ = c.Client.Set(ctx, methodsCacheKey, data, ttl).Err()
		}
	}
	return methods, nil
}
