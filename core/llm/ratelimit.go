package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited delays requests so that at most perMinute reach the provider.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

func NewRateLimited(next Client, perMinute float64) Client {
	if perMinute <= 0 {
		return next
	}
	interval := time.Duration(float64(time.Minute) / perMinute)
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (r *RateLimited) Provider() string {
	return r.next.Provider()
}

func (r *RateLimited) Complete(ctx context.Context, req Request) (Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Response{}, err
	}
	return r.next.Complete(ctx, req)
}
