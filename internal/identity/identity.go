// Package identity carries the authenticated user through a request context.
package identity

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
)

type ctxKey struct{}

// WithProfile returns a copy of ctx carrying p.
func WithProfile(ctx context.Context, p *entity.Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the authenticated user, if any.
func FromContext(ctx context.Context) (*entity.Profile, bool) {
	p, ok := ctx.Value(ctxKey{}).(*entity.Profile)
	return p, ok && p != nil
}
