package authtransport

import (
	"context"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/ichigozero/focusflow/authsvc"
	"github.com/ichigozero/focusflow/authsvc/pkg/authservice"
)

// NewIdentifier resolves the bearer token placed in the context by
// kitjwt.HTTPToContext into a user ID stored under authsvc.UserIDContextKey.
// A missing or unverifiable token leaves the request anonymous; the
// middleware never fails a request on its own.
func NewIdentifier(v authservice.Verifier, logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			token, ok := ctx.Value(kitjwt.JWTTokenContextKey).(string)
			if !ok || token == "" {
				return next(ctx, request)
			}

			userID, err := v.Verify(token)
			if err != nil {
				level.Debug(logger).Log("msg", "continuing anonymously", "err", err)
				return next(ctx, request)
			}

			ctx = context.WithValue(ctx, authsvc.UserIDContextKey, userID)
			return next(ctx, request)
		}
	}
}
