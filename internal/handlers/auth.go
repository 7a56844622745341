package handlers

import (
	"strings"

	"github.com/shiningsmiles/tuition-ledger/internal/identity"
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
)

const identityKey = "identity"

var publicPaths = []string{"/health", "/metrics"}

// AuthMiddleware resolves the bearer token into an Identity and stores it on
// the request context. Requests without a verified principal end here with a
// 401; handlers past this point can assume identityFrom succeeds.
func AuthMiddleware(resolver *identity.Resolver) xhttp.MiddlewareFunc {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			path := string(ctx.Path())
			for _, p := range publicPaths {
				if strings.HasPrefix(path, p) {
					next(ctx)
					return
				}
			}

			id, err := resolver.Resolve(bearerToken(ctx))
			if err != nil {
				xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
				return
			}

			ctx.SetUserValue(identityKey, id)
			next(ctx)
		}
	}
}

func bearerToken(ctx *xhttp.RequestCtx) string {
	h := string(ctx.Request.Header.Peek("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func identityFrom(ctx *xhttp.RequestCtx) (identity.Identity, bool) {
	id, ok := ctx.UserValue(identityKey).(identity.Identity)
	return id, ok
}
