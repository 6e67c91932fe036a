package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-checkout/internal/security"
)

const (
	msgLoginAgain    = "Not Authorized Login Again"
	msgNotAuthorized = "Not Authorized"
)

type userIDKey struct{}

// UserIDFrom returns the authenticated user id stored by UserAuth.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

func bearerToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get("token")); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// UserAuth requires a valid user token in the "token" header or as a bearer
// token, and stores the user id it carries in the request context.
func (h *Handler) UserAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeResponse(w, failure(msgLoginAgain))
			return
		}
		claims, err := h.tokens.ParseToken(token)
		if err != nil {
			zctx.From(r.Context()).Debug("Rejected user token", zap.Error(err))
			writeResponse(w, failure(msgLoginAgain))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, claims.UserID)
		ctx = zctx.With(ctx, zap.String("user_id", claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminAuth requires an active API key in the "api_key" header that carries
// scope. Keys are looked up by their HMAC-SHA256 hash.
func (h *Handler) AdminAuth(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := r.Header.Get("api_key")
			if key == "" {
				writeResponse(w, failure(msgNotAuthorized))
				return
			}

			hexHash := security.HashAPIKey(key, h.pepper)
			info, err := h.apikeys.FindByHash(ctx, hexHash)
			if err != nil {
				zctx.From(ctx).Debug("Rejected api key", zap.Error(err))
				writeResponse(w, failure(msgNotAuthorized))
				return
			}

			computed, _ := hex.DecodeString(hexHash)
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
				writeResponse(w, failure(msgNotAuthorized))
				return
			}
			if !info.HasScope(scope) {
				zctx.From(ctx).Warn("API key lacks scope",
					zap.String("key_id", info.ID),
					zap.String("scope", scope),
				)
				writeResponse(w, failure(msgNotAuthorized))
				return
			}

			ctx = zctx.With(ctx, zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
