package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"ms-allocation/internal/logger"
	"ms-allocation/internal/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// HeaderUserID carries the caller's identity. It is set by the gateway in
// front of this service and trusted as-is.
const HeaderUserID = "X-User-Id"

func Middleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if raw == "" {
				log.LogSecurity("MISSING_IDENTITY", r.Method+" "+r.URL.Path)
				utils.WriteError(w, http.StatusUnauthorized, "missing "+HeaderUserID+" header", nil)
				return
			}

			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				log.LogSecurity("BAD_IDENTITY", r.Method+" "+r.URL.Path+" "+HeaderUserID+"="+raw)
				utils.WriteError(w, http.StatusUnauthorized, "invalid "+HeaderUserID+" header", nil)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}
