package middleware

import (
	"net/http"
	"strings"

	"chatter/pkg/auth"
	"chatter/pkg/common"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

// Authenticate resolves the caller and stores the user ID in the request
// context. Requests proxied from API Gateway carry an authorizer that has
// already checked the token; everything else must present a bearer token
// the validator accepts.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := gatewayUser(r); ok {
				next.ServeHTTP(w, withUser(r, &auth.UserContext{UserID: userID}))
				return
			}

			token := extractToken(r)
			if token == "" {
				respondUnauthorized(w, "Missing authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				switch err {
				case auth.ErrExpiredToken:
					respondUnauthorized(w, "Token has expired")
				case auth.ErrInvalidSignature:
					respondUnauthorized(w, "Invalid token signature")
				default:
					respondUnauthorized(w, "Invalid token")
				}
				return
			}

			next.ServeHTTP(w, withUser(r, &auth.UserContext{UserID: claims.UserID, Roles: claims.Roles}))
		})
	}
}

// RateLimit rejects callers that exceed their per-user budget. It must run
// after Authenticate.
func RateLimit(limiter *auth.RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := common.GetUserID(r.Context())
			if !limiter.Allow(userID) {
				common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "User rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUser(r *http.Request, user *auth.UserContext) *http.Request {
	ctx := auth.SetUserInContext(r.Context(), user)
	ctx = common.WithUserID(ctx, user.UserID)
	return r.WithContext(ctx)
}

// gatewayUser reads the subject an API Gateway authorizer attached to a
// proxied Lambda request.
func gatewayUser(r *http.Request) (string, bool) {
	proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(r.Context())
	if !ok || proxyCtx.Authorizer == nil {
		return "", false
	}
	if sub, ok := proxyCtx.Authorizer.Lambda["sub"].(string); ok && sub != "" {
		return sub, true
	}
	if proxyCtx.Authorizer.JWT != nil {
		if sub := proxyCtx.Authorizer.JWT.Claims["sub"]; sub != "" {
			return sub, true
		}
	}
	return "", false
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, message)
}
