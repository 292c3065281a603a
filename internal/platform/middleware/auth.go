package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	"cac/pkg/requestcontext"
)

// JWTValidator verifies a bearer token and extracts the acting account. The
// core assumes each operation arrives already authenticated as a specific
// account; this is where that assumption is enforced at the HTTP edge.
type JWTValidator interface {
	Validate(token string) (domain.Address, error)
}

// HMACValidator validates HS256 tokens whose subject is the account address.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey)}
}

func (v *HMACValidator) Validate(tokenString string) (domain.Address, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.Newf(dErrors.CodeUnauthorized, "unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil || !token.Valid {
		return domain.ZeroAddress, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return domain.ZeroAddress, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	addr, err := domain.ParseAddress(subject)
	if err != nil {
		return domain.ZeroAddress, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token subject is not an address")
	}
	return addr, nil
}

// RequireActor rejects requests without a valid bearer token and injects the
// actor address into the request context.
func RequireActor(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, "missing bearer token")
				return
			}
			actor, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "rejected token",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				writeAuthError(w, "invalid token")
				return
			}
			ctx := requestcontext.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(dErrors.CodeUnauthorized),
		"message": message,
	})
}
