package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/utils"
)

type contextKey struct{}

// TokenParser извлекает пользователя из токена доступа.
type TokenParser interface {
	ParseToken(token string) (models.Actor, error)
}

// RequireAuth пропускает запрос дальше только с действительным Bearer-токеном
// и кладёт пользователя в контекст.
func RequireAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				utils.SendError(w, models.NewUnauthenticatedError("missing token"))
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				utils.SendError(w, models.NewUnauthenticatedError("invalid token format"))
				return
			}
			actor, err := tokens.ParseToken(token)
			if err != nil {
				utils.SendError(w, models.NewUnauthenticatedError("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// WithActor кладёт пользователя в контекст.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFrom возвращает пользователя из контекста.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(models.Actor)
	return actor, ok
}
