package middleware

import (
	"context"
	"net/http"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/services/jwttoken"
)

type UserIDKey struct{}
type RoleKey struct{}

const TokenCookieName = "token"

func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		tokenCookie, err := req.Cookie(TokenCookieName)
		if err != nil {
			if err == http.ErrNoCookie {
				resp.WriteHeader(http.StatusUnauthorized)
				return
			}

			resp.WriteHeader(http.StatusInternalServerError)
			return
		}

		userID, role, err := jwttoken.Parse(tokenCookie.Value)
		if err != nil {
			resp.WriteHeader(http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(req.Context(), UserIDKey{}, userID)
		ctx = context.WithValue(ctx, RoleKey{}, role)

		next.ServeHTTP(resp, req.WithContext(ctx))
	})
}

// Actor pulls the authenticated user id and role out of the request
// context. Empty values mean the request never went through Auth.
func Actor(req *http.Request) (string, entities.Role) {
	userID, _ := req.Context().Value(UserIDKey{}).(string)
	role, _ := req.Context().Value(RoleKey{}).(entities.Role)

	return userID, role
}
