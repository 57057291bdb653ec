// Package middleware содержит HTTP middleware сервиса QuickDeliver.
package middleware

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/quickdeliver/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

const (
	authCookieName = "qd_session"
	authCookieTTL  = 24 * time.Hour
)

// SessionStore находит живую сессию по идентификатору.
type SessionStore interface {
	Lookup(id string) (*session.Session, bool)
}

// Claims описывает содержимое токена сессии.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthMiddleware выполняет проверку аутентификации по подписанному cookie сессии.
//
// Cookie содержит JWT с идентификатором сессии; сама сессия живёт в памяти процесса.
type AuthMiddleware struct {
	secretKey []byte
	sessions  SessionStore
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// При пустом секрете ключ генерируется случайно и сессии не переживают перезапуск.
func NewAuthMiddleware(secret string, sessions SessionStore) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		sessions:  sessions,
	}
}

// Middleware проверяет cookie сессии и добавляет сессию в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.SessionID(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		s, ok := a.sessions.Lookup(id)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie устанавливает cookie сессии.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, s *session.Session) error {
	now := time.Now()
	claims := Claims{
		Username: s.Username(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(authCookieTTL)),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearAuthCookie удаляет cookie сессии.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID извлекает идентификатор сессии из cookie запроса.
func (a *AuthMiddleware) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return "", false
	}

	claims, err := a.parseToken(cookie.Value)
	if err != nil || claims.ID == "" {
		return "", false
	}
	return claims.ID, true
}

func (a *AuthMiddleware) parseToken(value string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(value, &Claims{}, func(_ *jwt.Token) (any, error) {
		return a.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

// GetSessionFromContext извлекает сессию из контекста запроса.
func GetSessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}
