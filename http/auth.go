package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

// HeaderClientID is the HTTP header that carries the id of a client.
const HeaderClientID = "X-Client-Id"

// ErrTypeUnauthorized is the type of errors returned when a request does not
// carry a valid access token.
const ErrTypeUnauthorized = "unauthorized"

var ErrInvalidAccessToken = errors.New("invalid access token").WithType(ErrTypeUnauthorized)

// GetAccessToken returns the bearer token of the given request.
func GetAccessToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return ""
}

// VerifyAccessToken checks that the request carries the given bearer token. An
// empty token accepts every request.
func VerifyAccessToken(token string, r *http.Request) error {
	if token == "" {
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(GetAccessToken(r)), []byte(token)) != 1 {
		return ErrInvalidAccessToken
	}
	return nil
}

// VerifyAuthToken returns a WebSocket handshake that rejects the connections
// without the given access token.
func VerifyAuthToken(token string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := VerifyAccessToken(token, r); err != nil {
			logs.WithTag("remote_addr", r.RemoteAddr).
				WithClientID(r.Header.Get(HeaderClientID)).
				Warn(err)
			return err
		}

		return nil
	}
}

func VerifyAuthTokenHandler(token string, next http.HandlerFunc) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := VerifyAccessToken(token, r); err != nil {
			logs.WithTag("remote_addr", r.RemoteAddr).
				WithClientID(r.Header.Get(HeaderClientID)).
				Warn(err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}
