package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// Claims is the identity carried by the bearer token. Tokens are issued
// by the auth service; this API only verifies them.
type Claims struct {
	UserID int64 `json:"user_id"`
	Admin  bool  `json:"admin"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID int64
	Admin  bool
}

type contextKey string

const identityKey contextKey = "identity"

var errInvalidToken = errors.New("invalid or missing bearer token")

type authenticator struct {
	secret []byte
}

func newAuthenticator(secret string) *authenticator {
	return &authenticator{secret: []byte(secret)}
}

func (a *authenticator) parseToken(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errInvalidToken
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, errInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.UserID == 0 {
		return nil, errInvalidToken
	}
	return &Identity{UserID: claims.UserID, Admin: claims.Admin}, nil
}

// authenticated wraps a handler so it only runs with a valid identity in
// context.
func (s *Server) authenticated(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, err := s.auth.parseToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx), ps)
	}
}

// adminOnly additionally requires the admin flag.
func (s *Server) adminOnly(next httprouter.Handle) httprouter.Handle {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !identityFrom(r.Context()).Admin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, ps)
	})
}

// identityFrom returns the caller identity. Only reachable after the
// authenticated middleware, so a missing identity is a programming error.
func identityFrom(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	if identity == nil {
		return &Identity{}
	}
	return identity
}
