package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

type keyVerifier func(candidate string) bool

// BasicAuth guards a handler with a shared channel id and plaintext key.
func BasicAuth(channelID, channelKey string) func(http.Handler) http.Handler {
	var verify keyVerifier
	if channelKey != "" {
		verify = func(candidate string) bool { return secureEqual(candidate, channelKey) }
	}
	return basicAuth(channelID, verify)
}

// BasicAuthBcrypt is BasicAuth with the channel key stored as a bcrypt hash.
func BasicAuthBcrypt(channelID, channelKeyHash string) func(http.Handler) http.Handler {
	var verify keyVerifier
	if channelKeyHash != "" {
		hash := []byte(channelKeyHash)
		verify = func(candidate string) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
		}
	}
	return basicAuth(channelID, verify)
}

func basicAuth(channelID string, verify keyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if channelID == "" || verify == nil {
				logger.Error("basic auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			id, key, ok := r.BasicAuth()
			if !ok || !secureEqual(id, channelID) || !verify(key) {
				logger.Info("basic auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_missing",
				})
				w.Header().Set("WWW-Authenticate", `Basic realm="ledger"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			logger.Debug("basic auth middleware authorized request", logger.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			next.ServeHTTP(w, r)
		})
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
