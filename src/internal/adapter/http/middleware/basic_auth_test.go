package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithCredentials(id, key string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/transactions/abc", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(id+":"+key)))
	return req
}

func TestBasicAuth_AllowsValidCredentials(t *testing.T) {
	rr := httptest.NewRecorder()
	BasicAuth("LedgerApp", "LedgerKey001")(okHandler()).ServeHTTP(rr, requestWithCredentials("LedgerApp", "LedgerKey001"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestBasicAuth_RejectsInvalidCredentials(t *testing.T) {
	rr := httptest.NewRecorder()
	BasicAuth("LedgerApp", "LedgerKey001")(okHandler()).ServeHTTP(rr, requestWithCredentials("LedgerApp", "WrongKey"))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate challenge")
	}
}

func TestBasicAuth_RejectsMissingHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	BasicAuth("LedgerApp", "LedgerKey001")(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestBasicAuth_MissingServerConfiguration(t *testing.T) {
	rr := httptest.NewRecorder()
	BasicAuth("", "")(okHandler()).ServeHTTP(rr, requestWithCredentials("LedgerApp", "LedgerKey001"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
}

func TestBasicAuthBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("LedgerKey001"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	mw := BasicAuthBcrypt("LedgerApp", string(hash))

	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, requestWithCredentials("LedgerApp", "LedgerKey001"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	rr = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, requestWithCredentials("LedgerApp", "nope"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}
