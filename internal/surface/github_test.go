package surface

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/livemeasure/livemeasure/pkg/surface"
)

func testKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return key, pemBytes
}

func TestAppJWTVerifies(t *testing.T) {
	key, _ := testKey(t)
	iat := time.Unix(1700000000, 0)
	token, err := appJWT(42, iat, iat.Add(5*time.Minute), key)
	if err != nil {
		t.Fatalf("appJWT: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d segments, want 3", len(parts))
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	var claims map[string]int64
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("unmarshal claims: %v", err)
	}
	if claims["iss"] != 42 || claims["iat"] != iat.Unix() {
		t.Errorf("claims = %v", claims)
	}
}

func TestNewGitHubPublisherKeyFormats(t *testing.T) {
	key, pkcs1 := testKey(t)
	if _, err := NewGitHubPublisher(1, pkcs1); err != nil {
		t.Errorf("PKCS#1: %v", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal PKCS#8: %v", err)
	}
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if _, err := NewGitHubPublisher(1, pkcs8); err != nil {
		t.Errorf("PKCS#8: %v", err)
	}

	if _, err := NewGitHubPublisher(1, []byte("not pem")); err == nil {
		t.Error("expected error for invalid PEM")
	}
}

func TestPublishCheckRun(t *testing.T) {
	_, pemBytes := testKey(t)

	var checkRun map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /app/installations/7/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("token request without bearer JWT")
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "inst-token"})
	})
	mux.HandleFunc("POST /repos/octocat/hello/check-runs", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token inst-token" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&checkRun); err != nil {
			t.Errorf("decode check run: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := NewGitHubPublisher(1, pemBytes, WithBaseURL(srv.URL+"/"), WithCheckName("measures"))
	if err != nil {
		t.Fatalf("NewGitHubPublisher: %v", err)
	}

	data := surface.CheckRunData{Title: "livemeasure: A", Summary: "ok", Conclusion: "success"}
	if err := p.PublishCheckRun(context.Background(), 7, "octocat", "hello", "abc", data); err != nil {
		t.Fatalf("PublishCheckRun: %v", err)
	}

	if checkRun["name"] != "measures" || checkRun["head_sha"] != "abc" || checkRun["conclusion"] != "success" {
		t.Errorf("check run = %v", checkRun)
	}
}

func TestPublishCheckRunAPIError(t *testing.T) {
	_, pemBytes := testKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewGitHubPublisher(1, pemBytes, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewGitHubPublisher: %v", err)
	}
	err = p.PublishCheckRun(context.Background(), 7, "o", "r", "sha", surface.CheckRunData{})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected token failure with status, got %v", err)
	}
}
