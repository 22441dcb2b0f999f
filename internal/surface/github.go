// Package surface publishes live measure results to external systems.
package surface

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/livemeasure/livemeasure/pkg/surface"
)

const defaultBaseURL = "https://api.github.com"

// GitHubPublisher publishes Check Runs to the GitHub API using
// GitHub App authentication (JWT -> installation token).
type GitHubPublisher struct {
	appID      int64
	privateKey *rsa.PrivateKey
	baseURL    string
	checkName  string
	httpClient *http.Client
}

// Option configures a GitHubPublisher.
type Option func(*GitHubPublisher)

// WithBaseURL points the publisher at a GitHub Enterprise API root.
func WithBaseURL(url string) Option {
	return func(p *GitHubPublisher) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithCheckName sets the name shown on the check run.
func WithCheckName(name string) Option {
	return func(p *GitHubPublisher) {
		p.checkName = name
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *GitHubPublisher) {
		p.httpClient = c
	}
}

// NewGitHubPublisher creates a publisher from the App ID and PEM-encoded
// private key. PKCS#1 and PKCS#8 keys are accepted.
func NewGitHubPublisher(appID int64, privateKeyPEM []byte, opts ...Option) (*GitHubPublisher, error) {
	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}

	p := &GitHubPublisher{
		appID:      appID,
		privateKey: key,
		baseURL:    defaultBaseURL,
		checkName:  "Live Measures",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, not RSA", parsed)
	}
	return key, nil
}

// PublishCheckRun creates a completed GitHub Check Run on the given commit.
func (p *GitHubPublisher) PublishCheckRun(ctx context.Context, installationID int64, owner, repo, headSHA string, data surface.CheckRunData) error {
	token, err := p.installationToken(ctx, installationID)
	if err != nil {
		return fmt.Errorf("get installation token: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"name":       p.checkName,
		"head_sha":   headSHA,
		"status":     "completed",
		"conclusion": data.Conclusion,
		"output": map[string]string{
			"title":   data.Title,
			"summary": data.Summary,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal check run: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/check-runs", p.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post check run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github API error %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// installationToken exchanges an App JWT for an installation access token.
func (p *GitHubPublisher) installationToken(ctx context.Context, installationID int64) (string, error) {
	// GitHub App JWTs: iat is backdated 60s, exp is max 10 minutes
	now := time.Now()
	jwt, err := appJWT(p.appID, now.Add(-60*time.Second), now.Add(5*time.Minute), p.privateKey)
	if err != nil {
		return "", fmt.Errorf("generate JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", p.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return result.Token, nil
}
