package surface

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// appJWT creates a minimal RS256 JWT identifying a GitHub App.
func appJWT(appID int64, iat, exp time.Time, key *rsa.PrivateKey) (string, error) {
	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	claims, err := json.Marshal(map[string]int64{
		"iss": appID,
		"iat": iat.Unix(),
		"exp": exp.Unix(),
	})
	if err != nil {
		return "", err
	}

	signingInput := encodeSegment(header) + "." + encodeSegment(claims)
	digest := crypto.SHA256.New()
	digest.Write([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest.Sum(nil))
	if err != nil {
		return "", fmt.Errorf("rsa sign: %w", err)
	}
	return signingInput + "." + encodeSegment(sig), nil
}

// encodeSegment uses unpadded base64url encoding (RFC 7515).
func encodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}
