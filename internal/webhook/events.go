// Package webhook handles signed events from analyzers and issue trackers.
// Each accepted event updates a project's analysis input and recomputes its
// live measures.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/livemeasure/livemeasure/internal/recompute"
)

// Event types, sent in the X-Livemeasure-Event header.
const (
	EventPing     = "ping"
	EventAnalysis = "analysis"
	EventIssues   = "issues"
)

// VerifySignature validates the X-Livemeasure-Signature-256 header against
// the payload.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("invalid signature format")
	}
	sig, err := hex.DecodeString(signature[7:])
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Sign computes the signature header value for a payload.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// PingEvent is sent when a sender is configured.
type PingEvent struct {
	Zen string `json:"zen,omitempty"`
}

// AnalysisEvent carries a complete analysis input. The raw payload is kept
// so the input is stored exactly as sent.
type AnalysisEvent struct {
	ProjectID string
	Payload   []byte
}

// IssuesEvent carries status changes of existing issues.
type IssuesEvent struct {
	ProjectID string                  `json:"project_id"`
	Changes   []recompute.IssueChange `json:"changes"`
}

// ParseEvent parses a webhook payload based on the event type.
func ParseEvent(eventType string, payload []byte) (any, error) {
	switch eventType {
	case EventPing:
		var e PingEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse ping event: %w", err)
		}
		return &e, nil
	case EventAnalysis:
		var head struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal(payload, &head); err != nil {
			return nil, fmt.Errorf("parse analysis event: %w", err)
		}
		if head.ProjectID == "" {
			return nil, fmt.Errorf("analysis event has no project_id")
		}
		return &AnalysisEvent{ProjectID: head.ProjectID, Payload: payload}, nil
	case EventIssues:
		var e IssuesEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse issues event: %w", err)
		}
		if e.ProjectID == "" {
			return nil, fmt.Errorf("issues event has no project_id")
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}
