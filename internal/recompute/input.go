package recompute

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/issues"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
)

// Input is the analysis data of one project: its component tree, its
// issues, and the development cost estimates of its components.
type Input struct {
	ProjectID        string                     `json:"project_id"`
	Name             string                     `json:"name,omitempty"`
	Tree             *component.Component       `json:"tree"`
	Issues           []issues.Issue             `json:"issues"`
	DevelopmentCosts map[string]DevelopmentCost `json:"development_costs,omitempty"`
	Revision         *Revision                  `json:"revision,omitempty"`
}

// Revision identifies the commit an input was produced from. Passes over an
// input with a revision can be published as a check run on that commit.
type Revision struct {
	Repository     string `json:"repository"` // owner/name
	HeadSHA        string `json:"head_sha"`
	InstallationID int64  `json:"installation_id,omitempty"`
}

// IssueChange is a status transition of one issue, such as a user marking
// it as a false positive or a hotspot as reviewed. An empty resolution
// reopens the issue.
type IssueChange struct {
	Key        string `json:"key"`
	Status     string `json:"status"`
	Resolution string `json:"resolution,omitempty"`
}

// DevelopmentCost is the estimated cost of writing a component from
// scratch. Overall cost is supplied as text, new code cost as a number.
type DevelopmentCost struct {
	Overall string   `json:"overall,omitempty"`
	NewCode *float64 `json:"new_code,omitempty"`
}

// ErrInvalidInput marks input documents that cannot be decoded or
// validated.
var ErrInvalidInput = errors.New("invalid input")

// DecodeInput parses and validates an input document.
func DecodeInput(data []byte) (*Input, error) {
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &in, nil
}

// Validate checks that the input names its project and carries a valid tree.
func (in *Input) Validate() error {
	if in.ProjectID == "" {
		return fmt.Errorf("input has no project_id")
	}
	if err := in.Tree.Validate(); err != nil {
		return fmt.Errorf("input tree: %w", err)
	}
	if rev := in.Revision; rev != nil {
		if !strings.Contains(rev.Repository, "/") || rev.HeadSHA == "" {
			return fmt.Errorf("revision needs an owner/name repository and a head_sha")
		}
	}
	return nil
}

// applyChanges updates the status and resolution of the issues named by
// changes. Nothing is changed when a key is unknown.
func (in *Input) applyChanges(changes []IssueChange) error {
	byKey := make(map[string]int, len(in.Issues))
	for i, iss := range in.Issues {
		byKey[iss.Key] = i
	}
	for _, c := range changes {
		if _, ok := byKey[c.Key]; !ok {
			return fmt.Errorf("%w: unknown issue %q", ErrInvalidInput, c.Key)
		}
		if c.Status == "" {
			return fmt.Errorf("%w: issue %q: empty status", ErrInvalidInput, c.Key)
		}
	}
	for _, c := range changes {
		iss := &in.Issues[byKey[c.Key]]
		iss.Status = c.Status
		iss.Resolution = c.Resolution
	}
	return nil
}

// ApplyDevelopmentCosts adds the development costs of the input to the
// prior measures the engine reads them from.
func (in *Input) ApplyDevelopmentCosts(prior measure.Snapshot) {
	for id, cost := range in.DevelopmentCosts {
		if cost.Overall != "" {
			prior.Put(id, metric.DevelopmentCost, measure.Text(cost.Overall))
		}
		if cost.NewCode != nil {
			prior.Put(id, metric.NewDevelopmentCost, measure.Num(*cost.NewCode))
		}
	}
}
