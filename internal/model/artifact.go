// Package model loads a pretrained gradient-boosted-tree classifier and
// scores feature vectors with it. The artifact is a JSON document produced by
// the offline training pipeline; scoring is pure arithmetic with no I/O.
package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/suspension-forecast/internal/feature"
)

//go:embed artifact/suspension_gbt_v1.json
var embeddedArtifact []byte

// Node is one decision-tree node as serialized in the artifact. Interior
// nodes carry a feature, a threshold, and two children; leaves carry only a
// value. The split rule is x[feature] < threshold goes left, else right.
type Node struct {
	Feature   string   `json:"feature,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	Left      *Node    `json:"left,omitempty"`
	Right     *Node    `json:"right,omitempty"`
	Value     *float64 `json:"value,omitempty"`
}

// Artifact is the serialized classifier: an additive ensemble of trees whose
// summed outputs, plus the bias, pass through a sigmoid.
type Artifact struct {
	Version       string   `json:"version"`
	SchemaVersion string   `json:"schema_version"`
	Bias          float64  `json:"bias"`
	FeatureNames  []string `json:"feature_names"`
	Trees         []*Node  `json:"trees"`
}

// LoadArtifact reads and validates an artifact from disk. An empty path loads
// the embedded default.
func LoadArtifact(path string) (*Artifact, error) {
	data := embeddedArtifact
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model artifact: %w", err)
		}
	}
	return parseArtifact(data)
}

func parseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("validate model artifact %q: %w", a.Version, err)
	}
	return &a, nil
}

// validate checks the artifact against the compiled-in feature schema. The
// artifact records the training column order; any divergence means every
// score would be computed against the wrong features, so mismatches are
// load-time failures.
func (a *Artifact) validate() error {
	if a.Version == "" {
		return fmt.Errorf("missing version")
	}
	if a.SchemaVersion != feature.SchemaVersion {
		return fmt.Errorf("schema %q does not match %q", a.SchemaVersion, feature.SchemaVersion)
	}
	if len(a.FeatureNames) != feature.Count {
		return fmt.Errorf("artifact lists %d features, schema has %d", len(a.FeatureNames), feature.Count)
	}
	for i, name := range a.FeatureNames {
		if name != feature.Names[i] {
			return fmt.Errorf("feature %d is %q, schema has %q", i, name, feature.Names[i])
		}
	}
	if len(a.Trees) == 0 {
		return fmt.Errorf("artifact has no trees")
	}
	for i, tree := range a.Trees {
		if err := validateNode(tree); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func validateNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if n.Value != nil {
		if n.Left != nil || n.Right != nil || n.Feature != "" {
			return fmt.Errorf("leaf node carries split fields")
		}
		return nil
	}
	if _, ok := feature.Index(n.Feature); !ok {
		return fmt.Errorf("split on unknown feature %q", n.Feature)
	}
	if n.Left == nil || n.Right == nil {
		return fmt.Errorf("interior node on %q missing a child", n.Feature)
	}
	if err := validateNode(n.Left); err != nil {
		return err
	}
	return validateNode(n.Right)
}
