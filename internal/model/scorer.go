package model

import (
	"fmt"
	"math"

	"github.com/couchcryptid/suspension-forecast/internal/feature"
)

// SchemaMismatchError reports a vector whose schema version differs from the
// scorer's. This is a deploy-time incompatibility, not a data problem: the
// caller must stop rather than skip, because every subsequent vector will
// mismatch the same way.
type SchemaMismatchError struct {
	VectorSchema string
	ModelSchema  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("feature schema %q does not match model schema %q", e.VectorSchema, e.ModelSchema)
}

// compiledNode mirrors Node with the feature name resolved to a vector index
// so scoring does no string lookups.
type compiledNode struct {
	featureIdx int
	threshold  float64
	left       *compiledNode
	right      *compiledNode
	value      float64
	leaf       bool
}

// Scorer evaluates the classifier. Safe for concurrent use; the compiled
// trees are immutable after construction.
type Scorer struct {
	version       string
	schemaVersion string
	bias          float64
	trees         []*compiledNode
}

// NewScorer compiles a validated artifact into a Scorer.
func NewScorer(a *Artifact) (*Scorer, error) {
	if a == nil {
		return nil, fmt.Errorf("new scorer: nil artifact")
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("new scorer: %w", err)
	}

	trees := make([]*compiledNode, len(a.Trees))
	for i, tree := range a.Trees {
		trees[i] = compileNode(tree)
	}
	return &Scorer{
		version:       a.Version,
		schemaVersion: a.SchemaVersion,
		bias:          a.Bias,
		trees:         trees,
	}, nil
}

func compileNode(n *Node) *compiledNode {
	if n.Value != nil {
		return &compiledNode{leaf: true, value: *n.Value}
	}
	idx, _ := feature.Index(n.Feature)
	return &compiledNode{
		featureIdx: idx,
		threshold:  n.Threshold,
		left:       compileNode(n.Left),
		right:      compileNode(n.Right),
	}
}

// Version returns the artifact version the scorer was built from.
func (s *Scorer) Version() string { return s.version }

// Score returns the suspension probability for one feature vector. The
// result is a sigmoid over the bias plus the summed tree outputs, clamped to
// [0,1] against floating-point drift.
func (s *Scorer) Score(v feature.Vector) (float64, error) {
	if v.SchemaVersion() != s.schemaVersion {
		return 0, &SchemaMismatchError{VectorSchema: v.SchemaVersion(), ModelSchema: s.schemaVersion}
	}

	logit := s.bias
	for _, tree := range s.trees {
		node := tree
		for !node.leaf {
			if v.At(node.featureIdx) < node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		logit += node.value
	}

	p := 1 / (1 + math.Exp(-logit))
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p, nil
}
