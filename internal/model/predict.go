package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Regressor maps an ordered feature row to a single score.
type Regressor interface {
	Predict(features []float64) (float64, error)
	Features() []string
}

const (
	TypeLinear       = "linear"
	TypeTreeEnsemble = "tree_ensemble"

	AggregationMean = "mean"
	AggregationSum  = "sum"
)

// Artifact is the on-disk form of a trained model.
type Artifact struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Features []string `json:"features"`

	Intercept    float64   `json:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`

	Aggregation string  `json:"aggregation,omitempty"`
	BaseScore   float64 `json:"base_score,omitempty"`
	Trees       []Tree  `json:"trees,omitempty"`
}

// Tree is a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Leaf is false: samples with x[Feature] <= Threshold
// go Left, everything else (NaN included) goes Right.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// Info describes the loaded artifact file.
type Info struct {
	Model  string  `json:"model"`
	UUID   string  `json:"uuid"`
	SizeMB float64 `json:"sizeMB"`
	Type   string  `json:"type"`
	Path   string  `json:"path"`
}

// Model is a loaded, validated artifact ready for prediction. It is safe for
// concurrent use since nothing mutates it after loading.
type Model struct {
	Info     Info
	artifact Artifact
}

var ErrTooLarge = errors.New("model artifact exceeds configured size limit")

// LoadModel reads and validates an artifact. maxBytes <= 0 disables the size
// check.
func LoadModel(filename string, maxBytes int64) (*Model, error) {
	stat, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && stat.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, stat.Size(), maxBytes)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	model, err := NewModel(artifact)
	if err != nil {
		return nil, err
	}

	name := artifact.Name
	if name == "" {
		name = strings.Split(filepath.Base(filename), ".")[0]
	}
	model.Info = Info{
		Model:  name,
		UUID:   name + "_" + strconv.FormatInt(stat.ModTime().Unix(), 10),
		SizeMB: float64(stat.Size()) / 1000000.,
		Type:   artifact.Type,
		Path:   filename,
	}
	return model, nil
}

// NewModel validates an in-memory artifact.
func NewModel(artifact Artifact) (*Model, error) {
	if len(artifact.Features) == 0 {
		return nil, errors.New("model artifact lists no features")
	}
	width := len(artifact.Features)

	switch artifact.Type {
	case TypeLinear:
		if len(artifact.Coefficients) != width {
			return nil, fmt.Errorf("linear model has %d coefficients for %d features", len(artifact.Coefficients), width)
		}
	case TypeTreeEnsemble:
		if len(artifact.Trees) == 0 {
			return nil, errors.New("tree ensemble has no trees")
		}
		switch artifact.Aggregation {
		case "":
			artifact.Aggregation = AggregationMean
		case AggregationMean, AggregationSum:
		default:
			return nil, fmt.Errorf("unknown aggregation %q", artifact.Aggregation)
		}
		for i, tree := range artifact.Trees {
			if err := tree.validate(width); err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown model type %q", artifact.Type)
	}

	return &Model{
		Info:     Info{Model: artifact.Name, Type: artifact.Type},
		artifact: artifact,
	}, nil
}

func (t Tree) validate(width int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d splits on feature %d, model has %d", i, n.Feature, width)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has children %d/%d outside (%d, %d)", i, n.Left, n.Right, i, len(t.Nodes))
		}
	}
	return nil
}

// Features returns the column order the model was trained on.
func (model *Model) Features() []string {
	return append([]string(nil), model.artifact.Features...)
}

// Predict scores a single row. The row must have exactly one value per
// trained feature, in training order.
func (model *Model) Predict(row []float64) (float64, error) {
	if len(row) != len(model.artifact.Features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(model.artifact.Features), len(row))
	}

	switch model.artifact.Type {
	case TypeLinear:
		result := model.artifact.Intercept
		for i, c := range model.artifact.Coefficients {
			result += c * row[i]
		}
		return result, nil
	case TypeTreeEnsemble:
		var sum float64
		for i, tree := range model.artifact.Trees {
			v, err := tree.eval(row)
			if err != nil {
				return 0, fmt.Errorf("tree %d: %w", i, err)
			}
			sum += v
		}
		if model.artifact.Aggregation == AggregationSum {
			return model.artifact.BaseScore + sum, nil
		}
		return model.artifact.BaseScore + sum/float64(len(model.artifact.Trees)), nil
	}
	return 0, fmt.Errorf("unknown model type %q", model.artifact.Type)
}

// children always have higher indices than their parent, so the walk ends
// within len(Nodes) steps
func (t Tree) eval(row []float64) (float64, error) {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value, nil
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0, errors.New("tree walk did not reach a leaf")
}
