package model

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, artifact any) string {
	t.Helper()
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "popularity_predictor_final.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func linearArtifact() Artifact {
	return Artifact{
		Name:         "linear-test",
		Type:         TypeLinear,
		Features:     []string{"a", "b"},
		Intercept:    10,
		Coefficients: []float64{2, -1},
	}
}

// stump splits on "a" at 0.5 and returns 20 or 80
func stumpTree() Tree {
	return Tree{Nodes: []Node{
		{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
		{Leaf: true, Value: 20},
		{Leaf: true, Value: 80},
	}}
}

func TestLoadModelLinear(t *testing.T) {
	path := writeArtifact(t, linearArtifact())

	model, err := LoadModel(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "linear-test", model.Info.Model)
	assert.Contains(t, model.Info.UUID, "linear-test_")
	assert.Greater(t, model.Info.SizeMB, 0.0)
	assert.Equal(t, []string{"a", "b"}, model.Features())

	got, err := model.Predict([]float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 12.0, got)
}

func TestLoadModelNameFromFile(t *testing.T) {
	artifact := linearArtifact()
	artifact.Name = ""
	model, err := LoadModel(writeArtifact(t, artifact), 0)
	require.NoError(t, err)
	assert.Equal(t, "popularity_predictor_final", model.Info.Model)
}

func TestLoadModelErrors(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"), 0)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))
	_, err = LoadModel(bad, 0)
	assert.Error(t, err)

	_, err = LoadModel(writeArtifact(t, linearArtifact()), 8)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestNewModelValidation(t *testing.T) {
	cases := map[string]Artifact{
		"no features":          {Type: TypeLinear},
		"unknown type":         {Type: "svm", Features: []string{"a"}},
		"coefficient size":     {Type: TypeLinear, Features: []string{"a", "b"}, Coefficients: []float64{1}},
		"no trees":             {Type: TypeTreeEnsemble, Features: []string{"a"}},
		"bad aggregation":      {Type: TypeTreeEnsemble, Features: []string{"a"}, Aggregation: "median", Trees: []Tree{stumpTree()}},
		"feature out of range": {Type: TypeTreeEnsemble, Features: []string{"a"}, Trees: []Tree{{Nodes: []Node{{Feature: 3, Left: 1, Right: 2}, {Leaf: true}, {Leaf: true}}}}},
		"child cycle":          {Type: TypeTreeEnsemble, Features: []string{"a"}, Trees: []Tree{{Nodes: []Node{{Feature: 0, Left: 0, Right: 1}, {Leaf: true}}}}},
		"empty tree":           {Type: TypeTreeEnsemble, Features: []string{"a"}, Trees: []Tree{{}}},
	}
	for name, artifact := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewModel(artifact)
			assert.Error(t, err)
		})
	}
}

func TestTreeEnsembleMean(t *testing.T) {
	model, err := NewModel(Artifact{
		Type:     TypeTreeEnsemble,
		Features: []string{"a", "b"},
		Trees: []Tree{
			stumpTree(),
			{Nodes: []Node{{Leaf: true, Value: 40}}},
		},
	})
	require.NoError(t, err)

	low, err := model.Predict([]float64{0.2, 0})
	require.NoError(t, err)
	assert.Equal(t, 30.0, low)

	high, err := model.Predict([]float64{0.9, 0})
	require.NoError(t, err)
	assert.Equal(t, 60.0, high)

	boundary, err := model.Predict([]float64{0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, 30.0, boundary, "threshold is inclusive on the left")
}

func TestTreeEnsembleSum(t *testing.T) {
	model, err := NewModel(Artifact{
		Type:        TypeTreeEnsemble,
		Features:    []string{"a"},
		Aggregation: AggregationSum,
		BaseScore:   1.5,
		Trees:       []Tree{stumpTree(), stumpTree()},
	})
	require.NoError(t, err)

	got, err := model.Predict([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, 161.5, got)
}

func TestPredictShapeMismatch(t *testing.T) {
	model, err := NewModel(linearArtifact())
	require.NoError(t, err)

	_, err = model.Predict([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestModelIsRegressor(t *testing.T) {
	var _ Regressor = (*Model)(nil)
}
