package crawler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	path := writeStagedFile(t, dir, "model.json", Model{
		Bias:      0.1,
		Weights:   map[string]float64{featureTokenCount: 0.02},
		Threshold: 1.5,
	})

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, m.Bias)
	assert.Equal(t, 1.5, m.Threshold)
}

func TestLoadModelErrors(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	dir := t.TempDir()
	empty := writeStagedFile(t, dir, "empty.json", Model{Threshold: 1})
	_, err = LoadModel(empty)
	assert.ErrorContains(t, err, "no weights")
}

func TestModelPredict(t *testing.T) {
	m := &Model{
		Bias: 0.5,
		Weights: map[string]float64{
			featureLexiconHits:  1.0,
			featureLexiconRatio: 2.0,
		},
		Threshold: 2.0,
	}

	tests := []struct {
		name string
		doc  Document
		want bool
	}{
		{
			name: "above threshold",
			doc:  Document{Tokens: []string{"a", "b", "c", "d"}, LexiconHits: 2},
			// 0.5 + 2*1.0 + (2/4)*2.0 = 3.5
			want: true,
		},
		{
			name: "below threshold",
			doc:  Document{Tokens: []string{"a", "b", "c", "d"}, LexiconHits: 0},
			want: false,
		},
		{
			name: "exactly at threshold is negative",
			doc:  Document{Tokens: []string{"a", "b", "c", "d"}, LexiconHits: 1},
			// 0.5 + 1*1.0 + (1/4)*2.0 = 2.0, not strictly greater
			want: false,
		},
		{
			name: "no tokens",
			doc:  Document{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Predict(tt.doc))
		})
	}
}

func TestModelUnknownFeatureIgnored(t *testing.T) {
	m := &Model{
		Weights:   map[string]float64{"unknown_feature": 100.0},
		Threshold: 0.5,
	}
	assert.False(t, m.Predict(Document{Tokens: []string{"a"}}))
}
