package crawler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Feature names the model may weight.
const (
	featureTokenCount   = "token_count"
	featureLexiconHits  = "lexicon_hits"
	featureLexiconRatio = "lexicon_ratio"
)

// Model is a linear classifier over document features, loaded from a JSON
// weights file exported by the training pipeline.
type Model struct {
	Bias      float64            `json:"bias"`
	Weights   map[string]float64 `json:"weights"`
	Threshold float64            `json:"threshold"`
}

// LoadModel reads model weights from path
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model %s has no weights", path)
	}
	return &m, nil
}

// Predict scores a single document against the threshold
func (m *Model) Predict(doc Document) bool {
	score := m.Bias
	for name, w := range m.Weights {
		score += w * feature(doc, name)
	}
	return score > m.Threshold
}

func feature(doc Document, name string) float64 {
	switch name {
	case featureTokenCount:
		return float64(len(doc.Tokens))
	case featureLexiconHits:
		return float64(doc.LexiconHits)
	case featureLexiconRatio:
		if len(doc.Tokens) == 0 {
			return 0
		}
		return float64(doc.LexiconHits) / float64(len(doc.Tokens))
	default:
		return 0
	}
}

// Prediction pairs a document with its inferred outcome
type Prediction struct {
	Doc     Document
	Outcome bool
}

// infer loads the model and scores every document. The model is read per
// run so weight updates on disk take effect without a restart.
func (c *Crawler) infer(docs []Document) ([]Prediction, error) {
	model, err := LoadModel(c.modelPath)
	if err != nil {
		return nil, err
	}
	preds := make([]Prediction, len(docs))
	positive := 0
	for i, doc := range docs {
		outcome := model.Predict(doc)
		preds[i] = Prediction{Doc: doc, Outcome: outcome}
		if outcome {
			positive++
		}
	}
	c.logger.Info("inference complete",
		slog.Int("documents", len(docs)),
		slog.Int("positive", positive))
	return preds, nil
}
