package crawler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"socialpulse/pkg/contracts/domain"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// Document is one unit of cleaned text ready for inference
type Document struct {
	SourceID    int64
	ContainerID int64
	ItemID      int64
	Text        string
	Tokens      []string
	LexiconHits int
}

// Lexicon is the set of terms counted as signal features in a document
type Lexicon map[string]struct{}

// LoadLexicon reads a JSON array of terms from path. Terms are lowercased;
// duplicates collapse.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	var terms []string
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	lex := make(Lexicon, len(terms))
	for _, t := range terms {
		lex[strings.ToLower(t)] = struct{}{}
	}
	return lex, nil
}

// Hits counts tokens present in the lexicon
func (l Lexicon) Hits(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if _, ok := l[t]; ok {
			n++
		}
	}
	return n
}

// Preprocessor turns staged JSON files into inference-ready documents:
// length filtering, text cleanup, tokenization, lexicon feature counts.
type Preprocessor struct {
	minLength int
	lexicon   Lexicon
	logger    *slog.Logger
}

// NewPreprocessor returns a preprocessor keeping only texts of at least
// minLength runes
func NewPreprocessor(minLength int, lexicon Lexicon, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{minLength: minLength, lexicon: lexicon, logger: logger}
}

// Sources reads staged source metadata files and returns the decoded
// records in file order.
func (p *Preprocessor) Sources(files []string) ([]domain.Source, error) {
	sources := make([]domain.Source, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read staged source: %w", err)
		}
		var src domain.Source
		if err := json.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("parse staged source %s: %w", f, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Items flattens staged posts and comments (including nested reply
// threads) into documents, dropping texts below the minimum length and
// documents with no tokens left after cleanup.
func (p *Preprocessor) Items(postFiles, commentFiles []string) ([]Document, error) {
	var docs []Document
	dropped := 0

	for _, f := range postFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read staged posts: %w", err)
		}
		var posts []domain.Post
		if err := json.Unmarshal(data, &posts); err != nil {
			return nil, fmt.Errorf("parse staged posts %s: %w", f, err)
		}
		for _, post := range posts {
			doc, ok := p.document(post.SourceID, 0, post.ID, post.Text)
			if !ok {
				dropped++
				continue
			}
			docs = append(docs, doc)
		}
	}

	for _, f := range commentFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read staged comments: %w", err)
		}
		var comments []domain.Comment
		if err := json.Unmarshal(data, &comments); err != nil {
			return nil, fmt.Errorf("parse staged comments %s: %w", f, err)
		}
		for _, com := range flatten(comments) {
			doc, ok := p.document(com.SourceID, com.PostID, com.ID, com.Text)
			if !ok {
				dropped++
				continue
			}
			docs = append(docs, doc)
		}
	}

	p.logger.Info("preprocessing complete",
		slog.Int("documents", len(docs)),
		slog.Int("dropped", dropped))
	return docs, nil
}

// document builds a single cleaned document; ok is false when the text is
// filtered out.
func (p *Preprocessor) document(sourceID, containerID, itemID int64, text string) (Document, bool) {
	if utf8.RuneCountInString(text) < p.minLength {
		return Document{}, false
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Document{}, false
	}
	return Document{
		SourceID:    sourceID,
		ContainerID: containerID,
		ItemID:      itemID,
		Text:        text,
		Tokens:      tokens,
		LexiconHits: p.lexicon.Hits(tokens),
	}, true
}

// flatten expands nested reply threads into a flat comment list,
// preserving input order with each thread inlined after its parent.
func flatten(comments []domain.Comment) []domain.Comment {
	out := make([]domain.Comment, 0, len(comments))
	for _, c := range comments {
		thread := c.Thread
		c.Thread = nil
		out = append(out, c)
		if len(thread) > 0 {
			out = append(out, flatten(thread)...)
		}
	}
	return out
}

// tokenize lowercases, strips URLs and punctuation, and splits on
// whitespace, keeping tokens of two or more runes.
func tokenize(text string) []string {
	cleaned := strings.ToLower(text)
	cleaned = urlPattern.ReplaceAllString(cleaned, " ")
	cleaned = nonWordPattern.ReplaceAllString(cleaned, " ")

	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
