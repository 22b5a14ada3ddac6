// Package mood maps the closed mood vocabulary between display labels and
// stored canonical tokens, and encrypts moods through the field codec.
package mood

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jotvault/jotvault/internal/field"
)

// ErrUnknownVocabulary marks a mood outside the closed vocabulary. It is
// reported through the logger, never returned.
var ErrUnknownVocabulary = errors.New("mood not in vocabulary")

// Mood is one entry of the closed vocabulary
type Mood struct {
	Token string
	Label string
	Emoji string
}

var vocabulary = []Mood{
	{Token: "very-happy", Label: "Very Happy", Emoji: "😄"},
	{Token: "happy", Label: "Happy", Emoji: "🙂"},
	{Token: "neutral", Label: "Neutral", Emoji: "😐"},
	{Token: "sad", Label: "Sad", Emoji: "😢"},
	{Token: "angry", Label: "Angry", Emoji: "😠"},
}

// historical spellings, keyed lowercase
var legacyAliases = map[string]string{
	"very happy": "very-happy",
	"veryhappy":  "very-happy",
	"very_happy": "very-happy",
	"ok":         "neutral",
	"okay":       "neutral",
	"mad":        "angry",
}

// All returns the vocabulary in display order
func All() []Mood {
	out := make([]Mood, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Lookup finds a mood by display label, case-insensitively
func Lookup(label string) (Mood, bool) {
	for _, m := range vocabulary {
		if strings.EqualFold(m.Label, label) {
			return m, true
		}
	}
	return Mood{}, false
}

// ByToken finds a mood by canonical token, case-insensitively
func ByToken(token string) (Mood, bool) {
	for _, m := range vocabulary {
		if strings.EqualFold(m.Token, token) {
			return m, true
		}
	}
	return Mood{}, false
}

// Decoded is the result of decoding a stored mood
type Decoded struct {
	// Label is the display label, or the raw stored value when Known is false
	Label string
	Mood  Mood
	Known bool
}

// Present reports whether a mood value was stored at all
func (d Decoded) Present() bool {
	return d.Label != ""
}

// Codec encodes moods for storage
type Codec struct {
	fields *field.Codec
	logger *slog.Logger
}

// NewCodec creates a mood codec
func NewCodec(fields *field.Codec, logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{fields: fields, logger: logger}
}

// Encode encrypts the canonical token for label. Labels outside the
// vocabulary are lowercased and stored anyway.
func (c *Codec) Encode(ctx context.Context, label, password string) (string, error) {
	if label == "" {
		return "", nil
	}

	token := strings.ToLower(label)
	if m, ok := Lookup(label); ok {
		token = m.Token
	} else {
		c.logger.WarnContext(ctx, "storing mood outside vocabulary",
			slog.String("error", ErrUnknownVocabulary.Error()),
			slog.Int("length", len(label)))
	}

	stored, err := c.fields.EncryptField(token, password)
	if err != nil {
		return "", fmt.Errorf("failed to encode mood: %w", err)
	}
	return stored, nil
}

// Decode decrypts a stored mood. An empty stored value decodes to a
// Decoded that is not Present.
func (c *Codec) Decode(ctx context.Context, stored, password string) (Decoded, error) {
	if stored == "" {
		return Decoded{}, nil
	}

	token, err := c.fields.DecryptField(stored, password)
	if err != nil {
		return Decoded{}, fmt.Errorf("failed to decode mood: %w", err)
	}
	if token == "" {
		return Decoded{}, nil
	}

	if m, ok := resolve(strings.TrimSpace(token)); ok {
		return Decoded{Label: m.Label, Mood: m, Known: true}, nil
	}

	c.logger.WarnContext(ctx, "stored mood outside vocabulary",
		slog.String("error", ErrUnknownVocabulary.Error()),
		slog.Int("length", len(token)))
	return Decoded{Label: token}, nil
}

func resolve(token string) (Mood, bool) {
	if m, ok := ByToken(token); ok {
		return m, true
	}
	if canonical, ok := legacyAliases[strings.ToLower(token)]; ok {
		return ByToken(canonical)
	}
	// rows written before tokens were introduced stored the label itself
	return Lookup(token)
}
