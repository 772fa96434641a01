package material

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Vovarama1992/dental-order-bridge/internal/ai"
)

// Classifier — внешний оракол для названий, которые не распознали таблицы.
// "" без ошибки означает "совпадения нет".
type Classifier interface {
	Classify(ctx context.Context, input string, category Category, candidates []string) (string, error)
}

var errNonConforming = errors.New("classifier: non-conforming reply")

const ClassifierSystemPrompt = `You are a dental material name normalizer. Return only valid JSON, no explanations.`

const ClassifierPrompt = `
Task: match the user's input to the closest standard material name.

You receive JSON:

{
  "input": "...",
  "category": "...",
  "standard_materials": ["...", "..."]
}

Rules:
1. Ignore case, spaces, dots and hyphens.
2. Handle typos and abbreviations.
3. Support multiple languages (English, Chinese, etc.).
4. Examples:
   - "IPS e.max", "emax", "伊馬克斯" -> "emax"
   - "Calypso", "卡呂普索" -> "calypso"
   - "全鋯", "FMZ" -> "fmz"
5. Answer ONLY with a name from standard_materials, or null.

Answer strictly JSON:

{"matched": "standard_name"}

or

{"matched": null}
`

type AIClassifier struct {
	ai ai.AI
}

func NewAIClassifier(client ai.AI) *AIClassifier {
	return &AIClassifier{ai: client}
}

func (c *AIClassifier) Classify(ctx context.Context, input string, category Category, candidates []string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"input":              input,
		"category":           category,
		"standard_materials": candidates,
	})
	if err != nil {
		return "", err
	}

	raw, err := c.ai.GetReply(ctx, ClassifierSystemPrompt+"\n"+ClassifierPrompt, string(payload))
	if err != nil {
		return "", err
	}

	return parseClassifierReply(raw, candidates)
}

// parseClassifierReply разбирает {"matched": string|null}, снимая ```json обёртку.
// Всё, что не по формату или вне списка кандидатов, — errNonConforming.
func parseClassifierReply(raw string, candidates []string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return "", errNonConforming
	}
	val, ok := obj["matched"]
	if !ok {
		return "", errNonConforming
	}
	if string(val) == "null" {
		return "", nil
	}

	var matched string
	if err := json.Unmarshal(val, &matched); err != nil {
		return "", errNonConforming
	}
	matched = strings.ToLower(strings.TrimSpace(matched))
	if matched == "" {
		return "", nil
	}
	for _, c := range candidates {
		if c == matched {
			return matched, nil
		}
	}
	return "", errNonConforming
}
