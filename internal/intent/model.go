package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gardenDesignAi/internal/lexicon"
	"gardenDesignAi/internal/llm"
	"gardenDesignAi/internal/prompts"
)

const interpretTemperature = 0.3

// ModelInterpreter delegates interpretation to a text model bound by a strict JSON contract.
type ModelInterpreter struct {
	client llm.Client
	model  string
}

// NewModelInterpreter wraps client. A non-empty model overrides the client's default.
func NewModelInterpreter(client llm.Client, model string) *ModelInterpreter {
	return &ModelInterpreter{client: client, model: strings.TrimSpace(model)}
}

type payload struct {
	Elements   []string `json:"elements"`
	Excluded   []string `json:"excluded"`
	Existing   []string `json:"existing"`
	OutOfScope []string `json:"out_of_scope"`
	Summary    string   `json:"summary"`
}

// Interpret implements Interpreter. Provider failures are returned; unusable answers are not.
func (m *ModelInterpreter) Interpret(ctx context.Context, text, style string) (Result, error) {
	if m == nil || m.client == nil {
		return Result{}, fmt.Errorf("intent: model interpreter not configured")
	}
	if m.model != "" {
		ctx = llm.WithModel(ctx, m.model)
	}

	tags := make([]string, 0, len(lexicon.Categories()))
	for _, c := range lexicon.Categories() {
		tags = append(tags, c.Tag)
	}
	prompt := prompts.InterpretationPrompt(text, style, tags)

	raw, err := m.client.ChatCompletion(ctx, []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}}, interpretTemperature)
	if err != nil {
		return Result{}, fmt.Errorf("intent: interpret: %w", err)
	}

	parsed, err := parsePayload(raw)
	if err != nil {
		return Fallback(text), nil
	}
	return Reconcile(text, Result{
		Elements:   parsed.Elements,
		Excluded:   parsed.Excluded,
		Existing:   parsed.Existing,
		OutOfScope: parsed.OutOfScope,
		Summary:    parsed.Summary,
	}), nil
}

var errNoObject = errors.New("intent: no JSON object in answer")

// parsePayload accepts a bare object, a fenced code block or text surrounding one object.
func parsePayload(raw string) (payload, error) {
	text := stripFence(strings.TrimSpace(raw))
	var p payload
	if err := json.Unmarshal([]byte(text), &p); err == nil {
		return p, validate(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return payload{}, errNoObject
	}
	body := text[start : end+1]
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return payload{}, fmt.Errorf("intent: parse answer: %w", err)
	}
	return p, validate(body)
}

// validate rejects objects that do not carry the required keys.
func validate(body string) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &keys); err != nil {
		return fmt.Errorf("intent: parse answer: %w", err)
	}
	if _, ok := keys["elements"]; !ok {
		return fmt.Errorf("intent: answer missing elements")
	}
	return nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimPrefix(text, "json"))
}
