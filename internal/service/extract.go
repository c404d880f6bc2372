package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
)

// ExtractionError reports why no JSON object could be taken from a model
// reply. Raw is the reply exactly as received.
type ExtractionError struct {
	Kind          apperr.Kind
	ParserMessage string
	Raw           string
}

func (e *ExtractionError) Error() string {
	if e.ParserMessage != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.ParserMessage)
	}
	return string(e.Kind)
}

// Unwrap exposes the classified error for the HTTP layer.
func (e *ExtractionError) Unwrap() error {
	return apperr.New(e.Kind, "")
}

// ExtractJSONObject pulls the JSON object out of a model reply that may carry
// prose or code fences around it. The balanced object starting at the first
// '{' is tried first, then the span from the first '{' to the last '}'.
// Numbers are kept as json.Number.
func ExtractJSONObject(raw string) (map[string]any, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, &ExtractionError{Kind: apperr.KindNoJSONObjectFound, Raw: raw}
	}
	end := strings.LastIndexByte(raw, '}')
	if end < start {
		return nil, &ExtractionError{Kind: apperr.KindNoJSONObjectFound, Raw: raw}
	}

	span := raw[start : end+1]
	candidates := make([]string, 0, 2)
	if balanced, ok := balancedObject(raw[start:]); ok && balanced != span {
		candidates = append(candidates, balanced)
	}
	candidates = append(candidates, span)

	var lastErr error
	for _, c := range candidates {
		obj, err := decodeObject(c)
		if err == nil {
			return obj, nil
		}
		lastErr = err
	}
	return nil, &ExtractionError{Kind: apperr.KindMalformedJSON, ParserMessage: lastErr.Error(), Raw: raw}
}

// balancedObject returns the prefix of s (which starts with '{') up to the
// brace that closes it, skipping braces inside string literals.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("reply is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return obj, nil
}
