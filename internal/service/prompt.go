package service

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"strings"
	"text/template"

	"github.com/pageza/receitas-ia/backend/internal/types"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// RecipeJSONContract closes every prompt. The validator checks exactly this
// shape, so the two change together.
const RecipeJSONContract = `Responda APENAS com um único objeto JSON válido, sem texto adicional antes ou depois e sem blocos de código, seguindo exatamente esta estrutura:
{"recipes": [{"name": "...", "availableIngredients": ["..."], "additionalIngredients": ["..."], "preparationSteps": ["..."], "prepTime": "..."}], "generalNotes": "..."}
Escreva todo o conteúdo em português do Brasil.`

// PromptRequest is the data interpolated into a prompt.
type PromptRequest struct {
	Variant     types.InputVariant
	Ingredients []string
	ImageMIME   string
	ImageData   []byte
}

// PromptBuilder renders the per-variant instruction templates.
type PromptBuilder struct {
	templates *template.Template
}

// NewPromptBuilder parses the embedded templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	t, err := template.ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return &PromptBuilder{templates: t}, nil
}

// Build renders the prompt for req. Image prompts carry the photo as a
// second part after the instruction text.
func (b *PromptBuilder) Build(req PromptRequest) (types.ModelPrompt, error) {
	name := string(req.Variant) + ".tmpl"
	if b.templates.Lookup(name) == nil {
		return types.ModelPrompt{}, fmt.Errorf("no prompt template for variant %q", req.Variant)
	}
	if req.Variant != types.VariantImage && len(req.Ingredients) == 0 {
		return types.ModelPrompt{}, fmt.Errorf("no ingredients to render for variant %q", req.Variant)
	}

	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, name, req); err != nil {
		return types.ModelPrompt{}, fmt.Errorf("failed to render %s prompt: %w", req.Variant, err)
	}

	text := strings.TrimSpace(buf.String()) + "\n\n" + RecipeJSONContract
	prompt := types.ModelPrompt{Parts: []types.PromptPart{{Kind: types.PartText, Value: text}}}

	if req.Variant == types.VariantImage {
		if len(req.ImageData) == 0 || req.ImageMIME == "" {
			return types.ModelPrompt{}, fmt.Errorf("image prompt requires image data")
		}
		prompt.Parts = append(prompt.Parts, types.PromptPart{
			Kind:       types.PartImage,
			MIMEType:   req.ImageMIME,
			Base64Data: base64.StdEncoding.EncodeToString(req.ImageData),
		})
	}
	return prompt, nil
}
