package types

import "strings"

// InputVariant names the populated branch of an IngredientInput.
type InputVariant string

const (
	VariantImage InputVariant = "image"
	VariantAudio InputVariant = "audio"
	VariantText  InputVariant = "text"
)

// IngredientInput is what the user sent: exactly one of a photo, a voice
// recording, or free text merged with previously known ingredients.
type IngredientInput struct {
	Variant          InputVariant
	Data             []byte
	DeclaredFilename string
	Text             string
	PriorIngredients []string
}

// ImageInput builds the photo variant.
func ImageInput(data []byte, filename string) IngredientInput {
	return IngredientInput{Variant: VariantImage, Data: data, DeclaredFilename: filename}
}

// AudioInput builds the voice-recording variant.
func AudioInput(data []byte) IngredientInput {
	return IngredientInput{Variant: VariantAudio, Data: data}
}

// TextInput builds the free-text variant.
func TextInput(raw string, prior []string) IngredientInput {
	return IngredientInput{Variant: VariantText, Text: raw, PriorIngredients: prior}
}

// DetectedFileType is the result of signature sniffing.
type DetectedFileType struct {
	MIME      string `json:"mime"`
	Extension string `json:"extension"`
}

// PartKind distinguishes the parts of a ModelPrompt.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// PromptPart is one piece of the message sent to the model.
type PromptPart struct {
	Kind       PartKind
	Value      string
	MIMEType   string
	Base64Data string
}

// ModelPrompt is an ordered list of parts; text precedes images.
type ModelPrompt struct {
	Parts []PromptPart
}

// Text returns the concatenated text parts.
func (p ModelPrompt) Text() string {
	var b strings.Builder
	for _, part := range p.Parts {
		if part.Kind == PartText {
			b.WriteString(part.Value)
		}
	}
	return b.String()
}
