package service

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// MaxUploadBytes is the default upload ceiling.
const MaxUploadBytes = 10 << 20

const unknownMIME = "application/octet-stream"

// audio recorders in browsers emit these container types
var audioContainers = map[string]bool{
	"video/webm":      true,
	"video/ogg":       true,
	"video/mp4":       true,
	"application/ogg": true,
}

// DetectFileType sniffs the binary signature of data. Declared content types
// and filenames are never consulted.
func DetectFileType(data []byte) (types.DetectedFileType, error) {
	if len(data) == 0 {
		return types.DetectedFileType{}, apperr.New(apperr.KindUnrecognizedFileType, "")
	}
	mt := mimetype.Detect(data)
	base, _, _ := strings.Cut(mt.String(), ";")
	base = strings.TrimSpace(base)
	if base == "" || base == unknownMIME {
		return types.DetectedFileType{}, apperr.New(apperr.KindUnrecognizedFileType, "")
	}
	return types.DetectedFileType{
		MIME:      base,
		Extension: strings.TrimPrefix(mt.Extension(), "."),
	}, nil
}

// NormalizeUpload checks an uploaded file against the ceiling and the family
// expected for variant.
func NormalizeUpload(variant types.InputVariant, data []byte, maxBytes int64) (types.DetectedFileType, error) {
	if len(data) == 0 {
		msg := "Nenhuma imagem enviada."
		if variant == types.VariantAudio {
			msg = "Nenhum áudio enviado."
		}
		return types.DetectedFileType{}, apperr.New(apperr.KindInputValidation, msg)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return types.DetectedFileType{}, apperr.New(apperr.KindPayloadTooLarge, "").WithDetail("size=%d", len(data))
	}

	ft, err := DetectFileType(data)
	if err != nil {
		return ft, err
	}

	switch variant {
	case types.VariantImage:
		if !strings.HasPrefix(ft.MIME, "image/") {
			return ft, apperr.New(apperr.KindInputValidation, "O arquivo enviado não é uma imagem.").WithDetail("mime=%s", ft.MIME)
		}
	case types.VariantAudio:
		if !strings.HasPrefix(ft.MIME, "audio/") && !audioContainers[ft.MIME] {
			return ft, apperr.New(apperr.KindInputValidation, "O arquivo enviado não é um áudio.").WithDetail("mime=%s", ft.MIME)
		}
	}
	return ft, nil
}

// DecodeBase64Image decodes a base64 payload, accepting an optional
// data-URI prefix.
func DecodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInputValidation, "Imagem em base64 inválida.")
	}
	return data, nil
}

// DataURI renders data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var phraseSeparators = regexp.MustCompile(`(?i)\s*(?:[,;\n\r]|\s+e\s+|\s+and\s+)\s*`)

// SplitIngredientPhrase turns "x, y e z" into its items.
func SplitIngredientPhrase(raw string) []string {
	var items []string
	for _, part := range phraseSeparators.Split(raw, -1) {
		part = strings.Trim(strings.TrimSpace(part), ".!?")
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// spokenFillers are lead-ins people say before listing ingredients. Longer
// phrases come first so "eu tenho" wins over "tenho".
var spokenFillers = []string{
	"aqui na geladeira tem", "aqui em casa tem", "eu tenho aqui", "aqui temos", "aqui tem",
	"eu tenho", "nos temos", "tenho", "temos", "tem",
}

// TranscriptIngredients splits a spoken phrase into ingredients, dropping
// filler words that lead an item ("Tenho ovos" becomes "ovos").
func TranscriptIngredients(text string) []string {
	var items []string
	for _, item := range SplitIngredientPhrase(text) {
		if item = stripFiller(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func stripFiller(item string) string {
	words := strings.Fields(item)
	folded := strings.Fields(foldKey(item))
	if len(words) != len(folded) {
		return item
	}
	for _, filler := range spokenFillers {
		fw := strings.Fields(filler)
		if len(fw) > len(folded) {
			continue
		}
		if strings.Join(folded[:len(fw)], " ") == filler {
			return strings.Join(words[len(fw):], " ")
		}
	}
	return item
}

// MergeIngredients appends the items of next to prior, skipping any that
// fold to an already seen key. The first spelling wins.
func MergeIngredients(prior, next []string) []string {
	seen := make(map[string]struct{}, len(prior)+len(next))
	merged := make([]string, 0, len(prior)+len(next))
	for _, list := range [][]string{prior, next} {
		for _, item := range list {
			item = strings.TrimSpace(item)
			key := foldKey(item)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}

// NormalizeText merges a free-text phrase into the known ingredient list.
func NormalizeText(raw string, prior []string) ([]string, error) {
	merged := MergeIngredients(prior, SplitIngredientPhrase(raw))
	if len(merged) == 0 {
		return nil, apperr.New(apperr.KindInputValidation, "Informe ao menos um ingrediente.")
	}
	return merged, nil
}

// foldKey lowercases s, strips diacritics and collapses whitespace.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
