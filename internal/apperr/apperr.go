// Package apperr defines the error kinds surfaced by the relay and how each
// maps onto an HTTP status and a user-facing message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindInputValidation       Kind = "input_validation"
	KindUnrecognizedFileType  Kind = "unrecognized_file_type"
	KindNoIngredientsDetected Kind = "no_ingredients_detected"
	KindImplausibleTranscript Kind = "implausible_transcript"
	KindInvalidSignature      Kind = "invalid_signature"
	KindPayloadTooLarge       Kind = "payload_too_large"
	KindUnauthorized          Kind = "unauthorized"
	KindQuotaExceeded         Kind = "quota_exceeded"
	KindRateLimited           Kind = "rate_limited"

	KindUpstreamUnreachable  Kind = "upstream_unreachable"
	KindUpstreamRejected     Kind = "upstream_rejected"
	KindEmptyModelReply      Kind = "empty_model_reply"
	KindNoJSONObjectFound    Kind = "no_json_object_found"
	KindMalformedJSON        Kind = "malformed_json"
	KindSchemaMismatch       Kind = "schema_mismatch"
	KindTranscriptionTimeout Kind = "transcription_timeout"
	KindTranscriptionFailed  Kind = "transcription_failed"
	KindBillingFailed        Kind = "billing_failed"
	KindInternal             Kind = "internal"
)

// Generic messages. Diagnostics never reach the client.
const (
	MsgAIFailure = "Erro ao processar a resposta da IA. Tente uma imagem diferente."
	MsgInternal  = "Erro interno do servidor."
)

var defaultMessages = map[Kind]string{
	KindInputValidation:       "Requisição inválida.",
	KindUnrecognizedFileType:  "Não foi possível determinar o tipo do arquivo.",
	KindNoIngredientsDetected: "Nenhum ingrediente foi identificado.",
	KindImplausibleTranscript: "Não entendi os ingredientes. Tente falar novamente, listando-os com clareza.",
	KindInvalidSignature:      "Assinatura do webhook inválida.",
	KindPayloadTooLarge:       "Arquivo muito grande. O limite é de 10 MB.",
	KindUnauthorized:          "Não autorizado.",
	KindQuotaExceeded:         "Limite diário de receitas atingido.",
	KindRateLimited:           "Muitas requisições. Aguarde um instante e tente novamente.",
	KindUpstreamUnreachable:   MsgAIFailure,
	KindUpstreamRejected:      MsgAIFailure,
	KindEmptyModelReply:       MsgAIFailure,
	KindNoJSONObjectFound:     MsgAIFailure,
	KindMalformedJSON:         MsgAIFailure,
	KindSchemaMismatch:        MsgAIFailure,
	KindTranscriptionTimeout:  "A transcrição do áudio demorou demais. Tente novamente.",
	KindTranscriptionFailed:   "Não foi possível transcrever o áudio.",
	KindBillingFailed:         "Não foi possível iniciar o pagamento.",
	KindInternal:              MsgInternal,
}

// Error is a classified failure. Message is safe to show to users; Detail
// and Err are for logs only.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so sentinel comparisons work
// through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Status returns the HTTP status for the error's kind.
func (e *Error) Status() int {
	return StatusFor(e.Kind)
}

// New creates an error of kind with an optional user message; an empty
// message selects the kind's default.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = defaultMessages[kind]
	}
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err.
func Wrap(err error, kind Kind, message string) *Error {
	e := New(kind, message)
	e.Err = err
	return e
}

// WithDetail attaches diagnostic text.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// QuotaExceeded reports that the daily limit was reached.
func QuotaExceeded(limit int) *Error {
	return New(KindQuotaExceeded, fmt.Sprintf("Limite diário de %d receitas atingido. Faça upgrade do seu plano para gerar mais receitas.", limit)).
		WithDetail("limit=%d", limit)
}

// UpstreamRejected reports a non-2xx reply from an upstream service.
func UpstreamRejected(service string, status int, body string) *Error {
	return New(KindUpstreamRejected, "").WithDetail("%s status=%d body=%s", service, status, body)
}

// StatusFor maps a kind onto an HTTP status.
func StatusFor(kind Kind) int {
	switch kind {
	case KindInputValidation, KindUnrecognizedFileType, KindNoIngredientsDetected,
		KindImplausibleTranscript, KindInvalidSignature:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindQuotaExceeded, KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, classifying unknown errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, KindInternal, "")
}

// IsKind reports whether err is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
