package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/middleware"
)

// multipartMemory is how much of a form is kept in memory before spilling
// to temp files.
const multipartMemory = 12 << 20

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// requireUser returns the caller set by the auth middleware.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.KindUnauthorized, ""))
	}
	return userID, ok
}

// isTooLarge reports whether err came from the body limit.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// parseMultipart parses the request form, mapping an oversized body to 413.
func parseMultipart(c *gin.Context) (*multipart.Form, error) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			return nil, apperr.Wrap(err, apperr.KindPayloadTooLarge, "")
		}
		return nil, apperr.Wrap(err, apperr.KindInputValidation, "Formulário inválido.")
	}
	return c.Request.MultipartForm, nil
}

// readFormFile reads the first file under field. A missing field yields nil
// data and no error; callers decide whether that is acceptable. Files larger
// than maxBytes are rejected without reading them whole.
func readFormFile(form *multipart.Form, field string, maxBytes int64) ([]byte, string, bool, error) {
	files := form.File[field]
	if len(files) == 0 {
		return nil, "", false, nil
	}
	fh := files[0]
	if fh.Size > maxBytes {
		return nil, fh.Filename, true, apperr.New(apperr.KindPayloadTooLarge, "").WithDetail("%s size=%d", field, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fh.Filename, true, apperr.Wrap(err, apperr.KindInputValidation, "Não foi possível ler o arquivo enviado.")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fh.Filename, true, apperr.Wrap(err, apperr.KindInputValidation, "Não foi possível ler o arquivo enviado.")
	}
	return data, fh.Filename, true, nil
}

// formIngredients reads currentIngredients from a form. It accepts a JSON
// array in a single field or the field repeated once per item.
func formIngredients(form *multipart.Form) []string {
	values := form.Value["currentIngredients"]
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var items []string
		if err := json.Unmarshal([]byte(values[0]), &items); err == nil {
			return items
		}
	}
	return values
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
