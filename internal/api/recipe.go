package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/service"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// RecipeHandler serves recipe generation and voice transcription.
type RecipeHandler struct {
	recipes     service.IRecipeService
	transcriber service.ITranscriptionService
	maxUpload   int64
}

func NewRecipeHandler(recipes service.IRecipeService, transcriber service.ITranscriptionService, maxUpload int64) *RecipeHandler {
	if maxUpload <= 0 {
		maxUpload = service.MaxUploadBytes
	}
	return &RecipeHandler{
		recipes:     recipes,
		transcriber: transcriber,
		maxUpload:   maxUpload,
	}
}

// RegisterRoutes mounts the handlers on a group that already authenticates.
// guards run before recipe generation only.
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup, guards ...gin.HandlerFunc) {
	generate := append(append([]gin.HandlerFunc{}, guards...), h.CreateRecipes)
	router.POST("/recipes", generate...)
	router.POST("/receitas", generate...)
	router.POST("/transcribe", append(append([]gin.HandlerFunc{}, guards...), h.Transcribe)...)
}

// CreateRecipes accepts a photo, a voice recording or text and answers with
// the generated recipes.
func (h *RecipeHandler) CreateRecipes(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	input, err := h.ingredientInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	collection, err := h.recipes.Generate(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

// ingredientInput decodes the request body into one input variant.
func (h *RecipeHandler) ingredientInput(c *gin.Context) (types.IngredientInput, error) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		form, err := parseMultipart(c)
		if err != nil {
			return types.IngredientInput{}, err
		}
		if data, name, present, err := readFormFile(form, "image", h.maxUpload); present || err != nil {
			return types.ImageInput(data, name), err
		}
		if data, _, present, err := readFormFile(form, "audio", h.maxUpload); present || err != nil {
			input := types.AudioInput(data)
			input.PriorIngredients = formIngredients(form)
			return input, err
		}
		return types.TextInput(formValue(form, "text"), formIngredients(form)), nil
	}

	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			return types.IngredientInput{}, apperr.Wrap(err, apperr.KindPayloadTooLarge, "")
		}
		return types.IngredientInput{}, apperr.Wrap(err, apperr.KindInputValidation, "Corpo da requisição inválido.")
	}
	if req.Image != "" {
		data, err := service.DecodeBase64Image(req.Image)
		if err != nil {
			return types.IngredientInput{}, err
		}
		return types.ImageInput(data, ""), nil
	}
	return types.TextInput(req.Text, req.CurrentIngredients), nil
}

// Transcribe turns a voice recording into text, rejecting recordings that
// do not mention any ingredient.
func (h *RecipeHandler) Transcribe(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	if h.transcriber == nil {
		respondError(c, apperr.New(apperr.KindInputValidation, "Entrada por voz indisponível."))
		return
	}

	form, err := parseMultipart(c)
	if err != nil {
		respondError(c, err)
		return
	}
	audio, _, _, err := readFormFile(form, "audio", h.maxUpload)
	if err != nil {
		respondError(c, err)
		return
	}

	text, err := h.transcriber.TranscribeIngredients(c.Request.Context(), audio, h.maxUpload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.TranscriptionResponse{TranscribedText: text})
}
