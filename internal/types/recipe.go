package types

// Recipe is one suggestion returned by the model.
type Recipe struct {
	Name                  string   `json:"name"`
	AvailableIngredients  []string `json:"availableIngredients"`
	AdditionalIngredients []string `json:"additionalIngredients"`
	PreparationSteps      []string `json:"preparationSteps"`
	PrepTime              string   `json:"prepTime"`
	ImageURL              string   `json:"imageUrl,omitempty"`
}

// RecipeCollection is the validated body of a successful recipe request.
// InputImage echoes an uploaded photo as a data URI; ImagePrompts holds the
// illustration prompts, one per line, when illustrations were requested.
type RecipeCollection struct {
	Recipes      []Recipe `json:"recipes"`
	GeneralNotes string   `json:"generalNotes"`
	InputImage   string   `json:"inputImage,omitempty"`
	ImagePrompts string   `json:"imagePrompts,omitempty"`
}
