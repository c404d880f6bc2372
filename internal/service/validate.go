package service

import (
	"encoding/json"
	"fmt"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

var noIngredientsMessages = map[types.InputVariant]string{
	types.VariantImage: "Não foi possível identificar ingredientes na imagem. Envie uma foto mais nítida, com os ingredientes bem visíveis.",
	types.VariantAudio: "Não foi possível identificar ingredientes no áudio. Tente gravar novamente, falando os ingredientes com clareza.",
	types.VariantText:  "Não foi possível sugerir receitas com os ingredientes informados. Tente adicionar mais ingredientes.",
}

// ValidateRecipes checks the loosely typed reply against the recipe contract
// and builds the typed collection. A reply without recipes, or whose first
// recipe lists no available ingredients, is NoIngredientsDetected for every
// variant; any field of the wrong type is SchemaMismatch.
func ValidateRecipes(tree map[string]any, variant types.InputVariant) (*types.RecipeCollection, error) {
	rawRecipes, present := tree["recipes"]
	var items []any
	if present && rawRecipes != nil {
		var ok bool
		if items, ok = rawRecipes.([]any); !ok {
			return nil, schemaMismatch("recipes", "array", rawRecipes)
		}
	}
	if len(items) == 0 {
		return nil, noIngredients(variant, "empty recipes")
	}

	notes, err := optionalString(tree, "generalNotes", "generalNotes")
	if err != nil {
		return nil, err
	}

	collection := &types.RecipeCollection{
		Recipes:      make([]types.Recipe, 0, len(items)),
		GeneralNotes: notes,
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, schemaMismatch(fmt.Sprintf("recipes[%d]", i), "object", item)
		}
		recipe, err := validateRecipe(obj, fmt.Sprintf("recipes[%d]", i))
		if err != nil {
			return nil, err
		}
		collection.Recipes = append(collection.Recipes, recipe)
	}

	if len(collection.Recipes[0].AvailableIngredients) == 0 {
		return nil, noIngredients(variant, "first recipe has no available ingredients")
	}
	return collection, nil
}

func validateRecipe(obj map[string]any, path string) (types.Recipe, error) {
	var (
		r   types.Recipe
		err error
	)
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return r, schemaMismatch(path+".name", "non-empty string", obj["name"])
	}
	r.Name = name

	if r.AvailableIngredients, err = stringList(obj, "availableIngredients", path); err != nil {
		return r, err
	}
	if r.AdditionalIngredients, err = stringList(obj, "additionalIngredients", path); err != nil {
		return r, err
	}
	if r.PreparationSteps, err = stringList(obj, "preparationSteps", path); err != nil {
		return r, err
	}

	switch v := obj["prepTime"].(type) {
	case nil:
	case string:
		r.PrepTime = v
	case json.Number:
		r.PrepTime = v.String() + " minutos"
	default:
		return r, schemaMismatch(path+".prepTime", "string", v)
	}

	if r.ImageURL, err = optionalString(obj, "imageUrl", path+".imageUrl"); err != nil {
		return r, err
	}
	return r, nil
}

// stringList reads an optional array of strings; absent or null is empty.
func stringList(obj map[string]any, key, path string) ([]string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return []string{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, schemaMismatch(path+"."+key, "array of strings", raw)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, schemaMismatch(fmt.Sprintf("%s.%s[%d]", path, key, i), "string", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalString(obj map[string]any, key, path string) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", schemaMismatch(path, "string", raw)
	}
	return s, nil
}

func schemaMismatch(path, want string, got any) error {
	return apperr.New(apperr.KindSchemaMismatch, "").WithDetail("%s: expected %s, got %T", path, want, got)
}

func noIngredients(variant types.InputVariant, detail string) error {
	return apperr.New(apperr.KindNoIngredientsDetected, noIngredientsMessages[variant]).WithDetail("%s", detail)
}
