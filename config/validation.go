package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requirement pairs a config field with the accessor that reads it.
type requirement struct {
	field string
	value func(*Config) string
}

var (
	credentialRequirements = []requirement{
		{"auth.jwt_secret", func(c *Config) string { return c.Auth.JWTSecret }},
		{"llm.api_key", func(c *Config) string { return c.LLM.APIKey }},
		{"transcription.api_key", func(c *Config) string { return c.Transcription.APIKey }},
	}

	billingRequirements = []requirement{
		{"billing.secret_key", func(c *Config) string { return c.Billing.SecretKey }},
		{"billing.webhook_secret", func(c *Config) string { return c.Billing.WebhookSecret }},
	}

	// Environment-specific requirements
	requirements = map[Environment][]requirement{
		Development: credentialRequirements,
		Test:        nil,
		CI:          credentialRequirements,
		Production:  append(append([]requirement{}, credentialRequirements...), billingRequirements...),
	}
)

// ValidateConfig checks if the configuration meets the requirements for the
// environment it was loaded for.
func ValidateConfig(cfg *Config) error {
	env := Environment(cfg.App.Env)

	var errs []string
	for _, req := range requirements[env] {
		if strings.TrimSpace(req.value(cfg)) == "" {
			errs = append(errs, ValidationError{Field: req.field, Message: "is required"}.Error())
		}
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, ValidationError{Field: "database.driver", Message: "must be postgres or sqlite"}.Error())
	}

	if cfg.Server.MaxUploadBytes <= 0 {
		errs = append(errs, ValidationError{Field: "server.max_upload_bytes", Message: "must be positive"}.Error())
	}
	if cfg.Transcription.PollInterval <= 0 || cfg.Transcription.MaxWait < cfg.Transcription.PollInterval {
		errs = append(errs, ValidationError{Field: "transcription.max_wait", Message: "must be at least one poll interval"}.Error())
	}
	if cfg.Illustrations.MaxImages < 0 || cfg.Illustrations.MaxImages > 3 {
		errs = append(errs, ValidationError{Field: "illustrations.max_images", Message: "must be between 0 and 3"}.Error())
	}
	if b := cfg.Billing; len(b.PricePlans()) != countNonEmpty(b.PriceBasic, b.PricePro, b.PricePremium) {
		errs = append(errs, ValidationError{Field: "billing", Message: "price identifiers must be distinct"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func countNonEmpty(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
