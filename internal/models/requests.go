package models

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxPromptLength = 4000

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// Validate checks the request; knownModel reports catalogue membership.
func (r ChatRequest) Validate(knownModel func(string) bool) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt,
			validation.By(notBlank),
			validation.RuneLength(1, maxPromptLength),
		),
		validation.Field(&r.Model,
			validation.Required,
			validation.By(func(value interface{}) error {
				label, _ := value.(string)
				if knownModel != nil && !knownModel(label) {
					return validation.NewError("validation_unknown_model", "unknown model")
				}
				return nil
			}),
		),
	)
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_required", "cannot be blank")
	}
	return nil
}
