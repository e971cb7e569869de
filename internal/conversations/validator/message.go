package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"stagebook/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type MessageValidator struct {
	validate *validator.Validate
}

func NewMessageValidator() *MessageValidator {
	return &MessageValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *MessageValidator) Validate(req *model.PostMessageRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			result := make(ValidationErrors, 0, len(validationErrs))
			for _, fe := range validationErrs {
				message := fe.Error()
				switch fe.Tag() {
				case "required":
					message = "body is required"
				case "max":
					message = fmt.Sprintf("body must be at most %s characters", fe.Param())
				}
				result = append(result, ValidationError{Field: "body", Message: message})
			}
			return result
		}
		return err
	}
	return nil
}
