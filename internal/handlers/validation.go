package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// ValidationErrorResponse represents a validation error with field-level details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Global validator instance (reused across all handlers)
var validate = validator.New()

// ValidateRequest validates a request struct using go-playground/validator
// Returns a user-friendly error message if validation fails
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			var errors []ValidationErrorResponse
			for _, fieldError := range ve {
				errors = append(errors, ValidationErrorResponse{
					Field:   fieldError.Field(),
					Message: formatValidationError(fieldError),
				})
			}
			// Return first error for simple handling
			if len(errors) > 0 {
				return fmt.Errorf("%s: %s", errors[0].Field, errors[0].Message)
			}
		}
		return fmt.Errorf("dados inválidos: %w", err)
	}
	return nil
}

// formatValidationError converts a validator FieldError to a user-facing message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "campo obrigatório"
	case "email":
		return "deve ser um email válido"
	case "ip":
		return "deve ser um endereço IP válido"
	case "len":
		return fmt.Sprintf("deve ter exatamente %s caracteres", fe.Param())
	case "numeric":
		return "deve conter apenas dígitos"
	case "min":
		return fmt.Sprintf("deve ter no mínimo %s caracteres", fe.Param())
	case "max":
		return fmt.Sprintf("deve ter no máximo %s caracteres", fe.Param())
	case "uuid":
		return "deve ser um identificador válido"
	default:
		return fmt.Sprintf("falhou na validação: %s", fe.Tag())
	}
}

// normalizer is implemented by request bodies that clean their fields before validation
type normalizer interface {
	normalize()
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes the
// 400 response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Corpo da requisição inválido")
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := ValidateRequest(dst); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}
