package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pawsen/library-org/internal/isbn"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// overrides the built-in isbn tag, which rejects hyphenated input
	if err := validate.RegisterValidation("isbn", validateISBN); err != nil {
		panic(fmt.Sprintf("register isbn validation: %v", err))
	}
}

func validateISBN(fl validator.FieldLevel) bool {
	return isbn.Valid(fl.Field().String())
}

// ValidateStruct runs the validate tags of s and returns one detail per
// failing field, named by its json tag.
func ValidateStruct(s interface{}) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ErrorDetail{{Field: "", Message: err.Error()}}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "isbn":
			message = fmt.Sprintf("%s must be a valid ISBN-10 or ISBN-13", field)
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", field)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}
		details = append(details, ErrorDetail{Field: field, Message: message})
	}
	return details
}

// DecodeAndValidate reads a JSON body into dst and validates it. On failure
// it writes the error response and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		case errors.Is(err, io.EOF):
			JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Request body is required", nil)
		default:
			JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		}
		return false
	}
	if details := ValidateStruct(dst); details != nil {
		JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
		return false
	}
	return true
}
