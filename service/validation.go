package application

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"rental_service/domain"
)

const maxPhotos = 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return v
}

// maxBytes bounds a string by its encoded length. bcrypt only reads the first
// 72 bytes of a password.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// validateStruct reports the first failing field as a *domain.ValidationError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return &domain.ValidationError{Field: fe.Field(), Message: message(fe)}
	}
	return &domain.ValidationError{Message: err.Error()}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

func validateImage(field string, upload *domain.Upload) error {
	if upload == nil {
		return nil
	}
	if !imageTypes[upload.ContentType] {
		return &domain.ValidationError{Field: field, Message: "only png, jpg and jpeg images are allowed"}
	}
	return nil
}

func validateDocument(field string, upload *domain.Upload) error {
	if upload == nil {
		return nil
	}
	if upload.ContentType != "application/pdf" {
		return &domain.ValidationError{Field: field, Message: "only pdf documents are allowed"}
	}
	return nil
}

func validatePhotos(photos []domain.Upload) error {
	if len(photos) > maxPhotos {
		return &domain.ValidationError{Field: "photo", Message: fmt.Sprintf("at most %d photos are allowed", maxPhotos)}
	}
	for i := range photos {
		if err := validateImage("photo", &photos[i]); err != nil {
			return err
		}
	}
	return nil
}
