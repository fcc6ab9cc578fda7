package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

type aliased interface {
	applyAliases()
}

// decodeBody reads a JSON body into dst, folds alias fields into their
// canonical ones and checks its validate tags. The returned error is a
// client-facing message.
func decodeBody(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return errors.New("invalid json body")
	}
	if a, ok := dst.(aliased); ok {
		a.applyAliases()
	}
	if err := validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "notblank", "required":
			fields = append(fields, fe.Field()+" is required")
		case "max":
			fields = append(fields, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			fields = append(fields, fe.Field()+" is invalid")
		}
	}
	return errors.New(strings.Join(fields, ", "))
}
