package validate

import (
	"github.com/go-playground/validator/v10"

	"bridgecal/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("illustration", validateIllustration); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("provider", validateProvider); err != nil {
		panic(err)
	}
}

func validateIllustration(fl validator.FieldLevel) bool {
	_, ok := model.Illustrations[fl.Field().String()]
	return ok
}

func validateProvider(fl validator.FieldLevel) bool {
	return model.Provider(fl.Field().String()).Valid()
}

// Struct validates s against its `validate` tags.
func Struct(s interface{}) error {
	return validate.Struct(s)
}

