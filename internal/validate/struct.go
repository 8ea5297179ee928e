package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// Validator returns the shared struct validator with the "username", "password",
// and "spokenemail" tags registered.
func Validator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		register := func(tag string, fn Func) {
			if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return fn(fl.Field().String())
			}); err != nil {
				panic(fmt.Sprintf("register %s validation: %v", tag, err))
			}
		}
		register("username", Username)
		register("password", Password)
		register("spokenemail", Email)
		structValidator = v
	})
	return structValidator
}

// Struct validates a tagged struct and flattens field errors into one message.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid %s", strings.Join(parts, ", "))
}
