package app

import (
	"errors"
	"fmt"

	"chat_relay_service/internal/chat/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}

// validateStruct run struct tags, the first failing field names the error
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return validationErr(fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return validationErr(err.Error())
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, op, err)
}
