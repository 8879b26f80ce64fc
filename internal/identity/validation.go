package identity

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
	Age      int    `json:"age" validate:"required,gt=0"`
}

// GoogleInput is the body of POST /auth/google.
type GoogleInput struct {
	Credential string `json:"credential"`
}

// messages is keyed by "<json field>.<tag>".
var messages = map[string]string{
	"username.notblank": "Informe um nome de usuário.",
	"password.notblank": "Informe uma senha.",
	"age.required":      "Informe a idade.",
	"age.gt":            "Idade deve ser maior que zero.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
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

// check validates s and converts the first failure to a *ValidationError.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	msg, ok := messages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fe.Error()
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
