package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/G0V1NDS/city-list/store"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Code accepts both JSON numbers and strings. Codes are opaque strings such
// as "09" or "S1".
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("code must be a number or string: %w", err)
	}
	*c = Code(n.String())
	return nil
}

type CreateStateInput struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Code Code   `json:"code" validate:"required,max=32"`
}

type CreateDistrictInput struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Code  Code   `json:"code" validate:"required,max=32"`
	State string `json:"state" validate:"required,min=1,max=255"`
}

type CreateTownInput struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	UrbanStatus string `json:"urbanStatus" validate:"required,min=1,max=255"`
	District    string `json:"district" validate:"required,min=1,max=255"`
}

// validateInput maps validator errors to the store validation error, keyed
// the same way request errors are ("body,<field>").
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	data := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		data = append(data, map[string]string{
			"body," + fe.Field(): fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		})
	}
	return store.Validation(data)
}
