package channel

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type initArgs struct {
	ConfigFile string `json:"configFile" validate:"required"`
}

type interactiveArgs struct {
	PolicyName string   `json:"policyName"`
	Scopes     []string `json:"scopes" validate:"omitempty,dive,required"`
	LoginHint  *string  `json:"loginHint"`
}

type silentArgs struct {
	Subject    string   `json:"subject" validate:"required"`
	Tag        string   `json:"tag"`
	PolicyName string   `json:"policyName"`
	Scopes     []string `json:"scopes" validate:"omitempty,dive,required"`
}

type signOutArgs struct {
	Subject string `json:"subject" validate:"required"`
	Tag     string `json:"tag"`
}

type subjectArgs struct {
	Subject string `json:"subject" validate:"required"`
}

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

// decodeArgs unmarshals raw into dst and validates it. A missing or null
// argument object is treated as empty.
func decodeArgs(v *validator.Validate, raw json.RawMessage, dst any) *MethodError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return invalidArguments(typeErr.Field, "expected "+typeErr.Type.String())
		}
		return &MethodError{Code: CodeInvalidArguments, Message: "arguments must be a JSON object", Details: err.Error()}
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return invalidArguments(verrs[0].Field(), "failed "+verrs[0].Tag()+" validation")
		}
		return &MethodError{Code: CodeInvalidArguments, Message: err.Error()}
	}
	return nil
}
