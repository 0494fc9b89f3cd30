package agentcore

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validatable is implemented by argument structs that need custom business validation.
// Called after schema validation and unmarshaling.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON-like value (e.g. map[string]any from json.Unmarshal).
// Both *jsonschema.Resolved and the compiled dynamic schema implement it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema runs Layer 1 validation on already-parsed value v.
// Caller must unmarshal JSON and pass the result; parse errors are reported by the caller.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateCustom runs Validatable if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

var (
	structValidatorOnce sync.Once
	structValidator     *validator.Validate
)

// tagValidator returns the shared validator for `validate:"..."` struct tags.
// Field names in messages use the json name the model sees.
func tagValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return structValidator
}

// validateTags runs struct-tag validation on structs (or pointers to structs).
// Other kinds pass untouched.
func validateTags(args any) error {
	typ := reflect.TypeOf(args)
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Pointer {
		if reflect.ValueOf(args).IsNil() {
			return nil
		}
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}
	err := tagValidator().Struct(args)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return &ClientError{Reason: strings.Join(msgs, "; "), Err: ErrValidation}
	}
	return &ClientError{Reason: err.Error(), Err: ErrValidation}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if fe.Param() != "" {
		return field + ": failed " + fe.Tag() + "=" + fe.Param()
	}
	return field + ": failed " + fe.Tag()
}
