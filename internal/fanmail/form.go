package fanmail

import (
	"errors"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Form is the raw fan message as posted by the browser.
type Form struct {
	Name    string `form:"name" validate:"required,min=2"`
	Email   string `form:"email" validate:"required,email"`
	Message string `form:"message" validate:"required,min=10,max=500"`
}

// Field names as they appear in the posted form.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldMessage = "message"
)

// FieldErrors maps a form field to the i18n key of its message.
type FieldErrors map[string]string

// ValidationError reports a form that cannot be submitted.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for _, f := range []string{FieldName, FieldEmail, FieldMessage} {
		if _, ok := e.Fields[f]; ok {
			keys = append(keys, f)
		}
	}
	return "fanmail: invalid " + strings.Join(keys, ", ")
}

// AsValidation extracts field errors from err.
func AsValidation(err error) (FieldErrors, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

var (
	validate      = validator.New(validator.WithRequiredStructEnabled())
	stripPolicy   = bluemonday.StrictPolicy()
	fieldByStruct = map[string]string{"Name": FieldName, "Email": FieldEmail, "Message": FieldMessage}
)

// Clean trims every field and strips markup. Entities the policy escapes are decoded
// again so "Tom & Jerry" is stored as typed.
func (f Form) Clean() Form {
	return Form{
		Name:    plain(f.Name),
		Email:   plain(f.Email),
		Message: plain(f.Message),
	}
}

func plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// Validate checks f as-is and returns nil when it can be submitted. Lengths count
// characters, not bytes.
func Validate(f Form) FieldErrors {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	out := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		field := fieldByStruct[fe.StructField()]
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = messageKey(field, fe.Tag())
	}
	return out
}

func messageKey(field, tag string) string {
	switch field {
	case FieldName:
		return "form.name.min"
	case FieldEmail:
		return "form.email.invalid"
	default:
		if tag == "max" {
			return "form.message.max"
		}
		return "form.message.min"
	}
}
