package protocol

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldError is one rejected field of an inbound frame, named by its wire key.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

func (f FieldError) String() string {
	switch f.Tag {
	case "required":
		return f.Field + " is required"
	case "max":
		return f.Field + " longer than " + f.Param
	default:
		if f.Param != "" {
			return f.Field + " failed on " + f.Tag + "=" + f.Param
		}
		return f.Field + " failed on " + f.Tag
	}
}

// FieldErrors lists every rejected field of one frame.
type FieldErrors []FieldError

func (v FieldErrors) Error() string {
	if len(v) == 0 {
		return "invalid frame"
	}
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// Fields returns the wire names of the rejected fields.
func (v FieldErrors) Fields() []string {
	out := make([]string, len(v))
	for i, f := range v {
		out[i] = f.Field
	}
	return out
}

// Validate checks a decoded inbound payload against its struct tags.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		failures := make(FieldErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, FieldError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}
	return err
}

// Rejection is the frame answering a payload that failed Decode. Clients only
// ever see MsgInvalidFormat; which field failed is left to server logs.
func Rejection(err error, tempID string) Error {
	if err != nil && !errors.Is(err, ErrMalformed) {
		return NewError(MsgInternal, tempID)
	}
	return NewError(MsgInvalidFormat, tempID)
}

// RejectedFields returns the wire names carried by a Decode error, or nil
// when the frame was not valid JSON.
func RejectedFields(err error) []string {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe.Fields()
	}
	return nil
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report wire names instead of Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}
