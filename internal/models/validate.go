package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

const DateLayout = "2006-01-02"

var (
	validate *validator.Validate
	hhmm     = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmm.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("allergen", func(fl validator.FieldLevel) bool {
		return IsAllergen(fl.Field().String())
	})
	_ = validate.RegisterValidation("tag", func(fl validator.FieldLevel) bool {
		return IsTag(fl.Field().String())
	})

	validate.RegisterStructValidation(itemStructLevel, Item{})
}

// Validate runs struct-tag validation on v and wraps failures in [shared.ErrInvalidInput].
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return &ValidationError{Fields: msgs}
}

// ValidationError lists the fields that failed struct validation. It unwraps to [shared.ErrInvalidInput].
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", shared.ErrInvalidInput, strings.Join(e.Fields, "; "))
}

func (e *ValidationError) Unwrap() error { return shared.ErrInvalidInput }

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "isodate":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", field)
	case "hhmm":
		return fmt.Sprintf("%s must be an HH:MM time", field)
	case "allergen":
		return fmt.Sprintf("%s: %q is not a declarable allergen", field, fe.Value())
	case "tag":
		return fmt.Sprintf("%s: %q must be lowercase text of at most %d characters", field, fe.Value(), maxTagLen)
	case "exactlyone":
		return fmt.Sprintf("%s must reference exactly one ingredient or sub-recipe", field)
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

const maxTagLen = 40

// IsTag reports whether s is a usable indicator: non-empty lowercase text without control characters.
func IsTag(s string) bool {
	if s == "" || !utf8.ValidString(s) || utf8.RuneCountInString(s) > maxTagLen {
		return false
	}
	if strings.TrimSpace(s) != s || strings.ToLower(s) != s {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", shared.ErrInvalidInput, s)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
