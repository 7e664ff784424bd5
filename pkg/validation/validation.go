package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	passwordSpecial = regexp.MustCompile(`[!@#$%^&*]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{10,14}$`)
)

// Stacks lists the learning tracks a student or class can belong to.
var Stacks = []string{"frontend", "backend", "product_design"}

// Genders lists the accepted gender values.
var Genders = []string{"male", "female"}

// Validator bundles a validator engine with its English translator. Each call to
// New returns an independent instance.
type Validator struct {
	*validator.Validate
	trans ut.Translator
}

// New builds a validator that reports JSON field names and understands the
// platform specific tags (password, phone, stack, gender, datestr, clock).
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(v, trans)

	custom := []struct {
		tag     string
		fn      validator.Func
		message string
	}{
		{"password", validPassword, "{0} must be 8-50 characters and include an uppercase letter, a lowercase letter, a digit and one of !@#$%^&*"},
		{"phone", validPhone, "{0} must be a phone number of 10 to 14 digits"},
		{"stack", oneOf(Stacks), "{0} must be one of " + strings.Join(Stacks, ", ")},
		{"gender", oneOf(Genders), "{0} must be one of " + strings.Join(Genders, ", ")},
		{"datestr", layout("2006-01-02"), "{0} must be a date in YYYY-MM-DD format"},
		{"clock", layout("15:04"), "{0} must be a time in HH:mm format"},
	}
	for _, c := range custom {
		_ = v.RegisterValidation(c.tag, c.fn)
		registerMessage(v, trans, c.tag, c.message)
	}

	return &Validator{Validate: v, trans: trans}
}

// Message renders a single field error as a human readable sentence.
func (v *Validator) Message(fe validator.FieldError) string {
	if v == nil || v.trans == nil {
		return fe.Error()
	}
	return fe.Translate(v.trans)
}

// Details converts a validation error into a field -> message map. Errors that
// are not validator errors are reported under "detail".
func (v *Validator) Details(err error) map[string]string {
	if err == nil {
		return nil
	}
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if _, exists := fields[fe.Field()]; exists {
				continue
			}
			fields[fe.Field()] = v.Message(fe)
		}
		return fields
	}
	fields["detail"] = err.Error()
	return fields
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, message string) {
	_ = v.RegisterTranslation(tag, trans, func(t ut.Translator) error {
		return t.Add(tag, message, true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		msg, err := t.T(tag, fe.Field())
		if err != nil {
			return fe.Error()
		}
		return msg
	})
}

func validPassword(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if len(value) < 8 || len(value) > 50 {
		return false
	}
	return passwordUpper.MatchString(value) &&
		passwordLower.MatchString(value) &&
		passwordDigit.MatchString(value) &&
		passwordSpecial.MatchString(value)
}

func validPhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		for _, candidate := range allowed {
			if value == candidate {
				return true
			}
		}
		return false
	}
}

func layout(format string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		_, err := time.Parse(format, strings.TrimSpace(fl.Field().String()))
		return err == nil
	}
}
