package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
)

const (
	hoursTag  = "hours"
	hoursText = "{0} must be a non-negative number of hours"
)

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(hoursTag, validHours)
	_ = validate.RegisterTranslation(hoursTag, translator,
		func(t ut.Translator) error { return t.Add(hoursTag, hoursText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(hoursTag, fe.Field())
			return s
		},
	)
	return validate, translator
}

// validHours accepts an empty value or a decimal string >= 0.
func validHours(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return true
	}
	d, err := decimal.NewFromString(raw)
	return err == nil && !d.IsNegative()
}

// decodeAndValidate parses a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller may proceed.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			messages := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				messages = append(messages, fe.Translate(h.translator))
			}
			writeError(w, http.StatusBadRequest, "validation_failed", strings.Join(messages, "; "))
			return false
		}
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}
