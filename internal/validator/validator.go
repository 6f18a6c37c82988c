package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/id"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	id_translations "github.com/go-playground/validator/v10/translations/id"
	"github.com/stemsi/tryout-backend/internal/model"
)

// uni holds the English and Indonesian validation translators.
var uni *ut.UniversalTranslator

// Setup registers translations and answer rules on Gin's binding engine.
// Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni = ut.New(enLocale, enLocale, id.New())
	if trans, found := uni.GetTranslator("en"); found {
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerAnswerTranslation(v, trans, "{0} must hold exactly one of answerChoice or essayAnswer")
	}
	if trans, found := uni.GetTranslator("id"); found {
		_ = id_translations.RegisterDefaultTranslations(v, trans)
		registerAnswerTranslation(v, trans, "{0} harus berisi tepat satu dari answerChoice atau essayAnswer")
	}

	v.RegisterStructValidation(answerUpsertRule, model.AnswerUpsert{})
	v.RegisterStructValidation(saveAnswerRule, model.SaveAnswerRequest{})
}

const answerTag = "one_answer"

func answerUpsertRule(sl govalidator.StructLevel) {
	if u, ok := sl.Current().Interface().(model.AnswerUpsert); ok && u.Value().Validate() != nil {
		sl.ReportError(u.AnswerChoice, "answerChoice", "AnswerChoice", answerTag, "")
	}
}

func saveAnswerRule(sl govalidator.StructLevel) {
	if r, ok := sl.Current().Interface().(model.SaveAnswerRequest); ok && r.Value().Validate() != nil {
		sl.ReportError(r.AnswerChoice, "answerChoice", "AnswerChoice", answerTag, "")
	}
}

func registerAnswerTranslation(v *govalidator.Validate, trans ut.Translator, text string) {
	_ = v.RegisterTranslation(answerTag, trans,
		func(ut ut.Translator) error { return ut.Add(answerTag, text, true) },
		func(ut ut.Translator, fe govalidator.FieldError) string {
			t, _ := ut.T(answerTag, fe.Field())
			return t
		},
	)
}

// translator picks the Indonesian translator when the client prefers it.
func translator(acceptLanguage string) ut.Translator {
	if uni == nil {
		return nil
	}
	lang := strings.ToLower(strings.TrimSpace(acceptLanguage))
	if strings.HasPrefix(lang, "id") {
		if trans, found := uni.GetTranslator("id"); found {
			return trans
		}
	}
	trans, _ := uni.GetTranslator("en")
	return trans
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name -> human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error, acceptLanguage string) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		trans := translator(acceptLanguage)
		for _, fe := range ve {
			if trans == nil {
				fields[fe.Field()] = fe.Error()
				continue
			}
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err, c.GetHeader("Accept-Language"))
	}
	return nil
}

// Struct validates an already decoded value, such as a WebSocket payload.
func Struct(dst interface{}) map[string]string {
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return TranslateErrors(err, "")
	}
	return nil
}
