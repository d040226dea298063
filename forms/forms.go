// Package forms binds and validates submitted HTML forms.
package forms

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/utils"
)

// Errors maps a form field name to its message. An empty map means the submission is valid.
type Errors map[string]string

// Has reports whether field failed validation.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

const (
	msgRequired = "This field is required."
	msgURL      = "Invalid URL."
	msgEmail    = "Invalid email address."
	msgCSRF     = "The form has expired, please submit it again."
	msgUnread   = "The form could not be read, please submit it again."
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		})
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
	})
	return validate
}

// Bind checks the CSRF token, fills dst from the submitted form and validates it.
// A CSRF failure is reported alone, before any field is looked at. Fields tagged
// sanitize:"html" are cleaned before validation, so markup that sanitizes away
// counts as blank.
func Bind(c *gin.Context, dst any) Errors {
	if !middleware.VerifyCSRF(c) {
		return Errors{middleware.CSRFField: msgCSRF}
	}
	if err := c.ShouldBindWith(dst, binding.Form); err != nil {
		utils.Logger.Warn("form binding failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		return Errors{"form": msgUnread}
	}
	trimStrings(dst)
	sanitizeHTML(dst)
	return Validate(dst)
}

// Validate evaluates the validate tags of dst. Messages come from the field's msg tag
// for presence rules and from fixed texts for format rules.
func Validate(dst any) Errors {
	errs := Errors{}
	err := instance().Struct(dst)
	if err == nil {
		return errs
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = err.Error()
		return errs
	}
	t := reflect.Indirect(reflect.ValueOf(dst)).Type()
	for _, fe := range verrs {
		if errs.Has(fe.Field()) {
			continue
		}
		errs[fe.Field()] = message(t, fe)
	}
	return errs
}

func message(t reflect.Type, fe validator.FieldError) string {
	switch fe.Tag() {
	case "url":
		return msgURL
	case "email":
		return msgEmail
	}
	if f, ok := t.FieldByName(fe.StructField()); ok {
		if m := f.Tag.Get("msg"); m != "" {
			return m
		}
	}
	return msgRequired
}

// trimStrings strips surrounding whitespace from string fields, except those tagged trim:"false".
func trimStrings(dst any) {
	v := reflect.Indirect(reflect.ValueOf(dst))
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Tag.Get("trim") == "false" {
			continue
		}
		if f := v.Field(i); f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// sanitizeHTML runs user-supplied markup in fields tagged sanitize:"html" through the HTML policy.
func sanitizeHTML(dst any) {
	v := reflect.Indirect(reflect.ValueOf(dst))
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Tag.Get("sanitize") != "html" {
			continue
		}
		if f := v.Field(i); f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(utils.Sanitize(f.String())))
		}
	}
}
