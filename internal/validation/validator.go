// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// EVE ID ranges used by the custom validators.
const (
	minRegionID        = 10_000_000
	minConstellationID = 20_000_000
	minSolarSystemID   = 30_000_000
	maxSolarSystemID   = 39_999_999
)

// Violation is one broken rule, reported against the field's JSON path.
type Violation struct {
	Field   string
	Tag     string
	Param   string
	Value   any
	Message string
}

// RequestValidationError collects every violation found in one value.
type RequestValidationError struct {
	Violations []Violation
}

// Error joins the violation messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.Violations) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Violations))
	for i, v := range ve.Violations {
		messages[i] = v.Message
	}
	return strings.Join(messages, "; ")
}

// Add records a violation found outside struct tags.
func (ve *RequestValidationError) Add(field, tag, message string, value any) {
	ve.Violations = append(ve.Violations, Violation{Field: field, Tag: tag, Value: value, Message: message})
}

// HasTag reports whether any violation broke the given rule.
func (ve *RequestValidationError) HasTag(tag string) bool {
	for _, v := range ve.Violations {
		if v.Tag == tag {
			return true
		}
	}
	return false
}

// GetValidator returns the shared validator, registering the eve_system tag
// on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names so messages match the stored document
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// eve_system: a solar system ID
		_ = validate.RegisterValidation("eve_system", func(fl validator.FieldLevel) bool {
			return IsSolarSystemID(fl.Field().Int())
		})
	})

	return validate
}

// ValidateStruct runs the tag rules on s. It returns nil when s is valid.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Violations: []Violation{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	ve := &RequestValidationError{Violations: make([]Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Violations = append(ve.Violations, Violation{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: message(fe),
		})
	}
	return ve
}

// IsRegionID reports whether id falls in the region range.
func IsRegionID(id int64) bool {
	return id >= minRegionID && id < minConstellationID
}

// IsConstellationID reports whether id falls in the constellation range.
func IsConstellationID(id int64) bool {
	return id >= minConstellationID && id < minSolarSystemID
}

// IsSolarSystemID reports whether id falls in the solar system range.
func IsSolarSystemID(id int64) bool {
	return id >= minSolarSystemID && id <= maxSolarSystemID
}

// messages holds one template per tag used on the models. Templates with a
// second verb receive the tag parameter.
var messages = map[string]string{
	"required":   "%s is required",
	"eve_system": "%s must be a solar system ID",
	"oneof":      "%s must be one of: %s",
	"gte":        "%s must be at least %s",
	"lte":        "%s must be at most %s",
	"max":        "%s must be at most %s characters",
}

func message(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(tmpl, fe.Field())
}
