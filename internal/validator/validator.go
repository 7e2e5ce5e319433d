package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/language-gems/analytics-service/internal/aggregation"
	apperrors "github.com/language-gems/analytics-service/internal/errors"
)

// Validator wraps go-playground/validator with the analytics custom tags.
type Validator struct {
	structValidator *validator.Validate
}

func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// Validate checks struct tags and returns apperrors.ValidationErrors on
// failure, with field names taken from the json tags.
func (v *Validator) Validate(s interface{}) error {
	err := v.structValidator.Struct(s)
	if err == nil {
		return nil
	}
	if verrs := apperrors.ToValidationErrors(err); len(verrs) > 0 {
		return verrs
	}
	return err
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("leaderboard_scope", oneOf(aggregation.ScopeMyClasses, aggregation.ScopeSchool))
	validate.RegisterValidation("time_period", oneOf(
		aggregation.PeriodDaily,
		aggregation.PeriodWeekly,
		aggregation.PeriodMonthly,
		aggregation.PeriodAllTime,
	))
	validate.RegisterValidation("leaderboard_metric", oneOf(
		aggregation.MetricPoints,
		aggregation.MetricXP,
		aggregation.MetricGems,
		aggregation.MetricScore,
		aggregation.MetricAccuracy,
	))
	validate.RegisterValidation("vocabulary_source", oneOf(
		aggregation.SourceAll,
		aggregation.SourceGems,
		aggregation.SourceAssignments,
	))
	validate.RegisterValidation("analytics_section", oneOf(aggregation.AllSections...))

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func oneOf[T ~string](allowed ...T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if string(a) == value {
				return true
			}
		}
		return false
	}
}
