package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dogdays/pkg/logger"
	"dogdays/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("valid_time_of_day", validateTimeOfDay); err != nil {
		log.Fatal("Failed to register 'valid_time_of_day' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

// ValidateRequest checks the request in isolation: struct tags plus the
// cross-field rules that need no venue context.
func (v *BookingValidator) ValidateRequest(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if !req.EndTime.After(req.StartTime) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}

	if req.StartTime.Before(time.Now()) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: "start_time cannot be in the past",
			},
		}
	}

	return nil
}

// ValidateAgainstVenue checks the venue-dependent rules: the venue offers
// the service, the interval falls inside one day's operating hours, and
// both endpoints align with the venue's slot granularity.
func (v *BookingValidator) ValidateAgainstVenue(req *model.BookingRequest, venue *model.Venue) error {
	if !venue.Offers(req.ServiceType) {
		return ValidationErrors{
			ValidationError{
				Field:   "ServiceType",
				Message: fmt.Sprintf("venue does not offer service %q", req.ServiceType),
			},
		}
	}

	loc := venue.Location()
	start := req.StartTime.In(loc)
	end := req.EndTime.In(loc)

	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "booking must start and end on the same day",
			},
		}
	}

	hours, open := venue.HoursFor(start)
	if !open {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: "venue is closed on the requested day",
			},
		}
	}

	dayOpen, err := atTimeOfDay(start, hours.Start, loc)
	if err != nil {
		return fmt.Errorf("invalid venue opening time: %w", err)
	}
	dayClose, err := atTimeOfDay(start, hours.End, loc)
	if err != nil {
		return fmt.Errorf("invalid venue closing time: %w", err)
	}

	if start.Before(dayOpen) || end.After(dayClose) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: fmt.Sprintf("booking must fall within operating hours %s-%s", hours.Start, hours.End),
			},
		}
	}

	granularity := venue.SlotDuration()
	if start.Sub(dayOpen)%granularity != 0 || end.Sub(dayOpen)%granularity != 0 {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: fmt.Sprintf("booking must align with the venue's %s slot granularity", granularity),
			},
		}
	}

	return nil
}

func atTimeOfDay(day time.Time, timeOfDay string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
