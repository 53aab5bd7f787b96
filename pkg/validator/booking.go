package validator

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the Y-m-d layout used for travel and birth dates
const DateLayout = "2006-01-02"

var iataRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Now is the clock used by the notpast rule
var Now = time.Now

// New returns a validator with the travel tags registered:
//
//	iata     three-letter airport or city code
//	ymd      date in 2006-01-02 layout
//	notpast  ymd date that is today or later
//	phone    international contact number
func New() *validator.Validate {
	v := validator.New()
	phones := NewPhoneValidator()

	_ = v.RegisterValidation("iata", func(fl validator.FieldLevel) bool {
		return iataRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(DateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		today := Now().UTC().Truncate(24 * time.Hour)
		return !d.Before(today)
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phones.IsValid(fl.Field().String())
	})

	return v
}

// FieldErrors flattens validator errors into field -> rule pairs
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[fe.Namespace()] = rule
	}
	return out
}
