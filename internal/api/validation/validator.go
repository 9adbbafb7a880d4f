package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/osa911/enquiryd/internal/api/dto/v1/enquiry"

	"github.com/go-playground/validator/v10"
)

// MaxSourceLength bounds the optional source tag
const MaxSourceLength = 50

// maxEmailLength is the longest address permitted by RFC 5321
const maxEmailLength = 254

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// RegisterValidators registers custom validators
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("email", validateEmail)
}

// validateEmail checks if the email is valid
func validateEmail(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	return emailRegex.MatchString(email)
}

// Rules holds the configurable bounds for an enquiry.
// MessageMax of zero leaves the message unbounded.
type Rules struct {
	NameMax     int
	MessageMax  int
	StrictEmail bool
}

// Validator checks enquiry submissions against Rules
type Validator struct {
	validate *validator.Validate
	rules    Rules
}

// NewValidator creates a validator with the custom rules registered
func NewValidator(rules Rules) *Validator {
	validate := validator.New()
	RegisterValidators(validate)
	return &Validator{
		validate: validate,
		rules:    rules,
	}
}

// Rules returns the bounds this validator enforces
func (v *Validator) Rules() Rules {
	return v.rules
}

type fieldCheck struct {
	label string
	value string
	tag   string
	// message picks the human readable text for the failing tag
	message func(tag string) string
}

// Enquiry validates a normalized request and returns one message per failing field.
// An empty result means the request is valid.
func (v *Validator) Enquiry(req *enquiry.EnquiryRequest) []string {
	emailTag := "required"
	if v.rules.StrictEmail {
		emailTag = fmt.Sprintf("required,max=%d,email", maxEmailLength)
	}

	messageTag := "required"
	if v.rules.MessageMax > 0 {
		messageTag = fmt.Sprintf("required,max=%d", v.rules.MessageMax)
	}

	checks := []fieldCheck{
		{
			label:   "Name",
			value:   req.Name,
			tag:     fmt.Sprintf("required,max=%d", v.rules.NameMax),
			message: lengthMessage("Name", v.rules.NameMax),
		},
		{
			label: "Email",
			value: req.Email,
			tag:   emailTag,
			message: func(string) string {
				return "Valid email is required"
			},
		},
		{
			label:   "Message",
			value:   req.Message,
			tag:     messageTag,
			message: lengthMessage("Message", v.rules.MessageMax),
		},
		{
			label:   "Source",
			value:   req.Source,
			tag:     fmt.Sprintf("omitempty,max=%d", MaxSourceLength),
			message: lengthMessage("Source", MaxSourceLength),
		},
	}

	var messages []string
	for _, check := range checks {
		err := v.validate.Var(check.value, check.tag)
		if err == nil {
			continue
		}

		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			messages = append(messages, check.message(fieldErrs[0].Tag()))
			continue
		}
		messages = append(messages, fmt.Sprintf("%s is invalid", check.label))
	}
	return messages
}

func lengthMessage(label string, max int) func(tag string) string {
	return func(tag string) string {
		if tag == "max" {
			return fmt.Sprintf("%s must be at most %d characters", label, max)
		}
		return fmt.Sprintf("%s is required", label)
	}
}
