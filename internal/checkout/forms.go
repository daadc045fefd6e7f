package checkout

import (
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field (by its JSON name) to a human-readable
// message. An empty map means the form is valid.
type FieldErrors map[string]string

// ShippingForm collects the customer identity and destination for the
// shipping step. All fields are required after trimming.
type ShippingForm struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	Zip      string `json:"zip" validate:"required"`
}

func (f *ShippingForm) normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.Zip = strings.TrimSpace(f.Zip)
}

// PaymentForm selects the payment method. Card fields are required only for
// credit_card and are checked for presence, not format. Format validation is
// the payment collaborator's job.
type PaymentForm struct {
	Method     string `json:"method" validate:"required,oneof=cash_on_delivery credit_card bank_transfer"`
	CardNumber string `json:"cardNumber" validate:"required_if=Method credit_card"`
	NameOnCard string `json:"nameOnCard" validate:"required_if=Method credit_card"`
	Expiry     string `json:"expiry" validate:"required_if=Method credit_card"`
	CVV        string `json:"cvv" validate:"required_if=Method credit_card"`
	Notes      string `json:"notes"`
}

func (f *PaymentForm) normalize() {
	f.Method = strings.TrimSpace(f.Method)
	f.CardNumber = strings.TrimSpace(f.CardNumber)
	f.NameOnCard = strings.TrimSpace(f.NameOnCard)
	f.Expiry = strings.TrimSpace(f.Expiry)
	f.CVV = strings.TrimSpace(f.CVV)
	f.Notes = strings.TrimSpace(f.Notes)
}

// NewValidator builds the form validator. Struct fields are reported under
// their JSON names so field errors line up with request payloads.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateForm(v *validator.Validate, form any) FieldErrors {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"_": err.Error()}
	}
	out := make(FieldErrors, len(violations))
	for _, fe := range violations {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}
