package enquiry

import "strings"

// EnquiryRequest represents a contact/enquiry form submission.
// Bounds are enforced by the validation package from configuration.
type EnquiryRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Message string `json:"message" form:"message"`
	Source  string `json:"source,omitempty" form:"source"`
}

// Normalize trims surrounding whitespace from every field
func (r *EnquiryRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Message = strings.TrimSpace(r.Message)
	r.Source = strings.TrimSpace(r.Source)
}

// EnquiryResponse represents the response after submitting an enquiry
type EnquiryResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// HealthResponse is returned by the root health check
type HealthResponse struct {
	Status string `json:"status"`
	Env    string `json:"env"`
}
