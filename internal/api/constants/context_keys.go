package constants

// Context keys shared between middleware and handlers
const (
	ContextKeyRequestID = "requestID"
	ContextKeyEnquiry   = "enquiry"
)

// Headers
const (
	HeaderRequestID = "X-Request-ID"
)
