package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidRequestError = "invalid_request"
	HttpUnknownActionError  = "unknown_action"
	HttpNotFoundError       = "not_found"
	HttpUnauthorizedError   = "unauthorized"
	HttpForbiddenError      = "forbidden"
)

// ErrorResponse is the error response body returned by every admin route.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
