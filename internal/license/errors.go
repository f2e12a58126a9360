package license

// Error is a coded service error surfaced to API callers
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeDuplicateEmail = "DUPLICATE_EMAIL"
	CodeStore          = "STORE_ERROR"
)

// Common service errors
var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "client not found"}
	ErrDuplicateEmail = &Error{Code: CodeDuplicateEmail, Message: "this email is already registered"}
	ErrStore          = &Error{Code: CodeStore, Message: "internal storage error"}
)

func validationError(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}
