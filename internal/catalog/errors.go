package catalog

// UserError pairs the message shown to a user with the underlying cause
type UserError struct {
	Message string
	Err     error
}

// NewUserError wraps err with a user-facing message
func NewUserError(message string, err error) *UserError {
	return &UserError{Message: message, Err: err}
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}
