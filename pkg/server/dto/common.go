package dto

// Result is the generic API envelope.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Ok wraps data in a successful Result.
func Ok(data interface{}) Result {
	return Result{Success: true, Data: data}
}

// Fail wraps an error message in a failed Result.
func Fail(message string) Result {
	return Result{Success: false, Error: message}
}
