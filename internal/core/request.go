// AngelaMos | 2026
// request.go

package core

import (
	"encoding/json"
	"errors"
	"net/http"
)

// MaxJSONBodyBytes bounds every JSON request body.
const MaxJSONBodyBytes = 1 << 20

func PayloadTooLargeError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusRequestEntityTooLarge,
		"PAYLOAD_TOO_LARGE",
	)
}

func UnprocessableError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusUnprocessableEntity,
		"UNPROCESSABLE_ENTITY",
	)
}

// DecodeJSON reads at most MaxJSONBodyBytes into dst. The returned error is
// an AppError ready for JSONError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return PayloadTooLargeError("request body too large")
		}
		return ValidationError("invalid request body")
	}

	return nil
}
