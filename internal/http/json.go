package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// ErrorParams groups the parts of a JSON error response.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps err onto a status code by its AppError code.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeValidation, apperrors.ErrCodeDecode:
		status = http.StatusBadRequest
	case apperrors.ErrCodeConflict, apperrors.ErrCodePrecondition:
		status = http.StatusConflict
	case apperrors.ErrCodeConnectivity, apperrors.ErrCodeTimeout:
		status = http.StatusBadGateway
	}
	errCode := string(code)
	if errCode == "" {
		errCode = "internal"
	}
	var appErr *apperrors.AppError
	if status == http.StatusInternalServerError && !errors.As(err, &appErr) {
		err = errors.New("internal error")
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: errCode, Err: err})
}
