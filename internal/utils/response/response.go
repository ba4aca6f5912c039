package response

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Response is the stable envelope every endpoint answers with:
// {"success": true, "data": ...} or {"success": false, "error": msg}.
// Count is present only on list responses.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func GeneralError(err error) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errorMessages string
	for _, err := range errs {
		errorMessages += err.Field() + ": " + err.Tag() + "; "
	}

	return Response{
		Success: false,
		Error:   errorMessages,
	}
}

func RequestOK(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func RequestOKCount(data interface{}, count int) Response {
	return Response{
		Success: true,
		Data:    data,
		Count:   &count,
	}
}
