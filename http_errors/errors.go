package http_errors

import (
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Message   string `json:"message"`
	Code      int    `json:"code"`
	ErrorCode string `json:"errorCode,omitempty"` // Machine readable code, e.g. RESOURCE_NOT_FOUND
	Details   any    `json:"details,omitempty"`   // Optional field for additional error details
} // @name ErrorResponse

func (e *ErrorResponse) Error() string {
	return e.Message
}

func NewErrorResponse(code int, message string, details ...any) *ErrorResponse {
	if len(details) > 0 {
		return &ErrorResponse{
			Message: message,
			Code:    code,
			Details: details[0], // Take the first detail if provided
		}
	}

	return &ErrorResponse{
		Message: message,
		Code:    code,
	}
}

func NewErrorResponseWithCode(code int, errorCode string, message string, details ...any) *ErrorResponse {
	response := NewErrorResponse(code, message, details...)
	response.ErrorCode = errorCode
	return response
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an *ErrorResponse.
func StatusCode(err error) int {
	var response *ErrorResponse
	if errors.As(err, &response) {
		return response.Code
	}
	return 0
}

func BadRequestError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, message, details...)
}

func BadRequestErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusBadRequest, errorCode, message, details...)
}

func UnauthorizedError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, message, details...)
}

func ForbiddenError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, message, details...)
}

func NotFoundError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, message, details...)
}

func NotFoundErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusNotFound, errorCode, message, details...)
}

func ConflictError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, message, details...)
}

func ConflictErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusConflict, errorCode, message, details...)
}

func TooManyRequestsError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusTooManyRequests, message, details...)
}

func InternalServerError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, message, details...)
}

func InternalServerErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusInternalServerError, errorCode, message, details...)
}
