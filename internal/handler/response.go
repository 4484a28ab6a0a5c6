package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError names the offending field by its json name.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validationMessages = map[string]string{
	"required":          "field is required",
	"email":             "invalid email format",
	"min":               "value is too short",
	"max":               "value is too long",
	"oneof":             "value is not allowed",
	"datetime":          "invalid date, expected YYYY-MM-DD",
	"notfuture":         "date cannot be in the future",
	"name":              "must have at least 2 characters besides spaces",
	"phone":             "invalid phone number",
	"hhmm":              "invalid time, expected HH:MM",
	"appointment_type":  "unknown appointment type",
	"consultation_mode": "unknown consultation mode",
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccessResponse(data))
}

// HandleError writes the error envelope. AppErrors keep their status and
// message; anything else is a 500 with a generic message. The cause is
// attached to the context for the request logger.
func HandleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.HTTPStatus()
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// BindError answers a failed ShouldBind* with 400 and per-field details.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
		return
	}

	details := make([]ValidationError, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := validationMessages[e.Tag()]
		if !ok {
			msg = e.Error()
		}
		details = append(details, ValidationError{Field: e.Field(), Message: msg})
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, &Response{
		Status:  "error",
		Message: "validation failed",
		Data:    details,
	})
}
