package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondServiceError renders an error returned by a service. Status and code
// come from an apierr.Error or a tutoring error; fallbackCode is used for
// anything else, which is reported as a 500.
func RespondServiceError(c *gin.Context, fallbackCode string, err error) {
	if ae, ok := apierr.As(err); ok {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := ae.Code
		if code == "" {
			code = fallbackCode
		}
		RespondError(c, status, code, ae)
		return
	}
	if kind := tutoring.KindOf(err); kind != "" {
		RespondError(c, tutoringStatus(kind), string(kind), errors.New(tutoring.UserMessage(err)))
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, fallbackCode, errors.New("internal error"))
}

func tutoringStatus(kind tutoring.ErrorKind) int {
	switch kind {
	case tutoring.KindAuthentication:
		return http.StatusUnauthorized
	case tutoring.KindMissingPlan:
		return http.StatusNotFound
	case tutoring.KindCompletion:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
