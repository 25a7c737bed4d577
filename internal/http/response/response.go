package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/surveybridge-backend/internal/ingestion/reader"
	"github.com/yungbote/surveybridge-backend/internal/platform/apierr"
)

type APIError struct {
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"`
	Remediation string `json:"remediation,omitempty"`
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

// RespondErr maps err onto its HTTP status and writes the envelope.
func RespondErr(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", err)
	}
	env := ErrorEnvelope{Error: APIError{Message: ae.Error(), Code: ae.Code}}
	var fe *reader.FileError
	if errors.As(err, &fe) {
		env.Error.Remediation = fe.Remediation
	}
	c.JSON(ae.Status, env)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
