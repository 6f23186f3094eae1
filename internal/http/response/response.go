package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
)

type Meta struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

func RespondOK(c *gin.Context, payload any) {
	Respond(c, http.StatusOK, "OK", payload)
}

func RespondCreated(c *gin.Context, payload any) {
	Respond(c, http.StatusCreated, "CREATED", payload)
}

func Respond(c *gin.Context, status int, message string, payload any) {
	c.JSON(status, Envelope{
		Meta: Meta{Code: status, Success: status < http.StatusBadRequest, Message: message},
		Data: payload,
	})
}

// RespondError writes a failed envelope with a plain message.
func RespondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Meta: Meta{Code: status, Success: false, Message: message},
	})
}

// RespondAggregateError maps an aggregate error code to its HTTP status and
// surfaces the machine-stable reason as the message.
func RespondAggregateError(c *gin.Context, err error) {
	status := StatusFor(domainagg.CodeOf(err))
	message := domainagg.ReasonOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		if message != domainagg.ReasonBrokenVolumeAccounting {
			message = "INTERNAL ERROR"
		}
	}
	RespondError(c, status, message)
}

func StatusFor(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case domainagg.CodeAccessDenied:
		return http.StatusForbidden
	case domainagg.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
