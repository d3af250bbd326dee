package shared

import (
	"errors"

	"github.com/rifa-next/internal/http/response"
	"github.com/rifa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RespondError writes an error envelope and logs the cause when one is
// attached.
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// serviceErrorCodes maps service sentinel errors to application codes.
// Unmapped errors fall through to an internal error without leaking the
// message.
var serviceErrorCodes = map[error]int{
	service.ErrQuantityInvalid:     response.CodeBadRequest,
	service.ErrRaffleNotFound:      response.CodeNotFound,
	service.ErrRaffleNotActive:     response.CodeBadRequest,
	service.ErrRaffleHasSales:      response.CodeConflict,
	service.ErrTicketsInsufficient: response.CodeConflict,
	service.ErrOrderNotFound:       response.CodeNotFound,
	service.ErrOrderNotCancelable:  response.CodeConflict,
	service.ErrPaymentNotFound:     response.CodeNotFound,
	service.ErrProviderDisabled:    response.CodeBadRequest,
	service.ErrProviderUnavailable: response.CodeInternal,
	service.ErrCouponNotFound:      response.CodeNotFound,
	service.ErrCouponNotStarted:    response.CodeBadRequest,
	service.ErrCouponExpired:       response.CodeBadRequest,
	service.ErrCouponExhausted:     response.CodeConflict,
	service.ErrCouponMinSubtotal:   response.CodeBadRequest,
	service.ErrStockInsufficient:   response.CodeConflict,
	service.ErrConsumeExceeds:      response.CodeBadRequest,
	service.ErrLevelNotFound:       response.CodeNotFound,
	service.ErrInvalidCredentials:  response.CodeUnauthorized,
	service.ErrInvalidEmail:        response.CodeBadRequest,
}

// RespondServiceError translates a service error into the envelope.
func RespondServiceError(c *gin.Context, err error) {
	for sentinel, code := range serviceErrorCodes {
		if errors.Is(err, sentinel) {
			RespondError(c, code, sentinel.Error(), nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, "internal error", err)
}
