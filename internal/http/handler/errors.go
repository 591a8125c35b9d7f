package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"personacard.app/agent/internal/http/dto"
	"personacard.app/agent/internal/service"
)

const ingestHint = "Run POST /api/admin/users/:fid/ingest-now first"

const invalidFIDMessage = "Invalid fid parameter"

func parseFID(c *gin.Context) (int64, bool) {
	fid, err := strconv.ParseInt(c.Param("fid"), 10, 64)
	if err != nil || fid <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: invalidFIDMessage})
		return 0, false
	}
	return fid, true
}

// statusFor maps a run failure reason to an HTTP status.
func statusFor(reason service.Reason) int {
	switch reason {
	case service.ReasonQuotaExceeded:
		return http.StatusTooManyRequests
	case service.ReasonMissingPrecondition, service.ReasonMalformedResponse:
		return http.StatusBadRequest
	case service.ReasonBusy:
		return http.StatusConflict
	case service.ReasonExternalFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeRunError answers a failed run. Quota failures always get the fixed
// retry-tomorrow body.
func writeRunError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	re, ok := service.AsRunError(err)
	if !ok {
		slog.ErrorContext(ctx, "unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	status := statusFor(re.Reason)
	if status == http.StatusTooManyRequests {
		c.JSON(status, dto.RateLimitResponse)
		return
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "run failed", "error", err)
		c.JSON(status, dto.ErrorResponse{Error: "Internal server error", Reason: string(re.Reason), Phase: string(re.Phase)})
		return
	}

	resp := dto.ErrorResponse{
		Error:  re.Message(),
		Reason: string(re.Reason),
		Phase:  string(re.Phase),
		State:  string(re.State),
	}
	if errors.Is(err, service.ErrNoContext) {
		resp.Hint = ingestHint
	}
	c.JSON(status, resp)
}
