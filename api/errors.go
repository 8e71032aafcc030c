package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/qa"
)

var (
	// ErrEngineRequired is returned when a question answering engine is not provided.
	ErrEngineRequired = errors.New("qa engine required")

	// ErrPolicyVersionMismatch indicates a request for a policy version the
	// store does not hold.
	ErrPolicyVersionMismatch = errors.New("policy version not found")
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps an engine error to an HTTP status and error code.
// Retrieval failures that still produced a result are 200 unless the cause
// was a timeout. Dimension mismatches are server misconfiguration.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrPolicyVersionMismatch):
		return http.StatusNotFound, "POLICY_VERSION_NOT_FOUND"
	case errors.Is(err, core.ErrRetrieverTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "RETRIEVER_TIMEOUT"
	case errors.Is(err, qa.ErrNoRelevantClauses):
		return http.StatusOK, ""
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrInvalidParameter):
		return http.StatusBadRequest, "INVALID_REQUEST"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func abortWithError(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}
