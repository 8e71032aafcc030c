package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/qa"
)

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Question      string `json:"question" binding:"required"`
	PolicyVersion string `json:"policy_version"`
}

// BatchQueryRequest is the body of POST /api/v1/batch_query.
type BatchQueryRequest struct {
	Questions     []string `json:"questions" binding:"required,min=1"`
	PolicyVersion string   `json:"policy_version"`
}

// BatchQueryResponse is the body returned by POST /api/v1/batch_query.
type BatchQueryResponse struct {
	Results []*qa.Result `json:"results"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	EngineStatus  string `json:"engine_status"`
	PolicyVersion string `json:"policy_version,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Version: Version, EngineStatus: "ready"}
	if s.versions != nil {
		if v, err := s.versions.GetPolicyVersion(c.Request.Context()); err == nil {
			resp.PolicyVersion = v.VersionID
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if !s.checkVersion(c, req.PolicyVersion) {
		return
	}

	result, err := s.engine.Ask(c.Request.Context(), req.Question)
	if err != nil {
		status, code := statusFor(err)
		if status == http.StatusOK && result != nil {
			s.logger.Warn("answered without relevant clauses", "err", err)
			c.JSON(http.StatusOK, result)
			return
		}
		if status == http.StatusOK {
			status, code = http.StatusInternalServerError, "INTERNAL"
		}
		s.logger.Error("error processing query", "status", status, "err", err)
		abortWithError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) batchQuery(c *gin.Context) {
	var req BatchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if len(req.Questions) > s.maxBatch {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Errorf("%w: at most %d questions per batch, got %d", core.ErrInvalidParameter, s.maxBatch, len(req.Questions)))
		return
	}
	if !s.checkVersion(c, req.PolicyVersion) {
		return
	}

	results, err := s.engine.AskBatch(c.Request.Context(), req.Questions)
	if err != nil {
		status, code := statusFor(err)
		if status == http.StatusOK {
			status, code = http.StatusInternalServerError, "INTERNAL"
		}
		s.logger.Error("error processing batch query", "status", status, "err", err)
		abortWithError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, BatchQueryResponse{Results: results})
}

// checkVersion aborts with 404 when a requested policy version is not the
// one held by the store. It reports whether the request may proceed.
func (s *Server) checkVersion(c *gin.Context, requested string) bool {
	requested = strings.TrimSpace(requested)
	if requested == "" || s.versions == nil {
		return true
	}

	held, err := s.versions.GetPolicyVersion(c.Request.Context())
	switch {
	case errors.Is(err, core.ErrNotFound):
		err = fmt.Errorf("%w: %s", ErrPolicyVersionMismatch, requested)
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, "INTERNAL", err)
		return false
	case held.VersionID != requested:
		err = fmt.Errorf("%w: %s (store holds %s)", ErrPolicyVersionMismatch, requested, held.VersionID)
	default:
		return true
	}

	status, code := statusFor(err)
	abortWithError(c, status, code, err)
	return false
}
