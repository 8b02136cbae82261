package handler

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/GoPolymarket/polycreds/internal/service"
	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	mgr *service.AuthManager
}

func NewAuditHandler(mgr *service.AuthManager) *AuditHandler {
	return &AuditHandler{mgr: mgr}
}

func (h *AuditHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.Error(apperrors.NewInvalidRequest("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := h.mgr.AuditEvents(c.Request.Context(), c.Query("action"), limit)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, records)
}
