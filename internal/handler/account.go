package handler

import (
	"net/http"

	"github.com/GoPolymarket/polycreds/internal/service"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	mgr *service.AuthManager
}

func NewAccountHandler(mgr *service.AuthManager) *AccountHandler {
	return &AccountHandler{mgr: mgr}
}

// Balance mirrors the prober: failures are fields of the 200 body, so a
// dashboard can render partial state.
func (h *AccountHandler) Balance(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.GetBalance(c.Request.Context()))
}
