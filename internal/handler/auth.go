package handler

import (
	"net/http"

	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
	"github.com/GoPolymarket/polycreds/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	mgr *service.AuthManager
}

func NewAuthHandler(mgr *service.AuthManager) *AuthHandler {
	return &AuthHandler{mgr: mgr}
}

func (h *AuthHandler) Identity(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.Identity())
}

// Validate reports an unauthorized credential as 200 with unauthorized=true;
// only transport and configuration failures become errors.
func (h *AuthHandler) Validate(c *gin.Context) {
	res, err := h.mgr.ValidateCreds(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type deriveRequest struct {
	Reason string `json:"reason"`
}

func (h *AuthHandler) Derive(c *gin.Context) {
	var req deriveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "operator request"
	}

	cred, err := h.mgr.DeriveCreds(c.Request.Context(), req.Reason)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "derived",
		"api_key":     logger.Mask(cred.ApiKey),
		"source":      cred.Source,
		"derived_at":  cred.DerivedAt,
		"context_key": h.mgr.Identity().ContextKey,
	})
}

type reconfigureRequest struct {
	FunderAddress string `json:"funder_address"`
	SignatureType *int   `json:"signature_type"`
}

func (h *AuthHandler) Reconfigure(c *gin.Context) {
	var req reconfigureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	id, err := h.mgr.Reconfigure(req.FunderAddress, req.SignatureType)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConfiguration) {
			// a bad runtime switch is the caller's fault, not a server misconfiguration
			c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, id)
}

// SelfTest always answers 200; ok=false carries the diagnosis.
func (h *AuthHandler) SelfTest(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.SelfTest(c.Request.Context()))
}

func (h *AuthHandler) Gate(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.GateState())
}
