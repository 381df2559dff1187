package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classattend/internal/auth"
)

type kioskHandler struct {
	issuer *auth.Issuer
}

func (h *kioskHandler) register(c *gin.Context) {
	var req struct {
		KioskID string `json:"kiosk_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	tokens, err := h.issuer.Issue(req.KioskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, tokens)
}

func (h *kioskHandler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	tokens, err := h.issuer.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, tokens)
}
