package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"linkguard/internal/logger"
	"linkguard/internal/models"
	"linkguard/internal/service"
)

// ShareLinker builds the bot deep link for a token.
type ShareLinker interface {
	ShareURL(ctx context.Context, token string) (string, error)
}

type QRCodeController struct {
	links LinkResolver
	share ShareLinker
	log   logger.Logger
}

func NewQRCodeController(links LinkResolver, share ShareLinker, log logger.Logger) *QRCodeController {
	return &QRCodeController{links: links, share: share, log: log}
}

// GenerateQRCode handles GET /qrcode/:token - QR code of the bot deep link for an active token
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	token := c.Param("token")
	ctx := c.Request.Context()

	if _, err := qc.links.Resolve(ctx, token); err != nil {
		if !errors.Is(err, service.ErrLinkNotFound) {
			qc.log.Error("Failed to resolve link", logger.String("token", token), logger.Error(err))
		}
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Link expired or revoked"})
		return
	}

	shareURL, err := qc.share.ShareURL(ctx, token)
	if err != nil {
		qc.log.Error("Failed to build share URL", logger.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate QR code"})
		return
	}

	// 256x256 pixels, medium error recovery
	pngData, err := qrcode.Encode(shareURL, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate QR code"})
		return
	}

	c.Header("Content-Disposition", "inline; filename=qrcode.png")
	c.Data(http.StatusOK, "image/png", pngData)
}
