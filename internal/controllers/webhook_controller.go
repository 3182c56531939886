package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"linkguard/internal/logger"
	"linkguard/internal/telegram"
)

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	Handle(ctx context.Context, update telegram.Update)
}

type WebhookController struct {
	handler UpdateHandler
	token   string
	log     logger.Logger
	wg      sync.WaitGroup
}

func NewWebhookController(handler UpdateHandler, token string, log logger.Logger) *WebhookController {
	return &WebhookController{handler: handler, token: token, log: log}
}

// Receive handles POST /:token. Updates are dispatched in the background and
// acknowledged immediately so Telegram does not redeliver slow ones.
func (wc *WebhookController) Receive(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(wc.token)) != 1 {
		c.Status(http.StatusForbidden)
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		wc.log.Warn("Discarding undecodable update", logger.Error(err))
		c.Status(http.StatusOK)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	wc.wg.Add(1)
	go func() {
		defer wc.wg.Done()
		wc.handler.Handle(ctx, update)
	}()

	c.Status(http.StatusOK)
}

// Wait blocks until every dispatched update has been handled.
func (wc *WebhookController) Wait() {
	wc.wg.Wait()
}
