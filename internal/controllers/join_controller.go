package controllers

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkguard/internal/entities"
	"linkguard/internal/logger"
	"linkguard/internal/models"
	"linkguard/internal/service"
	"linkguard/internal/telegram"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses the embedded HTML pages for gin's renderer.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

// LinkResolver looks up active protected links.
type LinkResolver interface {
	Resolve(ctx context.Context, token string) (*entities.ProtectedLink, error)
}

// LinkRevealer hands out a destination to an authenticated user who passes
// the membership gate.
type LinkRevealer interface {
	Reveal(ctx context.Context, user telegram.User, token string) (*entities.ProtectedLink, error)
}

type JoinController struct {
	links    LinkResolver
	revealer LinkRevealer
	botToken string
	log      logger.Logger
	now      func() time.Time
}

func NewJoinController(links LinkResolver, revealer LinkRevealer, botToken string, log logger.Logger) *JoinController {
	return &JoinController{
		links:    links,
		revealer: revealer,
		botToken: botToken,
		log:      log,
		now:      time.Now,
	}
}

// JoinPage handles GET /join?token= - the page opened from the bot's web app button.
// It never contains the destination; the page script exchanges the web app
// launch data for it through Reveal.
func (jc *JoinController) JoinPage(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.HTML(http.StatusNotFound, "expired.html", nil)
		return
	}

	_, err := jc.links.Resolve(c.Request.Context(), token)
	if errors.Is(err, service.ErrLinkNotFound) {
		c.HTML(http.StatusNotFound, "expired.html", nil)
		return
	}
	if err != nil {
		jc.log.Error("Failed to resolve link", logger.String("token", token), logger.Error(err))
		c.HTML(http.StatusInternalServerError, "expired.html", nil)
		return
	}

	c.HTML(http.StatusOK, "join.html", gin.H{
		"Token": token,
	})
}

// Reveal handles POST /join
func (jc *JoinController) Reveal(c *gin.Context) {
	var req models.JoinRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Open this page from the bot"})
		return
	}

	// initData is signed with the bot token by Telegram
	user, err := telegram.VerifyInitData(req.InitData, jc.botToken, jc.now())
	if err != nil {
		jc.log.Debug("Rejected web app launch", logger.Error(err))
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Open this page from the bot"})
		return
	}

	link, err := jc.revealer.Reveal(c.Request.Context(), user, req.Token)
	switch {
	case errors.Is(err, service.ErrGateNotPassed):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "Join all channels first"})
		return
	case errors.Is(err, service.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Link expired or revoked"})
		return
	case err != nil:
		jc.log.Error("Failed to reveal link",
			logger.String("token", req.Token),
			logger.Int64("user_id", user.ID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, models.JoinResponse{Destination: link.Destination})
}
