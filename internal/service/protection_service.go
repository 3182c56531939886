package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"linkguard/internal/entities"
	"linkguard/internal/logger"
	"linkguard/internal/telegram"
)

const (
	destinationPrefix = "https://t.me/"
	maxListedLinks    = 20

	textJoinPrompt  = "🔐 <b>Protected Access</b>\n\nPlease join <b>ALL channels below</b>, then press ✅ Check."
	textJoinFirst   = "🔐 Join all support channels first."
	textJoinAlert   = "❌ Join all channels first"
	textUsage       = "Usage:\n/protect https://t.me/yourgroup"
	textExpired     = "❌ Link expired or revoked"
	textProtected   = "🔐 Protected Link"
	textVerified    = "✅ Verified"
	textVerifiedAll = "✅ Verified! You can now use the bot."
	textWelcome     = "🤖 <b>Link Protection Bot</b>\n\n" +
		"• /protect – Create protected link\n" +
		"• /revoke – Revoke a link\n" +
		"• /mylinks – List your links\n" +
		"• /help – Help"
	textHelp = "🛡️ <b>Help</b>\n\n" +
		"/start – Open a protected link\n" +
		"/protect &lt;t.me link&gt; – Protect a group link\n" +
		"/revoke &lt;token or link&gt; – Revoke one of your links\n" +
		"/mylinks – List your links"
	textRevokeUsage = "Usage:\n/revoke &lt;token or protected link&gt;"
	textRevoked     = "✅ Link revoked"
	textNotRevoked  = "❌ Link not found or not yours"
	textNoLinks     = "You have no protected links yet."
)

// ErrGateNotPassed is returned when a user has not joined every support channel.
var ErrGateNotPassed = errors.New("membership check not passed")

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,43}$`)

// BotIdentity reports the bot's own username.
type BotIdentity interface {
	BotUsername(ctx context.Context) (string, error)
}

// ProtectionService creates protected links and redeems them for users who
// pass the membership gate.
type ProtectionService struct {
	gate     *MembershipGate
	channels *ChannelService
	links    *LinkService
	users    *UserService
	bot      BotIdentity
	baseURL  string
	adminID  int64
	log      logger.Logger
}

func NewProtectionService(
	gate *MembershipGate,
	channels *ChannelService,
	links *LinkService,
	users *UserService,
	bot BotIdentity,
	baseURL string,
	adminID int64,
	log logger.Logger,
) *ProtectionService {
	return &ProtectionService{
		gate:     gate,
		channels: channels,
		links:    links,
		users:    users,
		bot:      bot,
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminID:  adminID,
		log:      log,
	}
}

// Protect handles /protect <url>.
func (s *ProtectionService) Protect(ctx context.Context, user telegram.User, args []string) (Reply, error) {
	if res := s.gate.Check(ctx, user.ID); !res.Passed() {
		return s.gated(ctx, textJoinFirst, ""), nil
	}

	if len(args) == 0 || !validDestination(args[0]) {
		return Reply{Text: textUsage}, nil
	}

	link, err := s.links.Create(ctx, args[0], user.ID)
	if err != nil {
		return Reply{}, fmt.Errorf("create protected link: %w", err)
	}

	share, err := s.ShareURL(ctx, link.Token)
	if err != nil {
		return Reply{}, err
	}

	s.log.Info("Protected link created",
		logger.String("token", link.Token),
		logger.Int64("user_id", user.ID),
	)

	return Reply{Text: "✅ Protected Link:\n<code>" + html.EscapeString(share) + "</code>"}, nil
}

// Start handles /start with an optional token argument.
func (s *ProtectionService) Start(ctx context.Context, user telegram.User, args []string) (Reply, error) {
	if err := s.users.Touch(ctx, user); err != nil {
		s.log.Warn("Failed to record user", logger.Int64("user_id", user.ID), logger.Error(err))
	}

	var token string
	if len(args) > 0 {
		token = args[0]
	}

	// a malformed payload gets no join prompt
	if token != "" && !tokenPattern.MatchString(token) {
		return Reply{Text: textExpired}, nil
	}

	if res := s.gate.Check(ctx, user.ID); !res.Passed() {
		return s.gated(ctx, textJoinPrompt, token), nil
	}

	if token == "" {
		return Reply{Text: textWelcome}, nil
	}

	return s.redeem(ctx, token, textProtected, textExpired)
}

// Recheck handles the Check button on a gated prompt.
func (s *ProtectionService) Recheck(ctx context.Context, user telegram.User, token string) (Reply, error) {
	if res := s.gate.Check(ctx, user.ID); !res.Passed() {
		return Reply{Text: textJoinAlert, Gated: true}, nil
	}

	if token == "" {
		return Reply{Text: textVerifiedAll}, nil
	}

	return s.redeem(ctx, token, textVerified, "❌ Link expired")
}

// Revoke handles /revoke <token|link>.
func (s *ProtectionService) Revoke(ctx context.Context, user telegram.User, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{Text: textRevokeUsage}, nil
	}

	token := tokenFromArg(args[0])
	if !tokenPattern.MatchString(token) {
		return Reply{Text: textNotRevoked}, nil
	}

	err := s.links.Revoke(ctx, token, user.ID, s.adminID != 0 && user.ID == s.adminID)
	if errors.Is(err, ErrLinkNotFound) {
		return Reply{Text: textNotRevoked}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("revoke link: %w", err)
	}

	s.log.Info("Protected link revoked", logger.String("token", token), logger.Int64("user_id", user.ID))
	return Reply{Text: textRevoked}, nil
}

// MyLinks handles /mylinks.
func (s *ProtectionService) MyLinks(ctx context.Context, user telegram.User) (Reply, error) {
	links, err := s.links.ListByCreator(ctx, user.ID)
	if err != nil {
		return Reply{}, fmt.Errorf("list links: %w", err)
	}
	if len(links) == 0 {
		return Reply{Text: textNoLinks}, nil
	}

	var b strings.Builder
	b.WriteString("🔗 <b>Your links</b>\n")
	for i, l := range links {
		if i == maxListedLinks {
			fmt.Fprintf(&b, "\n…and %d more", len(links)-maxListedLinks)
			break
		}
		state := "active"
		if !l.Active {
			state = "revoked"
		}
		fmt.Fprintf(&b, "\n• <code>%s</code> → %s (%s)", l.Token, html.EscapeString(l.Destination), state)
	}

	return Reply{Text: b.String()}, nil
}

// Help handles /help.
func (s *ProtectionService) Help() Reply {
	return Reply{Text: textHelp}
}

// ShareURL is the deep link that starts the bot with token.
func (s *ProtectionService) ShareURL(ctx context.Context, token string) (string, error) {
	name, err := s.bot.BotUsername(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve bot username: %w", err)
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", name, token), nil
}

// JoinPageURL is the landing page opened from the redemption button.
func (s *ProtectionService) JoinPageURL(token string) string {
	return s.baseURL + "/join?token=" + url.QueryEscape(token)
}

func (s *ProtectionService) redeem(ctx context.Context, token, okText, expiredText string) (Reply, error) {
	if !tokenPattern.MatchString(token) {
		return Reply{Text: expiredText}, nil
	}

	link, err := s.links.Resolve(ctx, token)
	if errors.Is(err, ErrLinkNotFound) {
		return Reply{Text: expiredText}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("resolve link: %w", err)
	}

	// Web apps need an absolute https URL. Without one the verified user gets
	// the destination as a plain button.
	button := telegram.Button{Text: "🔗 Join Group", WebAppURL: s.JoinPageURL(token)}
	if s.baseURL == "" {
		button = telegram.Button{Text: "🔗 Join Group", URL: link.Destination}
	}

	return Reply{Text: okText, Keyboard: telegram.Keyboard{{button}}}, nil
}

// Reveal returns the link behind token for a user the caller has already
// authenticated. The membership gate is checked on every call.
func (s *ProtectionService) Reveal(ctx context.Context, user telegram.User, token string) (*entities.ProtectedLink, error) {
	if !tokenPattern.MatchString(token) {
		return nil, ErrLinkNotFound
	}

	if res := s.gate.Check(ctx, user.ID); !res.Passed() {
		return nil, ErrGateNotPassed
	}

	return s.links.Resolve(ctx, token)
}

// gated builds the join prompt: one button per support channel and a Check
// button that carries the token so redemption can resume.
func (s *ProtectionService) gated(ctx context.Context, text, token string) Reply {
	kb := make(telegram.Keyboard, 0, len(s.gate.Channels())+1)
	for _, ch := range s.gate.Channels() {
		kb = append(kb, []telegram.Button{{Text: "📢 Join Channel", URL: s.channels.ResolveInviteLink(ctx, ch)}})
	}

	data := CallbackCheckJoin
	if token != "" && tokenPattern.MatchString(token) && len(data)+1+len(token) <= maxCallbackData {
		data += "_" + token
	}
	kb = append(kb, []telegram.Button{{Text: "✅ Check", CallbackData: data}})

	return Reply{Text: text, Keyboard: kb, Gated: true}
}

// ParseCheckCallback extracts the token from check_join callback data.
func ParseCheckCallback(data string) (token string, ok bool) {
	if data == CallbackCheckJoin {
		return "", true
	}
	token, ok = strings.CutPrefix(data, CallbackCheckJoin+"_")
	return token, ok
}

func validDestination(raw string) bool {
	if !strings.HasPrefix(raw, destinationPrefix) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Host == "t.me" && strings.Trim(u.Path, "/") != ""
}

// tokenFromArg accepts a bare token or a full share link.
func tokenFromArg(arg string) string {
	if u, err := url.Parse(arg); err == nil && u.Query().Get("start") != "" {
		return u.Query().Get("start")
	}
	return arg
}
