package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
)

// InitDataMaxAge bounds how old a web app launch may be before it is refused.
const InitDataMaxAge = 24 * time.Hour

var ErrInvalidInitData = errors.New("invalid web app init data")

// VerifyInitData checks the initData string a Telegram web app was launched
// with against the bot token and returns the user it was issued to.
func VerifyInitData(initData, botToken string, now time.Time) (User, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	if values.Get("hash") == "" || values.Get("user") == "" {
		return User{}, fmt.Errorf("%w: missing hash or user", ErrInvalidInitData)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return User{}, fmt.Errorf("%w: bad auth_date", ErrInvalidInitData)
	}

	webUser, ok := bot.ValidateWebappRequest(values, botToken)
	if !ok || webUser.ID == 0 {
		return User{}, fmt.Errorf("%w: signature mismatch", ErrInvalidInitData)
	}

	if age := now.Sub(time.Unix(authDate, 0)); age > InitDataMaxAge {
		return User{}, fmt.Errorf("%w: launched %s ago", ErrInvalidInitData, age.Round(time.Second))
	}

	return User{ID: webUser.ID, Username: webUser.Username, FirstName: webUser.FirstName}, nil
}
