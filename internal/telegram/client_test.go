package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:TEST"

// newTestClient points the client at a fake Bot API that answers each method
// with the given result.
func newTestClient(t *testing.T, results map[string]any) (Client, *int32) {
	t.Helper()
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

		result, ok := results[method]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": false, "error_code": 400, "description": "Bad Request: chat not found",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(testToken, srv.URL)
	require.NoError(t, err)
	return client, &calls
}

func TestClient_GetChatMember(t *testing.T) {
	client, _ := newTestClient(t, map[string]any{
		"getChatMember": map[string]any{
			"status": "administrator",
			"user":   map[string]any{"id": 7, "is_bot": false, "first_name": "A"},
		},
	})

	status, err := client.GetChatMember(context.Background(), ParseChatRef("@grouptest"), 7)

	require.NoError(t, err)
	assert.Equal(t, StatusAdministrator, status)
}

func TestClient_CreateInviteLink(t *testing.T) {
	client, _ := newTestClient(t, map[string]any{
		"createChatInviteLink": map[string]any{
			"invite_link":          "https://t.me/+AbCdEf",
			"name":                 "Bot Access",
			"creates_join_request": true,
			"is_primary":           false,
			"is_revoked":           false,
			"creator":              map[string]any{"id": 1, "is_bot": true, "first_name": "bot"},
		},
	})

	link, err := client.CreateInviteLink(context.Background(), ParseChatRef("-100123"), true, "Bot Access")

	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+AbCdEf", link)
}

func TestClient_APIErrorSurfaces(t *testing.T) {
	client, _ := newTestClient(t, map[string]any{})

	_, err := client.GetChatMember(context.Background(), ParseChatRef("@missing"), 7)

	assert.Error(t, err)
}

func TestClient_BotUsernameIsCached(t *testing.T) {
	client, calls := newTestClient(t, map[string]any{
		"getMe": map[string]any{"id": 1, "is_bot": true, "first_name": "Guard", "username": "guard_bot"},
	})
	ctx := context.Background()

	first, err := client.BotUsername(ctx)
	require.NoError(t, err)
	second, err := client.BotUsername(ctx)
	require.NoError(t, err)

	assert.Equal(t, "guard_bot", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_SetWebhook(t *testing.T) {
	client, calls := newTestClient(t, map[string]any{"setWebhook": true})

	err := client.SetWebhook(context.Background(), "https://bot.example.com/"+testToken)

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}
