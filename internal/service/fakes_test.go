package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"linkguard/internal/entities"
	"linkguard/internal/logger"
	"linkguard/internal/repository"
	"linkguard/internal/telegram"
)

type memLinkRepo struct {
	mu    sync.Mutex
	links map[string]*entities.ProtectedLink
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{links: make(map[string]*entities.ProtectedLink)}
}

func (r *memLinkRepo) Create(_ context.Context, link *entities.ProtectedLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.links[link.Token]; ok {
		return repository.ErrDuplicate
	}
	cp := *link
	r.links[link.Token] = &cp
	return nil
}

func (r *memLinkRepo) FindActive(_ context.Context, token string) (*entities.ProtectedLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[token]
	if !ok || !l.Active {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memLinkRepo) Deactivate(_ context.Context, token string, createdBy *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[token]
	if !ok || !l.Active || (createdBy != nil && l.CreatedBy != *createdBy) {
		return repository.ErrNotFound
	}
	l.Active = false
	return nil
}

func (r *memLinkRepo) ListByCreator(_ context.Context, userID int64) ([]*entities.ProtectedLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.ProtectedLink
	for _, l := range r.links {
		if l.CreatedBy == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memLinkRepo) get(token string) (*entities.ProtectedLink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[token]
	return l, ok
}

func (r *memLinkRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

type memChannelRepo struct {
	mu       sync.Mutex
	channels map[string]string
}

func newMemChannelRepo() *memChannelRepo {
	return &memChannelRepo{channels: make(map[string]string)}
}

func (r *memChannelRepo) Find(_ context.Context, id string) (*entities.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.channels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &entities.Channel{ChannelID: id, InviteLink: link}, nil
}

func (r *memChannelRepo) Upsert(_ context.Context, c *entities.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[c.ChannelID] = c.InviteLink
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]entities.User
	err   error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]entities.User)}
}

func (r *memUserRepo) Upsert(_ context.Context, u *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = *u
	return nil
}

func (r *memUserRepo) ListIDs(context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *memUserRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

var errChatNotFound = errors.New("Bad Request: chat not found")

// fakeTelegram answers membership, invite and copy calls from in-memory state.
type fakeTelegram struct {
	mu sync.Mutex

	members     map[string]map[int64]telegram.MemberStatus
	memberErr   map[string]error
	memberCalls []string

	invites     map[string]string
	inviteErr   error
	inviteCalls []telegram.ChatRef
	inviteNames []string
	joinRequest []bool

	copyFail map[int64]bool
	copied   []int64

	username string
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{
		members:   make(map[string]map[int64]telegram.MemberStatus),
		memberErr: make(map[string]error),
		invites:   make(map[string]string),
		copyFail:  make(map[int64]bool),
		username:  "guard_bot",
	}
}

func (f *fakeTelegram) setMember(chat string, userID int64, status telegram.MemberStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := telegram.ParseChatRef(chat).String()
	if f.members[key] == nil {
		f.members[key] = make(map[int64]telegram.MemberStatus)
	}
	f.members[key][userID] = status
}

func (f *fakeTelegram) GetChatMember(_ context.Context, chat telegram.ChatRef, userID int64) (telegram.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberCalls = append(f.memberCalls, chat.String())
	if err := f.memberErr[chat.String()]; err != nil {
		return "", err
	}
	status, ok := f.members[chat.String()][userID]
	if !ok {
		return telegram.StatusLeft, nil
	}
	return status, nil
}

func (f *fakeTelegram) CreateInviteLink(_ context.Context, chat telegram.ChatRef, joinRequest bool, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inviteCalls = append(f.inviteCalls, chat)
	f.inviteNames = append(f.inviteNames, name)
	f.joinRequest = append(f.joinRequest, joinRequest)
	if f.inviteErr != nil {
		return "", f.inviteErr
	}
	link, ok := f.invites[chat.String()]
	if !ok {
		link = "https://t.me/+invite" + chat.String()
	}
	return link, nil
}

func (f *fakeTelegram) CopyMessage(_ context.Context, to, _ int64, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copied = append(f.copied, to)
	if f.copyFail[to] {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	return nil
}

func (f *fakeTelegram) BotUsername(context.Context) (string, error) {
	return f.username, nil
}

func (f *fakeTelegram) memberCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.memberCalls)
}

func (f *fakeTelegram) inviteCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inviteCalls)
}

func (f *fakeTelegram) copiedTo() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int64(nil), f.copied...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// fixture wires the real services over in-memory stores.
type fixture struct {
	tg         *fakeTelegram
	links      *memLinkRepo
	channels   *memChannelRepo
	users      *memUserRepo
	gate       *MembershipGate
	protection *ProtectionService
}

const (
	testAdminID = int64(1000)
	testBaseURL = "https://bot.example.com"
)

func newFixture(t *testing.T, supportChannels ...string) *fixture {
	t.Helper()
	log := logger.NewNop()
	f := &fixture{
		tg:       newFakeTelegram(),
		links:    newMemLinkRepo(),
		channels: newMemChannelRepo(),
		users:    newMemUserRepo(),
	}
	f.gate = NewMembershipGate(supportChannels, f.tg, log)
	f.protection = NewProtectionService(
		f.gate,
		NewChannelService(f.channels, nil, f.tg, log),
		NewLinkService(f.links),
		NewUserService(f.users),
		f.tg,
		testBaseURL,
		testAdminID,
		log,
	)
	return f
}
