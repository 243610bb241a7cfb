package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/luoxu/craft-telegram-bridge/internal/identity"
	"github.com/luoxu/craft-telegram-bridge/internal/locale"
)

type sentRecord struct {
	Text string
	Opts SendOptions
}

type fakeChat struct {
	users   map[int64]User
	files   map[string]string
	sent    []sentRecord
	deleted []int64
	reply   *ReplyInfo // attached to the next Sent
	nextID  int64
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		users:  make(map[int64]User),
		files:  make(map[string]string),
		nextID: 1000,
	}
}

func (f *fakeChat) SendMessage(_ context.Context, text string, opts SendOptions) (Sent, error) {
	f.sent = append(f.sent, sentRecord{Text: text, Opts: opts})
	f.nextID++
	return Sent{ID: f.nextID, Reply: f.reply}, nil
}

func (f *fakeChat) GetUser(_ context.Context, id int64) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeChat) FilePath(_ context.Context, fileID string) (string, error) {
	path, ok := f.files[fileID]
	if !ok {
		return "", errors.New("file not found")
	}
	return path, nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, messageID int64) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

type emitRecord struct {
	Channel string
	Event   string
	Payload any
}

type fakeEmitter struct {
	emits []emitRecord
}

func (f *fakeEmitter) Emit(_ context.Context, channel, event string, payload any) error {
	f.emits = append(f.emits, emitRecord{Channel: channel, Event: event, Payload: payload})
	return nil
}

func newTestBridge(t *testing.T) (*Bridge, *fakeChat, *fakeEmitter) {
	t.Helper()
	store, err := identity.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("identity.Open: %v", err)
	}
	cat, err := locale.New("")
	if err != nil {
		t.Fatalf("locale.New: %v", err)
	}
	chat := newFakeChat()
	link := &fakeEmitter{}
	return New(store, cat, chat, link, nil), chat, link
}

func TestAccountLink(t *testing.T) {
	b, chat, _ := newTestBridge(t)
	chat.users[100] = User{ID: 100, FirstName: "Ada", LastName: "Wong", Username: "ada"}
	chat.users[200] = User{ID: 200, FirstName: "Solo"}

	if got, ok := b.AccountLink(context.Background(), "100"); !ok || got != "[Ada Wong](t.me/ada)" {
		t.Fatalf("AccountLink with handle = %q, %v", got, ok)
	}
	if got, ok := b.AccountLink(context.Background(), "200"); !ok || got != "Solo" {
		t.Fatalf("AccountLink without handle = %q, %v", got, ok)
	}
	// external lookup failure degrades, it never propagates
	if _, ok := b.AccountLink(context.Background(), "300"); ok {
		t.Fatal("AccountLink resolved an unknown account")
	}
	if _, ok := b.AccountLink(context.Background(), "not-a-number"); ok {
		t.Fatal("AccountLink resolved a malformed account id")
	}
}

func TestAccountPlain(t *testing.T) {
	b, chat, _ := newTestBridge(t)
	chat.users[100] = User{ID: 100, FirstName: "Ada", LastName: "Wong", Username: "ada"}

	got, ok := b.AccountPlain(context.Background(), "100")
	if !ok || got != "Ada Wong" {
		t.Fatalf("AccountPlain = %q, %v", got, ok)
	}
}

func TestObserveRecordsHandle(t *testing.T) {
	b, _, _ := newTestBridge(t)
	b.Observe(User{ID: 700, Username: "seven"})
	if id, ok := b.Store().AccountByHandle("seven"); !ok || id != "700" {
		t.Fatalf("handle not recorded: %q, %v", id, ok)
	}
}
