package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luoxu/craft-telegram-bridge/internal/identity"
	"github.com/luoxu/craft-telegram-bridge/internal/locale"
	"github.com/luoxu/craft-telegram-bridge/internal/tgtext"
	"github.com/luoxu/craft-telegram-bridge/pkg/wire"
)

// Transport channels the game server speaks on.
const (
	ChannelMessage = "/message"
	ChannelStatus  = "/status"
)

// Entity kinds attached by the chat platform to a message.
const (
	EntityMention     = "mention"
	EntityTextMention = "text_mention"
)

// Message kinds delivered by the chat platform.
const (
	KindText     = "text"
	KindPhoto    = "photo"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindVoice    = "voice"
	KindSticker  = "sticker"
	KindDocument = "document"
)

// User is the chat-platform view of an account.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// Entity is an annotation span over a message text. Offset and Length are
// measured in UTF-16 code units, which is the platform's contract.
type Entity struct {
	Type   string
	Offset int
	Length int
	UserID int64 // pre-resolved target, text_mention only
}

// ReplyInfo summarises the message an incoming message replies to.
type ReplyInfo struct {
	MessageID int64
	Kind      string
	Text      string
	FileID    string
	FileName  string
	Emoji     string
	Caption   string
}

// Incoming is a chat-platform message normalized for the bridge. For media
// messages Text carries the caption and Entities the caption entities.
type Incoming struct {
	MessageID int64
	Sender    User
	Kind      string
	Text      string
	Entities  []Entity
	FileID    string
	FileName  string
	Emoji     string
	Reply     *ReplyInfo
}

// SendOptions tunes a chat-platform send.
type SendOptions struct {
	ReplyTo        int64
	DisablePreview bool
}

// Sent describes a delivered chat-platform message. Reply is populated when
// the send was threaded, so the return path can summarise the quoted
// message for the game side.
type Sent struct {
	ID    int64
	Reply *ReplyInfo
}

// ChatClient is the chat-platform collaborator. All calls may fail
// independently of the bridge; lookup failures degrade formatting instead
// of aborting it.
type ChatClient interface {
	SendMessage(ctx context.Context, text string, opts SendOptions) (Sent, error)
	GetUser(ctx context.Context, id int64) (User, error)
	FilePath(ctx context.Context, fileID string) (string, error)
	DeleteMessage(ctx context.Context, messageID int64) error
}

// Emitter is the game-link collaborator used to push envelopes and status
// requests toward the game server.
type Emitter interface {
	Emit(ctx context.Context, channel, event string, payload any) error
}

// HandlerRegistry registers raw transport handlers per channel and event.
type HandlerRegistry interface {
	On(channel, event string, fn func(data []byte))
}

// Bridge is the translation core between the chat platform and the game
// server. Its methods are synchronous and safe for concurrent use; network
// and disk I/O happen only through the collaborators.
type Bridge struct {
	store  *identity.Store
	cat    *locale.Catalog
	chat   ChatClient
	link   Emitter
	logger *zap.Logger
}

func New(store *identity.Store, cat *locale.Catalog, chat ChatClient, link Emitter, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{store: store, cat: cat, chat: chat, link: link, logger: logger}
}

// Store exposes the identity store for the command layer.
func (b *Bridge) Store() *identity.Store { return b.store }

// BindTransport wires every known game event to the bridge. Each event is
// handled in isolation: a failure is logged and the loop moves on, except
// for a missing locale key, which means the locale resource itself is
// broken and terminates the process.
func (b *Bridge) BindTransport(reg HandlerRegistry) {
	bind := func(channel string, kind wire.EventKind) {
		reg.On(channel, string(kind), func(data []byte) {
			ev, err := wire.DecodeEvent(string(kind), data)
			if err != nil {
				b.logger.Error("decode game event", zap.String("event", string(kind)), zap.Error(err))
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := b.HandleEvent(ctx, ev); err != nil {
				if errors.Is(err, locale.ErrMissingKey) {
					b.logger.Fatal("locale resource is incomplete", zap.Error(err))
				}
				b.logger.Error("handle game event", zap.String("event", string(kind)), zap.Error(err))
			}
		})
	}

	for _, kind := range []wire.EventKind{wire.EventJoin, wire.EventQuit, wire.EventDeath, wire.EventAdvancement, wire.EventChat} {
		bind(ChannelMessage, kind)
	}
	for _, kind := range []wire.EventKind{wire.EventPlayers, wire.EventPerformance} {
		bind(ChannelStatus, kind)
	}
}

// HandleEvent dispatches a decoded game event to its formatter.
func (b *Bridge) HandleEvent(ctx context.Context, ev *wire.Event) error {
	switch ev.Kind {
	case wire.EventJoin:
		return b.handlePresence(ctx, ev.Envelope, "bridge.event.join")
	case wire.EventQuit:
		return b.handlePresence(ctx, ev.Envelope, "bridge.event.quit")
	case wire.EventDeath:
		return b.handleDeath(ctx, ev.Envelope)
	case wire.EventAdvancement:
		return b.handleAdvancement(ctx, ev.Envelope)
	case wire.EventChat:
		return b.handleChat(ctx, ev.Envelope)
	case wire.EventPlayers:
		return b.handlePlayers(ctx, ev.Players)
	case wire.EventPerformance:
		return b.handlePerformance(ctx, ev.Performance)
	default:
		return fmt.Errorf("unhandled event kind %q", ev.Kind)
	}
}

// Observe refreshes the account's handle bookkeeping. Called whenever an
// account is seen, regardless of what happens to the message afterwards.
func (b *Bridge) Observe(u User) {
	b.store.RecordHandle(strconv.FormatInt(u.ID, 10), u.Username)
}

// AccountLink renders a hyperlinked display string for an account, or
// reports false when the platform lookup fails. The failure is logged and
// swallowed: the caller degrades to a link-less rendering.
func (b *Bridge) AccountLink(ctx context.Context, accountID string) (string, bool) {
	u, ok := b.fetchUser(ctx, accountID)
	if !ok {
		return "", false
	}
	name := displayName(u)
	if name == "" {
		return "", false
	}
	if u.Username != "" {
		return tgtext.Link(name, "t.me/"+u.Username), true
	}
	return name, true
}

// AccountPlain renders the display name with no platform markup, for text
// sent back toward the game server.
func (b *Bridge) AccountPlain(ctx context.Context, accountID string) (string, bool) {
	u, ok := b.fetchUser(ctx, accountID)
	if !ok {
		return "", false
	}
	name := displayName(u)
	return name, name != ""
}

func (b *Bridge) fetchUser(ctx context.Context, accountID string) (User, bool) {
	id, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil || id == 0 {
		return User{}, false
	}
	u, err := b.chat.GetUser(ctx, id)
	if err != nil {
		b.logger.Warn("chat user lookup failed", zap.String("account", accountID), zap.Error(err))
		return User{}, false
	}
	return u, true
}

// linkedName renders a player name as inline code, with the bound chat
// account's hyperlink appended when one resolves.
func (b *Bridge) linkedName(ctx context.Context, player string) string {
	name := tgtext.Code(player)
	if id, ok := b.store.AccountByPlayer(player); ok {
		if link, ok := b.AccountLink(ctx, id); ok {
			return name + " (" + link + ")"
		}
	}
	return name
}

// phrase resolves a fixed bridge phrase, falling back to the key itself so
// a gap in the table degrades the text rather than dropping the message.
func (b *Bridge) phrase(key string) string {
	if text, ok := b.cat.Resolve(key); ok {
		return text
	}
	b.logger.Error("bridge phrase missing from locale table", zap.String("key", key))
	return key
}

func displayName(u User) string {
	if u.LastName != "" {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return u.FirstName
}
