package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/luoxu/craft-telegram-bridge/internal/tgtext"
	"github.com/luoxu/craft-telegram-bridge/pkg/wire"
)

// unboundSenderName marks a chat-event sender with no chat-account binding
// on the return envelope.
const unboundSenderName = "UNBOUND"

func (b *Bridge) handlePresence(ctx context.Context, env *wire.Envelope, key string) error {
	text, err := b.cat.Render(key, b.linkedName(ctx, env.Sender.MinecraftName))
	if err != nil {
		return err
	}
	_, err = b.chat.SendMessage(ctx, text, SendOptions{DisablePreview: true})
	return err
}

// handleDeath renders a death message. The event carries the template key,
// the victim, and optionally a cause actor and cause detail. The cause
// actor is a locale key for fixed causes (mob names and the like) and a
// player name otherwise.
func (b *Bridge) handleDeath(ctx context.Context, env *wire.Envelope) error {
	content := env.Message.Content
	if len(content) < 2 {
		return fmt.Errorf("death event carries %d args, want at least 2", len(content))
	}
	formatKey := content[0].Content
	victim := content[1].Content

	args := []string{b.linkedName(ctx, victim) + " "}
	if len(content) > 2 {
		cause := content[2].Content
		if b.cat.Has(cause) {
			args = append(args, " "+b.cat.ResolveOr(cause)+" ")
		} else {
			args = append(args, " "+b.linkedName(ctx, cause)+" ")
		}
		if len(content) > 3 {
			args = append(args, " "+tgtext.Code(content[3].Content)+" ")
		}
	}

	text, err := b.cat.Render(formatKey, args...)
	if err != nil {
		return err
	}
	_, err = b.chat.SendMessage(ctx, text, SendOptions{DisablePreview: true})
	return err
}

func (b *Bridge) handleAdvancement(ctx context.Context, env *wire.Envelope) error {
	content := env.Message.Content
	if len(content) < 3 {
		return fmt.Errorf("advancement event carries %d args, want 3", len(content))
	}
	title, err := b.cat.Render(content[1].Content)
	if err != nil {
		return err
	}
	desc, err := b.cat.Render(content[2].Content)
	if err != nil {
		return err
	}

	line, err := b.cat.Render(content[0].Content,
		b.linkedName(ctx, env.Sender.MinecraftName)+" ",
		" \\[*"+title+"*]")
	if err != nil {
		return err
	}
	detail, err := b.cat.Render("bridge.advancement.detail", desc)
	if err != nil {
		return err
	}

	_, err = b.chat.SendMessage(ctx, line+detail, SendOptions{DisablePreview: true})
	return err
}

func (b *Bridge) handlePlayers(ctx context.Context, ps *wire.PlayersStatus) error {
	text, err := b.cat.Render("bridge.players.count", strconv.Itoa(ps.Current), strconv.Itoa(ps.Maximum))
	if err != nil {
		return err
	}
	if len(ps.Players) > 0 {
		names := make([]string, 0, len(ps.Players))
		for _, p := range ps.Players {
			names = append(names, b.linkedName(ctx, p.Name))
		}
		text += b.phrase("bridge.players.header") + strings.Join(names, ", ")
	}
	_, err = b.chat.SendMessage(ctx, text, SendOptions{DisablePreview: true})
	return err
}

func (b *Bridge) handlePerformance(ctx context.Context, perf *wire.Performance) error {
	text, err := b.cat.Render("bridge.performance.report",
		strconv.FormatFloat(perf.TPS, 'f', 3, 64),
		strconv.FormatFloat(perf.MSPT, 'f', 3, 64))
	if err != nil {
		return err
	}
	_, err = b.chat.SendMessage(ctx, text, SendOptions{DisablePreview: true})
	return err
}

// handleChat relays a game chat message to the chat platform and, when the
// message mentioned someone or replied to a platform message, emits a
// return envelope so the game side can display the resolved text.
//
// A mention whose target id is 0 suppresses the whole relay. The game side
// sends the 0 sentinel for targets it could not resolve; relaying those
// would ping nobody and leak the raw payload, so the event is dropped.
func (b *Bridge) handleChat(ctx context.Context, env *wire.Envelope) error {
	player := env.Sender.MinecraftName

	text, err := b.cat.Render("bridge.chat.header", b.linkedName(ctx, player))
	if err != nil {
		return err
	}

	var plain strings.Builder
	var replyTo int64
	mentioned := false
	var mentionSegs []wire.Segment

	for _, seg := range env.Message.Content {
		switch seg.Type {
		case wire.SegText:
			esc, raw := b.renderText(seg.Content)
			text += esc
			plain.WriteString(raw)
		case wire.SegAt:
			if seg.ID == nil {
				b.logger.Warn("mention with no target id", zap.String("content", seg.Content))
				text += tgtext.Escape(seg.Content)
				continue
			}
			if *seg.ID == 0 {
				b.logger.Info("chat relay suppressed: mention target is the 0 sentinel")
				return nil
			}
			u, err := b.chat.GetUser(ctx, *seg.ID)
			if err != nil {
				b.logger.Warn("mention target lookup failed", zap.Int64("target", *seg.ID), zap.Error(err))
				text += tgtext.Escape(seg.Content)
				continue
			}
			var shown string
			if u.Username != "" {
				shown = tgtext.Escape(u.Username)
				text += "@" + shown + " "
			} else {
				shown = tgtext.Escape(u.FirstName)
				text += " " + tgtext.UserLink("@"+shown, *seg.ID) + " "
			}
			mentionSegs = append(mentionSegs, wire.AtSegment(seg.ID, shown))
			mentioned = true
		case wire.SegReply:
			if seg.ID != nil {
				replyTo = *seg.ID
			}
		}
	}

	opts := SendOptions{DisablePreview: true, ReplyTo: replyTo}
	sent, err := b.chat.SendMessage(ctx, text, opts)
	if err != nil {
		return fmt.Errorf("relay chat event: %w", err)
	}

	if replyTo != 0 {
		content := append(mentionSegs,
			wire.ReplySegment(replyTo, b.summarizeReply(ctx, sent.Reply)),
			wire.TextSegmentWithID(sent.ID, plain.String()))
		return b.link.Emit(ctx, ChannelMessage, string(wire.EventChat),
			wire.NewEnvelope(b.returnSender(ctx, player), sent.ID, content...))
	}
	if mentioned {
		content := append(mentionSegs, wire.TextSegmentWithID(sent.ID, plain.String()))
		return b.link.Emit(ctx, ChannelMessage, string(wire.EventChat),
			wire.NewEnvelope(b.returnSender(ctx, player), sent.ID, content...))
	}
	return nil
}

// returnSender rebuilds the sender block for an envelope going back toward
// the game server. An unbound player is legal and marked explicitly.
func (b *Bridge) returnSender(ctx context.Context, player string) wire.Sender {
	sender := wire.Sender{MinecraftName: player, TelegramName: unboundSenderName}
	if id, ok := b.store.AccountByPlayer(player); ok {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			sender.TelegramID = n
		}
		if name, ok := b.AccountPlain(ctx, id); ok {
			sender.TelegramName = name
		}
	}
	return sender
}

// summarizeReply renders a one-line plain summary of a quoted message:
// its text for text messages, a localized media tag plus file reference
// otherwise.
func (b *Bridge) summarizeReply(ctx context.Context, r *ReplyInfo) string {
	if r == nil {
		return ""
	}
	if r.Kind == KindText || r.Kind == "" {
		return r.Text
	}

	out := b.phrase("bridge.media." + r.Kind)
	switch r.Kind {
	case KindPhoto:
		if r.FileID != "" {
			if path, err := b.chat.FilePath(ctx, r.FileID); err == nil && path != "" {
				out += " (" + path + ")"
			} else if err != nil {
				b.logger.Warn("photo path lookup failed", zap.Error(err))
			}
		}
	case KindVideo, KindAudio, KindDocument:
		if r.FileName != "" {
			out += " (" + r.FileName + ")"
		}
	case KindSticker:
		if r.Emoji != "" {
			out += " " + r.Emoji
		}
	}
	if r.Caption != "" {
		out += " " + r.Caption
	}
	return out
}
