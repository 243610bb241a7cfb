package bridge

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/luoxu/craft-telegram-bridge/pkg/wire"
)

// Compose builds the wire envelope for an incoming chat-platform message.
// The sender block tolerates an unbound account (empty Minecraft name);
// the reply segment, when present, leads the content because it is the
// platform's own attachment rather than part of the text body.
func (b *Bridge) Compose(ctx context.Context, in Incoming) *wire.Envelope {
	sender := wire.Sender{
		TelegramID:   in.Sender.ID,
		TelegramName: displayName(in.Sender),
	}
	if name, ok := b.store.PlayerByAccount(strconv.FormatInt(in.Sender.ID, 10)); ok {
		sender.MinecraftName = name
	}

	var segs []wire.Segment
	if in.Reply != nil {
		if summary := b.summarizeReply(ctx, in.Reply); summary != "" {
			segs = append(segs, wire.ReplySegment(in.Reply.MessageID, summary))
		}
	}
	if media := b.mediaSegment(ctx, in); media != nil {
		segs = append(segs, *media)
	}
	segs = append(segs, b.ParseSegments(ctx, in.Text, in.Entities)...)

	return wire.NewEnvelope(sender, in.MessageID, segs...)
}

func (b *Bridge) mediaSegment(ctx context.Context, in Incoming) *wire.Segment {
	var content string
	switch in.Kind {
	case KindText, "":
		return nil
	case KindPhoto:
		if in.FileID != "" {
			path, err := b.chat.FilePath(ctx, in.FileID)
			if err != nil {
				b.logger.Warn("photo path lookup failed", zap.Error(err))
			}
			content = path
		}
	case KindVideo, KindAudio, KindDocument:
		content = in.FileName
	case KindSticker:
		content = in.Emoji
	case KindVoice:
		// voice notes carry no name; the tagged segment alone is enough
	default:
		b.logger.Debug("unmapped media kind", zap.String("kind", in.Kind))
		return nil
	}
	seg := wire.MediaSegment(in.Kind, content)
	return &seg
}

// RelayIncoming forwards a regular chat-platform message to the game
// server, refreshing handle bookkeeping as a side effect.
func (b *Bridge) RelayIncoming(ctx context.Context, in Incoming) error {
	b.Observe(in.Sender)
	return b.link.Emit(ctx, ChannelMessage, string(wire.EventChat), b.Compose(ctx, in))
}

// RelayAt forwards an explicit in-game mention requested from the chat
// platform: an at segment for the target player name, plus the trailing
// free text when present. The caller has validated that the sender holds
// a binding.
func (b *Bridge) RelayAt(ctx context.Context, in Incoming, target, rest string) error {
	b.Observe(in.Sender)

	sender := wire.Sender{
		TelegramID:   in.Sender.ID,
		TelegramName: displayName(in.Sender),
	}
	if name, ok := b.store.PlayerByAccount(strconv.FormatInt(in.Sender.ID, 10)); ok {
		sender.MinecraftName = name
	}

	segs := []wire.Segment{wire.AtSegment(nil, target)}
	if rest != "" {
		segs = append(segs, wire.TextSegment(rest))
	}
	return b.link.Emit(ctx, ChannelMessage, string(wire.EventChat), wire.NewEnvelope(sender, in.MessageID, segs...))
}
