package telegram

import (
	"github.com/mymmrac/telego"

	"github.com/luoxu/craft-telegram-bridge/internal/bridge"
)

// Normalize flattens a Telegram message into the bridge's view of it.
// Media messages surface the caption as Text with the caption entities,
// so downstream parsing is identical for both shapes.
func Normalize(msg *telego.Message) bridge.Incoming {
	in := bridge.Incoming{
		MessageID: int64(msg.MessageID),
		Kind:      bridge.KindText,
		Text:      msg.Text,
		Entities:  entities(msg.Entities),
		Reply:     replyInfo(msg.ReplyToMessage),
	}
	if msg.From != nil {
		in.Sender = user(msg.From)
	}

	switch {
	case len(msg.Photo) > 0:
		in.Kind = bridge.KindPhoto
		in.FileID = largestPhoto(msg.Photo).FileID
	case msg.Video != nil:
		in.Kind = bridge.KindVideo
		in.FileID = msg.Video.FileID
		in.FileName = msg.Video.FileName
	case msg.Audio != nil:
		in.Kind = bridge.KindAudio
		in.FileID = msg.Audio.FileID
		in.FileName = msg.Audio.FileName
	case msg.Voice != nil:
		in.Kind = bridge.KindVoice
		in.FileID = msg.Voice.FileID
	case msg.Sticker != nil:
		in.Kind = bridge.KindSticker
		in.FileID = msg.Sticker.FileID
		in.Emoji = msg.Sticker.Emoji
	case msg.Document != nil:
		in.Kind = bridge.KindDocument
		in.FileID = msg.Document.FileID
		in.FileName = msg.Document.FileName
	}

	if in.Kind != bridge.KindText {
		in.Text = msg.Caption
		in.Entities = entities(msg.CaptionEntities)
	}
	return in
}

func user(u *telego.User) bridge.User {
	return bridge.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

func entities(ents []telego.MessageEntity) []bridge.Entity {
	if len(ents) == 0 {
		return nil
	}
	out := make([]bridge.Entity, 0, len(ents))
	for _, e := range ents {
		ent := bridge.Entity{Type: e.Type, Offset: e.Offset, Length: e.Length}
		if e.User != nil {
			ent.UserID = e.User.ID
		}
		out = append(out, ent)
	}
	return out
}

// replyInfo snapshots the message a reply points at, keeping only what
// the bridge needs to summarise it.
func replyInfo(msg *telego.Message) *bridge.ReplyInfo {
	if msg == nil {
		return nil
	}
	r := &bridge.ReplyInfo{
		MessageID: int64(msg.MessageID),
		Kind:      bridge.KindText,
		Text:      msg.Text,
		Caption:   msg.Caption,
	}
	switch {
	case len(msg.Photo) > 0:
		r.Kind = bridge.KindPhoto
		r.FileID = largestPhoto(msg.Photo).FileID
	case msg.Video != nil:
		r.Kind = bridge.KindVideo
		r.FileName = msg.Video.FileName
	case msg.Audio != nil:
		r.Kind = bridge.KindAudio
		r.FileName = msg.Audio.FileName
	case msg.Voice != nil:
		r.Kind = bridge.KindVoice
	case msg.Sticker != nil:
		r.Kind = bridge.KindSticker
		r.Emoji = msg.Sticker.Emoji
	case msg.Document != nil:
		r.Kind = bridge.KindDocument
		r.FileName = msg.Document.FileName
	}
	return r
}

// largestPhoto picks the highest-resolution size Telegram offers.
func largestPhoto(sizes []telego.PhotoSize) telego.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}
