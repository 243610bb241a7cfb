package wire

// Segment types carried in a message envelope. Ordering inside
// Message.Content reproduces the left-to-right reading order of the
// original message.
const (
	SegText     = "text"
	SegAt       = "at"
	SegReply    = "reply"
	SegPhoto    = "photo"
	SegVideo    = "video"
	SegAudio    = "audio"
	SegVoice    = "voice"
	SegSticker  = "sticker"
	SegDocument = "document"
)

// Segment is one typed unit of a decomposed message.
// ID is nil on the wire when the segment has no subject: for "at" it is
// the target Telegram account (nil if unresolved), for "reply" it is the
// message id being replied to.
type Segment struct {
	Type    string `json:"type"`
	ID      *int64 `json:"id"`
	Content string `json:"content"`
}

// Sender identifies the account a message originates from. An unbound
// sender carries an empty MinecraftName; the server side tolerates it.
type Sender struct {
	MinecraftName string `json:"minecraft_name"`
	MinecraftUUID string `json:"minecraft_uuid"`
	TelegramName  string `json:"telegram_name"`
	TelegramID    int64  `json:"telegram_id"`
}

// Message is the ordered payload body of an envelope.
type Message struct {
	ID      int64     `json:"id"`
	Content []Segment `json:"content"`
}

// Envelope is the structured payload exchanged with the game server.
type Envelope struct {
	Sender  Sender  `json:"sender"`
	Message Message `json:"message"`
}

// NewEnvelope builds an envelope from supplied fields. Envelopes are
// always constructed fresh; they are never copied from a shared template.
func NewEnvelope(sender Sender, messageID int64, content ...Segment) *Envelope {
	return &Envelope{
		Sender: sender,
		Message: Message{
			ID:      messageID,
			Content: append([]Segment(nil), content...),
		},
	}
}

// TextSegment returns a plain text segment with no subject.
func TextSegment(content string) Segment {
	return Segment{Type: SegText, Content: content}
}

// TextSegmentWithID returns a text segment tagged with a message id, used
// on the resolved-mention return path.
func TextSegmentWithID(id int64, content string) Segment {
	return Segment{Type: SegText, ID: &id, Content: content}
}

// AtSegment returns a mention segment. id may be nil when the handle could
// not be resolved to an account.
func AtSegment(id *int64, content string) Segment {
	return Segment{Type: SegAt, ID: id, Content: content}
}

// ReplySegment returns a reply-reference segment pointing at messageID.
func ReplySegment(messageID int64, content string) Segment {
	return Segment{Type: SegReply, ID: &messageID, Content: content}
}

// MediaSegment returns a media segment of the given type (photo, video,
// audio, voice, sticker or document).
func MediaSegment(segType, content string) Segment {
	return Segment{Type: segType, Content: content}
}
