package bridge

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/luoxu/craft-telegram-bridge/pkg/wire"
)

// ParseSegments decomposes a message text plus its annotation spans into
// an ordered segment list. Ordering is a contract: the game side rebuilds
// readable text by concatenating segments in the order emitted here.
//
// Literal gaps around and between spans are trimmed and dropped when
// empty; span content itself is authoritative and kept verbatim.
func (b *Bridge) ParseSegments(ctx context.Context, text string, entities []Entity) []wire.Segment {
	if len(entities) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []wire.Segment{wire.TextSegment(trimmed)}
	}

	units := utf16.Encode([]rune(text))
	var segs []wire.Segment

	gap := func(from, to int) {
		if g := strings.TrimSpace(decodeRange(units, from, to)); g != "" {
			segs = append(segs, wire.TextSegment(g))
		}
	}

	cursor := 0
	for _, ent := range entities {
		gap(cursor, ent.Offset)

		switch ent.Type {
		case EntityMention:
			// span covers "@handle"; drop the sigil
			handle := decodeRange(units, ent.Offset+1, ent.Offset+ent.Length)
			var id *int64
			if acct, ok := b.store.AccountByHandle(handle); ok {
				if n, err := strconv.ParseInt(acct, 10, 64); err == nil {
					id = &n
				}
			}
			segs = append(segs, wire.AtSegment(id, handle))
		case EntityTextMention:
			name := b.textMentionName(ctx, ent, units)
			id := ent.UserID
			segs = append(segs, wire.AtSegment(&id, name))
		default:
			segs = append(segs, wire.TextSegment(decodeRange(units, ent.Offset, ent.Offset+ent.Length)))
		}

		cursor = ent.Offset + ent.Length
	}
	gap(cursor, len(units))

	return segs
}

// textMentionName resolves the display name for a pre-resolved mention,
// degrading to the span text when the platform lookup fails.
func (b *Bridge) textMentionName(ctx context.Context, ent Entity, units []uint16) string {
	u, err := b.chat.GetUser(ctx, ent.UserID)
	if err != nil {
		b.logger.Warn("text mention lookup failed", zap.Int64("user", ent.UserID), zap.Error(err))
		return decodeRange(units, ent.Offset, ent.Offset+ent.Length)
	}
	return displayName(u)
}

// decodeRange slices [from, to) in UTF-16 code units and decodes it back
// to a string, clamping out-of-range offsets from skewed platform data.
func decodeRange(units []uint16, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(units) {
		to = len(units)
	}
	if from >= to {
		return ""
	}
	return string(utf16.Decode(units[from:to]))
}
