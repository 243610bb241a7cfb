package bridge

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/luoxu/craft-telegram-bridge/internal/tgtext"
)

// Xaero's Minimap share payload: nine colon-separated fields after the
// marker. Groups 1-5 (display name, one-letter label, x, y, z) and 9
// (world identifier) are used; 6-8 are client-internal flags.
var waypointRe = regexp.MustCompile(`xaero-waypoint:(.*?):(.*?):(\S+):(\S+):(\S+):(.*?):(.*?):(.*?):(\S+)`)

// Fixed display-name sentinels the minimap emits for death waypoints.
const (
	deathpointName    = "gui.xaero-deathpoint"
	deathpointOldName = "gui.xaero-deathpoint-old"
)

// renderText produces the two parallel renderings of a text segment: one
// escaped for the chat platform and one plain for the game-server return
// path. A segment containing a waypoint share is replaced entirely by the
// rendered share line; anything else passes through (escaped on the
// platform side only).
func (b *Bridge) renderText(content string) (escaped, plain string) {
	m := waypointRe.FindStringSubmatch(content)
	if m == nil {
		return tgtext.Escape(content), content
	}

	name, label := m[1], m[2]
	x, y, z := m[3], m[4], m[5]
	world := m[9]

	switch world {
	case "Internal-overworld-waypoints":
		world = b.phrase("bridge.world.overworld")
	case "Internal-the-nether-waypoints":
		world = b.phrase("bridge.world.nether")
	case "Internal-the-end-waypoints":
		world = b.phrase("bridge.world.end")
	default:
		world = tgtext.Escape(world)
	}

	switch name {
	case deathpointName:
		name = b.phrase("bridge.waypoint.deathpoint")
	case deathpointOldName:
		name = b.phrase("bridge.waypoint.deathpoint_old")
	}

	escaped, err := b.cat.Render("bridge.waypoint.shared", world, tgtext.Escape(name), tgtext.Escape(label), x, y, z)
	if err != nil {
		b.logger.Error("render waypoint share", zap.Error(err))
		return tgtext.Escape(content), content
	}
	plain, err = b.cat.Render("bridge.waypoint.shared", world, name, label, x, y, z)
	if err != nil {
		return escaped, content
	}
	return escaped, plain
}
