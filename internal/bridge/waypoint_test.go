package bridge

import (
	"strings"
	"testing"
)

func TestRenderTextPassthrough(t *testing.T) {
	b, _, _ := newTestBridge(t)

	esc, plain := b.renderText("just chatting")
	if esc != "just chatting" || plain != "just chatting" {
		t.Fatalf("passthrough = %q / %q", esc, plain)
	}

	// markup characters escaped on the platform side only
	esc, plain = b.renderText("a_b*c")
	if esc != "a\\_b\\*c" {
		t.Fatalf("escaped rendering = %q", esc)
	}
	if plain != "a_b*c" {
		t.Fatalf("plain rendering = %q", plain)
	}
}

func TestWaypointOverworld(t *testing.T) {
	b, _, _ := newTestBridge(t)

	in := "xaero-waypoint:home:H:120:64:-33:6:false:0:Internal-overworld-waypoints"
	esc, plain := b.renderText(in)

	for _, rendering := range []string{esc, plain} {
		if !strings.Contains(rendering, "主世界") {
			t.Fatalf("world label not translated: %q", rendering)
		}
		if !strings.Contains(rendering, "(120, 64, -33)") {
			t.Fatalf("coordinates missing: %q", rendering)
		}
		if !strings.Contains(rendering, "home") || !strings.Contains(rendering, "(H)") {
			t.Fatalf("name/label missing: %q", rendering)
		}
	}
}

func TestWaypointNetherAndEnd(t *testing.T) {
	b, _, _ := newTestBridge(t)

	tests := []struct {
		world string
		want  string
	}{
		{"Internal-the-nether-waypoints", "下界"},
		{"Internal-the-end-waypoints", "末地"},
	}
	for _, tt := range tests {
		esc, _ := b.renderText("xaero-waypoint:base:B:1:2:3:6:false:0:" + tt.world)
		if !strings.Contains(esc, tt.want) {
			t.Errorf("world %s rendered %q, want label %q", tt.world, esc, tt.want)
		}
	}
}

func TestWaypointUnknownWorldEscaped(t *testing.T) {
	b, _, _ := newTestBridge(t)

	esc, plain := b.renderText("xaero-waypoint:base:B:1:2:3:6:false:0:custom_dim")
	if !strings.Contains(esc, "custom\\_dim") {
		t.Fatalf("unknown world not escaped: %q", esc)
	}
	// the original applies the escaped world to both renderings
	if !strings.Contains(plain, "custom\\_dim") {
		t.Fatalf("plain rendering diverged on world: %q", plain)
	}
}

func TestWaypointDeathpointSentinels(t *testing.T) {
	b, _, _ := newTestBridge(t)

	esc, _ := b.renderText("xaero-waypoint:gui.xaero-deathpoint:D:9:9:9:6:false:0:Internal-overworld-waypoints")
	if !strings.Contains(esc, "上次死亡地点") {
		t.Fatalf("deathpoint sentinel not mapped: %q", esc)
	}
	esc, _ = b.renderText("xaero-waypoint:gui.xaero-deathpoint-old:D:9:9:9:6:false:0:Internal-overworld-waypoints")
	if !strings.Contains(esc, "此前死亡地点") {
		t.Fatalf("old deathpoint sentinel not mapped: %q", esc)
	}
}

func TestWaypointNameEscapedOnPlatformSideOnly(t *testing.T) {
	b, _, _ := newTestBridge(t)

	esc, plain := b.renderText("xaero-waypoint:my_base:M:1:2:3:6:false:0:Internal-overworld-waypoints")
	if !strings.Contains(esc, "my\\_base") {
		t.Fatalf("name not escaped in platform rendering: %q", esc)
	}
	if !strings.Contains(plain, "my_base") || strings.Contains(plain, "my\\_base") {
		t.Fatalf("plain rendering should carry the raw name: %q", plain)
	}
}
