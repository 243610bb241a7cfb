package locale

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New("")
	if err != nil {
		t.Fatalf("locale.New: %v", err)
	}
	return c
}

func TestRenderPositional(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name string
		key  string
		args []string
		want string
	}{
		{"single", "bridge.event.join", []string{"`Steve`"}, "`Steve` 加入了服务器"},
		{"two args", "death.attack.mob", []string{"`Bob`", "僵尸"}, "`Bob`被僵尸杀死了"},
		{"three args", "death.attack.mob.item", []string{"`Bob`", "`Alice`", "`铁剑`"}, "`Bob`被`Alice`用`铁剑`杀死了"},
		{"missing trailing arg kept verbatim", "death.attack.mob", []string{"`Bob`"}, "`Bob`被%2$s杀死了"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Render(tt.key, tt.args...)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderRepeatedAndOutOfOrder(t *testing.T) {
	c := newTestCatalog(t)
	c.data["test.swap"] = "%2$s before %1$s and %2$s again"

	got, err := c.Render("test.swap", "one", "two")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "two before one and two again" {
		t.Fatalf("Render = %q", got)
	}
}

func TestRenderMissingKey(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.Render("no.such.key")
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestResolveOr(t *testing.T) {
	c := newTestCatalog(t)
	if got := c.ResolveOr("entity.minecraft.zombie"); got != "僵尸" {
		t.Fatalf("ResolveOr(key) = %q", got)
	}
	if got := c.ResolveOr("Notch"); got != "Notch" {
		t.Fatalf("ResolveOr(literal) = %q", got)
	}
}

func TestOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.json")
	if err := os.WriteFile(path, []byte(`{"bridge.event.join": "%1$s joined the server", "extra.key": "extra"}`), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(path)
	if err != nil {
		t.Fatalf("locale.New: %v", err)
	}
	got, err := c.Render("bridge.event.join", "`Steve`")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "`Steve` joined the server" {
		t.Fatalf("override not applied: %q", got)
	}
	if !c.Has("extra.key") {
		t.Fatal("override-only key missing")
	}
	// untouched defaults survive
	if !c.Has("bridge.event.quit") {
		t.Fatal("embedded default lost after override")
	}
}
