package locale

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"
)

//go:embed zh_cn.json
var defaultFiles embed.FS

// ErrMissingKey is returned when a template key is absent from the table.
// A missing event-format key indicates a broken locale resource; callers
// treat it as a deployment error, not a runtime condition.
var ErrMissingKey = errors.New("locale: template key not found")

var placeholderRe = regexp.MustCompile(`%(\d+)\$s`)

// Catalog is a locale-keyed template table with positional %N$s
// placeholders. It is loaded once at start-up and read-only afterwards.
type Catalog struct {
	mu   sync.RWMutex
	data map[string]string
}

// New loads the embedded default table and then applies overrides from
// path if provided. The override file is a flat JSON object mapping
// template key to template string.
func New(path string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]string)}

	raw, err := fs.ReadFile(defaultFiles, "zh_cn.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded locale: %w", err)
	}
	if err := c.apply(raw); err != nil {
		return nil, fmt.Errorf("parse embedded locale: %w", err)
	}

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read locale file: %w", err)
		}
		if err := c.apply(b); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", path, err)
		}
	}
	return c, nil
}

func (c *Catalog) apply(raw []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return err
	}
	c.mu.Lock()
	for k, v := range flat {
		c.data[k] = v
	}
	c.mu.Unlock()
	return nil
}

// Resolve returns the raw template text for key.
func (c *Catalog) Resolve(key string) (string, bool) {
	c.mu.RLock()
	tpl, ok := c.data[key]
	c.mu.RUnlock()
	return tpl, ok
}

// Has reports whether key exists in the table.
func (c *Catalog) Has(key string) bool {
	_, ok := c.Resolve(key)
	return ok
}

// ResolveOr looks up value as a nested template key and returns its text,
// falling back to the literal value when no such key exists. Used for
// cause-of-death sub-messages whose arguments may themselves be keys.
func (c *Catalog) ResolveOr(value string) string {
	if tpl, ok := c.Resolve(value); ok {
		return tpl
	}
	return value
}

// Render looks up key and substitutes %N$s tokens with args[N-1] in a
// single left-to-right pass. Tokens may repeat and appear in any order;
// a token whose argument was not supplied is left verbatim, which lets
// event-dependent trailing arguments stay optional.
func (c *Catalog) Render(key string, args ...string) (string, error) {
	tpl, ok := c.Resolve(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	out := placeholderRe.ReplaceAllStringFunc(tpl, func(tok string) string {
		n := 0
		for _, ch := range tok[1 : len(tok)-2] {
			n = n*10 + int(ch-'0')
		}
		if n >= 1 && n <= len(args) {
			return args[n-1]
		}
		return tok
	})
	return out, nil
}
