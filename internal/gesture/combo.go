package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadCombo reports malformed combo syntax at configuration time. The
// previous configuration stays active when this is returned.
var ErrBadCombo = errors.New("malformed hotkey combo")

// knownModifiers are combo parts accepted as modifiers in multi-key combos.
var knownModifiers = map[string]struct{}{
	"ctrl":  {},
	"shift": {},
	"alt":   {},
	"win":   {},
	"super": {},
	"cmd":   {},
}

// Combo is a parsed, normalized key combination such as "ctrl+shift+space".
type Combo struct {
	// Modifiers precede the trigger key, normalized and deduplicated.
	Modifiers []string
	// Key is the final non-modifier trigger key.
	Key string
}

// ParseCombo validates and normalizes a combo string. A single-part combo
// is allowed (plain key or bare modifier); multi-part combos must be
// modifiers followed by exactly one trigger key.
func ParseCombo(raw string) (Combo, error) {
	if strings.TrimSpace(raw) == "" {
		return Combo{}, fmt.Errorf("%w: empty combo", ErrBadCombo)
	}

	parts := strings.Split(raw, "+")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = NormalizeKey(part)
		if part == "" {
			return Combo{}, fmt.Errorf("%w: empty key in %q", ErrBadCombo, raw)
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 1 {
		return Combo{Key: normalized[0]}, nil
	}

	seen := make(map[string]struct{}, len(normalized)-1)
	modifiers := make([]string, 0, len(normalized)-1)
	for _, mod := range normalized[:len(normalized)-1] {
		if _, ok := knownModifiers[mod]; !ok {
			return Combo{}, fmt.Errorf("%w: %q is not a modifier in %q", ErrBadCombo, mod, raw)
		}
		if _, dup := seen[mod]; dup {
			return Combo{}, fmt.Errorf("%w: duplicate modifier %q in %q", ErrBadCombo, mod, raw)
		}
		seen[mod] = struct{}{}
		modifiers = append(modifiers, mod)
	}

	key := normalized[len(normalized)-1]
	if _, isMod := knownModifiers[key]; isMod {
		return Combo{}, fmt.Errorf("%w: combo %q ends in a modifier", ErrBadCombo, raw)
	}

	return Combo{Modifiers: modifiers, Key: key}, nil
}

// String renders the canonical combo form used for event matching.
func (c Combo) String() string {
	if len(c.Modifiers) == 0 {
		return c.Key
	}
	return strings.Join(append(append([]string{}, c.Modifiers...), c.Key), "+")
}
