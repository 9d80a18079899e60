package gesture

import "strings"

// singleModifierKeys are keys recognized in single-modifier mode, where
// hold/tap/double-tap timing is significant instead of plain combo toggling.
// Both ctrl and control spellings appear because OS hooks disagree.
var singleModifierKeys = map[string]struct{}{
	"right alt":     {},
	"left alt":      {},
	"right shift":   {},
	"left shift":    {},
	"right ctrl":    {},
	"left ctrl":     {},
	"right control": {},
	"left control":  {},
}

// NormalizeKey canonicalizes a key name so configuration strings and
// OS-reported names compare equal: lower case, underscores as spaces,
// control folded to ctrl, surrounding and repeated whitespace collapsed.
func NormalizeKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "control", "ctrl")
	return strings.Join(strings.Fields(name), " ")
}

// IsSingleModifier reports whether a combo string is a bare modifier key
// that needs press/release timing classification.
func IsSingleModifier(combo string) bool {
	_, ok := singleModifierKeys[NormalizeKey(combo)]
	return ok
}
