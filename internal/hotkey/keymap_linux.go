//go:build linux

package hotkey

import xhotkey "golang.design/x/hotkey"

// modifierCodes maps normalized modifier names to X11 modifier masks.
// Mod1 is alt, Mod4 is the super/windows key.
var modifierCodes = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"shift": xhotkey.ModShift,
	"alt":   xhotkey.Mod1,
	"win":   xhotkey.Mod4,
	"super": xhotkey.Mod4,
	"cmd":   xhotkey.Mod4,
}

// modifierRawcodes maps X11 keysyms for left/right modifier variants to
// normalized names, since the generic rawcode lookup loses sidedness.
var modifierRawcodes = map[uint16]string{
	65505: "left shift",  // XK_Shift_L
	65506: "right shift", // XK_Shift_R
	65507: "left ctrl",   // XK_Control_L
	65508: "right ctrl",  // XK_Control_R
	65513: "left alt",    // XK_Alt_L
	65514: "right alt",   // XK_Alt_R
}
