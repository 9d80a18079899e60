//go:build windows

package hotkey

import xhotkey "golang.design/x/hotkey"

// modifierCodes maps normalized modifier names to Win32 hotkey modifiers.
var modifierCodes = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"shift": xhotkey.ModShift,
	"alt":   xhotkey.ModAlt,
	"win":   xhotkey.ModWin,
	"super": xhotkey.ModWin,
	"cmd":   xhotkey.ModWin,
}

// modifierRawcodes maps virtual-key codes for left/right modifier variants
// to normalized names.
var modifierRawcodes = map[uint16]string{
	160: "left shift",  // VK_LSHIFT
	161: "right shift", // VK_RSHIFT
	162: "left ctrl",   // VK_LCONTROL
	163: "right ctrl",  // VK_RCONTROL
	164: "left alt",    // VK_LMENU
	165: "right alt",   // VK_RMENU
}
