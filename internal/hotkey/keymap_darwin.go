//go:build darwin

package hotkey

import xhotkey "golang.design/x/hotkey"

// modifierCodes maps normalized modifier names to macOS hotkey modifiers.
// Alt is the option key.
var modifierCodes = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"shift": xhotkey.ModShift,
	"alt":   xhotkey.ModOption,
	"win":   xhotkey.ModCmd,
	"super": xhotkey.ModCmd,
	"cmd":   xhotkey.ModCmd,
}

// modifierRawcodes maps macOS virtual keycodes for left/right modifier
// variants to normalized names.
var modifierRawcodes = map[uint16]string{
	56: "left shift",  // kVK_Shift
	60: "right shift", // kVK_RightShift
	59: "left ctrl",   // kVK_Control
	62: "right ctrl",  // kVK_RightControl
	58: "left alt",    // kVK_Option
	61: "right alt",   // kVK_RightOption
}
