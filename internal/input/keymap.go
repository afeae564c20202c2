// Package input provides keysym-to-keycode translation for virtual
// keyboard input: a lookup table, not a full xkb keymap compiler.
package input

// Keymap looks up the evdev keycode a compositor-bound virtual keyboard
// expects for an X11 keysym the RFB engine reports.
type Keymap interface {
	Lookup(keysym uint32) (keycode uint32, ok bool)
}

// usLayout is a small built-in US-layout table: a lookup function, not
// a full xkb keymap compiler.
type usLayout struct {
	table map[uint32]uint32
}

// NewUSLayout returns the default keymap used when no compositor-specific
// translation is configured.
func NewUSLayout() Keymap {
	return &usLayout{table: usKeysymToEvdev}
}

func (u *usLayout) Lookup(keysym uint32) (uint32, bool) {
	kc, ok := u.table[keysym]
	return kc, ok
}

// evdev keycodes (linux/input-event-codes.h), the physical scancodes a
// virtual keyboard protocol expects.
const (
	keyEsc   = 1
	key1     = 2
	keyTab   = 15
	keyQ     = 16
	keyEnter = 28
	keyA     = 30
	keyZ     = 44
	keySpace = 57
)

// usKeysymToEvdev maps the keysyms of the ASCII letters, digits and space,
// plus Return, Tab and Escape, onto evdev keycodes for a standard US
// QWERTY layout; punctuation and other keysyms are not in the table. Shift state (upper vs lower case,
// shifted-punctuation) is the RFB engine/virtual-keyboard adapter's job,
// not this table's: both cases of a letter share one physical keycode.
var usKeysymToEvdev = buildUSTable()

func buildUSTable() map[uint32]uint32 {
	t := make(map[uint32]uint32, 64)

	rows := []struct {
		letters string
		start   uint32
	}{
		{"qwertyuiop", keyQ},
		{"asdfghjkl", keyA},
		{"zxcvbnm", keyZ},
	}
	for _, row := range rows {
		for i, r := range row.letters {
			t[uint32(r)] = row.start + uint32(i)
			t[uint32(r)-32] = row.start + uint32(i) // uppercase shares the keycode
		}
	}
	for i, r := range "1234567890" {
		t[uint32(r)] = key1 + uint32(i)
	}
	t[uint32(' ')] = keySpace
	t[0xff0d] = keyEnter // XK_Return
	t[0xff09] = keyTab   // XK_Tab
	t[0xff1b] = keyEsc   // XK_Escape
	return t
}
