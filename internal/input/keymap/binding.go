package keymap

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Binding is a normalized key press.
type Binding struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

var keyNames = map[string]tcell.Key{
	"up":        tcell.KeyUp,
	"down":      tcell.KeyDown,
	"left":      tcell.KeyLeft,
	"right":     tcell.KeyRight,
	"enter":     tcell.KeyEnter,
	"return":    tcell.KeyEnter,
	"tab":       tcell.KeyTab,
	"esc":       tcell.KeyEscape,
	"escape":    tcell.KeyEscape,
	"delete":    tcell.KeyDelete,
	"del":       tcell.KeyDelete,
	"backspace": tcell.KeyBackspace,
	"home":      tcell.KeyHome,
	"end":       tcell.KeyEnd,
	"pgup":      tcell.KeyPgUp,
	"pgdn":      tcell.KeyPgDn,
}

var modNames = map[string]tcell.ModMask{
	"ctrl":    tcell.ModCtrl,
	"control": tcell.ModCtrl,
	"c":       tcell.ModCtrl,
	"alt":     tcell.ModAlt,
	"a":       tcell.ModAlt,
	"shift":   tcell.ModShift,
	"s":       tcell.ModShift,
	"meta":    tcell.ModMeta,
	"cmd":     tcell.ModMeta,
}

// Parse parses a key specification such as "Ctrl+Z" or "Delete".
func Parse(spec string) (Binding, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Binding{}, ErrEmptySpec
	}

	// "+" alone, or a trailing "++", names the plus key itself.
	keyPart, modPart := spec, ""
	switch {
	case spec == "+":
	case strings.HasSuffix(spec, "++"):
		keyPart, modPart = "+", spec[:len(spec)-2]
	default:
		if i := strings.LastIndex(spec, "+"); i > 0 {
			keyPart, modPart = spec[i+1:], spec[:i]
		}
	}
	if keyPart == "" {
		return Binding{}, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
	}

	var mods tcell.ModMask
	if modPart != "" {
		for _, p := range strings.Split(modPart, "+") {
			p = strings.ToLower(strings.TrimSpace(p))
			mod, ok := modNames[p]
			if !ok {
				return Binding{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
			}
			mods |= mod
		}
	}

	if k, ok := keyNames[strings.ToLower(keyPart)]; ok {
		return Binding{Key: k, Mod: mods}, nil
	}
	if strings.EqualFold(keyPart, "space") {
		keyPart = " "
	}
	if utf8.RuneCountInString(keyPart) != 1 {
		return Binding{}, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
	}
	r, _ := utf8.DecodeRuneInString(keyPart)
	if mods&(tcell.ModCtrl|tcell.ModAlt|tcell.ModMeta) != 0 {
		// "Ctrl+Z" means the Z key; Shift must be spelled out.
		r = unicode.ToLower(r)
	}
	return normalizeRune(r, mods), nil
}

// MustParse is like Parse but panics on error. For static defaults only.
func MustParse(spec string) Binding {
	b, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return b
}

// FromEvent normalizes a tcell key event into a Binding.
func FromEvent(ev *tcell.EventKey) Binding {
	k, mods := ev.Key(), ev.Modifiers()

	switch {
	case k == tcell.KeyRune:
		return normalizeRune(ev.Rune(), mods)
	case k == tcell.KeyBackspace2:
		return Binding{Key: tcell.KeyBackspace, Mod: mods}
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ && !isNamedControl(k):
		r := 'a' + rune(k-tcell.KeyCtrlA)
		return Binding{Key: tcell.KeyRune, Rune: r, Mod: mods | tcell.ModCtrl}
	default:
		return Binding{Key: k, Mod: mods}
	}
}

// isNamedControl reports control codes that double as named keys.
func isNamedControl(k tcell.Key) bool {
	return k == tcell.KeyTab || k == tcell.KeyEnter || k == tcell.KeyBackspace || k == tcell.KeyLF
}

// normalizeRune folds letter case into the Shift modifier when Ctrl or Alt is
// held, and drops Shift for plain characters where the rune already says it.
func normalizeRune(r rune, mods tcell.ModMask) Binding {
	if mods&(tcell.ModCtrl|tcell.ModAlt|tcell.ModMeta) != 0 {
		if unicode.IsUpper(r) {
			mods |= tcell.ModShift
		}
		r = unicode.ToLower(r)
	} else {
		mods &^= tcell.ModShift
	}
	return Binding{Key: tcell.KeyRune, Rune: r, Mod: mods}
}

// String renders the binding in the form Parse accepts.
func (b Binding) String() string {
	var parts []string
	if b.Mod&tcell.ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if b.Mod&tcell.ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if b.Mod&tcell.ModMeta != 0 {
		parts = append(parts, "Meta")
	}
	if b.Mod&tcell.ModShift != 0 {
		parts = append(parts, "Shift")
	}

	switch {
	case b.Key == tcell.KeyRune && b.Rune == ' ':
		parts = append(parts, "Space")
	case b.Key == tcell.KeyRune && len(parts) > 0:
		parts = append(parts, string(unicode.ToUpper(b.Rune)))
	case b.Key == tcell.KeyRune:
		parts = append(parts, string(b.Rune))
	default:
		parts = append(parts, keyName(b.Key))
	}
	return strings.Join(parts, "+")
}

func keyName(k tcell.Key) string {
	switch k {
	case tcell.KeyUp:
		return "Up"
	case tcell.KeyDown:
		return "Down"
	case tcell.KeyLeft:
		return "Left"
	case tcell.KeyRight:
		return "Right"
	case tcell.KeyEnter:
		return "Enter"
	case tcell.KeyTab:
		return "Tab"
	case tcell.KeyEscape:
		return "Esc"
	case tcell.KeyDelete:
		return "Delete"
	case tcell.KeyBackspace:
		return "Backspace"
	case tcell.KeyHome:
		return "Home"
	case tcell.KeyEnd:
		return "End"
	case tcell.KeyPgUp:
		return "PgUp"
	case tcell.KeyPgDn:
		return "PgDn"
	}
	return fmt.Sprintf("Key(%d)", k)
}
