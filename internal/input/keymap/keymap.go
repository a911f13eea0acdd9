package keymap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Action names a user gesture the UI knows how to perform.
type Action string

// Actions
const (
	ActionUndo         Action = "undo"
	ActionRedo         Action = "redo"
	ActionQuit         Action = "quit"
	ActionModeAdd      Action = "mode.add"
	ActionModeDelete   Action = "mode.delete"
	ActionModeNavigate Action = "mode.navigate"
	ActionPaneToggle   Action = "pane.toggle"
	ActionPlace        Action = "place"
	ActionPointMove    Action = "point.move"
	ActionSelectNext   Action = "select.next"
	ActionSelectPrev   Action = "select.prev"
	ActionDelete       Action = "delete"
	ActionCursorUp     Action = "cursor.up"
	ActionCursorDown   Action = "cursor.down"
	ActionCursorLeft   Action = "cursor.left"
	ActionCursorRight  Action = "cursor.right"
)

var knownActions = map[Action]bool{
	ActionUndo: true, ActionRedo: true, ActionQuit: true,
	ActionModeAdd: true, ActionModeDelete: true, ActionModeNavigate: true,
	ActionPaneToggle: true, ActionPlace: true, ActionPointMove: true,
	ActionSelectNext: true, ActionSelectPrev: true, ActionDelete: true,
	ActionCursorUp: true, ActionCursorDown: true, ActionCursorLeft: true, ActionCursorRight: true,
}

// Known reports whether a is an action the keymap accepts.
func Known(a Action) bool {
	return knownActions[a]
}

var defaultBindings = map[Action][]string{
	ActionUndo:         {"Ctrl+Z"},
	ActionRedo:         {"Ctrl+Y", "Ctrl+Shift+Z"},
	ActionQuit:         {"q", "Ctrl+C"},
	ActionModeAdd:      {"a"},
	ActionModeDelete:   {"d"},
	ActionModeNavigate: {"n"},
	ActionPaneToggle:   {"Tab"},
	ActionPlace:        {"Enter", "Space"},
	ActionPointMove:    {"m"},
	ActionSelectNext:   {"]"},
	ActionSelectPrev:   {"["},
	ActionDelete:       {"Delete", "Backspace"},
	ActionCursorUp:     {"Up", "k"},
	ActionCursorDown:   {"Down", "j"},
	ActionCursorLeft:   {"Left", "h"},
	ActionCursorRight:  {"Right", "l"},
}

// Keymap is a lookup table from normalized key presses to actions.
type Keymap struct {
	bindings map[Binding]Action
}

// New creates an empty keymap.
func New() *Keymap {
	return &Keymap{bindings: make(map[Binding]Action)}
}

// Default returns the built-in keymap.
func Default() *Keymap {
	km := New()
	for action, specs := range defaultBindings {
		for _, spec := range specs {
			km.bindings[MustParse(spec)] = action
		}
	}
	return km
}

// Bind maps a key specification to an action, replacing any previous
// action bound to the same key.
func (km *Keymap) Bind(spec string, action Action) error {
	b, err := Parse(spec)
	if err != nil {
		return err
	}
	km.bindings[b] = action
	return nil
}

// Unbind removes every key bound to action.
func (km *Keymap) Unbind(action Action) {
	for b, a := range km.bindings {
		if a == action {
			delete(km.bindings, b)
		}
	}
}

// Override rebinds actions from a config table of action name to a
// comma-separated list of key specifications. Each named action loses its
// previous keys. Nothing is changed if any entry is invalid.
func (km *Keymap) Override(table map[string]string) error {
	staged := make(map[Action][]Binding, len(table))
	for name, list := range table {
		action := Action(name)
		if !Known(action) {
			return fmt.Errorf("keymap: unknown action %q", name)
		}
		var bs []Binding
		for _, spec := range strings.Split(list, ",") {
			if strings.TrimSpace(spec) == "" {
				continue
			}
			b, err := Parse(spec)
			if err != nil {
				return fmt.Errorf("keymap: action %q: %w", name, err)
			}
			bs = append(bs, b)
		}
		staged[action] = bs
	}

	for action, bs := range staged {
		km.Unbind(action)
		for _, b := range bs {
			km.bindings[b] = action
		}
	}
	return nil
}

// Lookup returns the action bound to the key event, if any.
func (km *Keymap) Lookup(ev *tcell.EventKey) (Action, bool) {
	return km.LookupBinding(FromEvent(ev))
}

// LookupBinding returns the action bound to b, if any.
func (km *Keymap) LookupBinding(b Binding) (Action, bool) {
	a, ok := km.bindings[b]
	return a, ok
}

// Keys returns the key specifications bound to action, sorted.
func (km *Keymap) Keys(action Action) []string {
	var keys []string
	for b, a := range km.bindings {
		if a == action {
			keys = append(keys, b.String())
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of bound keys.
func (km *Keymap) Len() int {
	return len(km.bindings)
}
