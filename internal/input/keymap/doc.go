// Package keymap maps terminal key presses to tiewarp actions.
//
// Bindings are written as "Ctrl+Z", "Ctrl+Shift+Z", "Delete", "Up", "]" or a
// single character. Terminals report Ctrl+letter as dedicated control codes;
// FromEvent folds those back into letter-plus-modifier form so that a parsed
// spec and a live key press compare equal.
//
// By default Ctrl+Z undoes and Ctrl+Y redoes. Users override bindings per
// action from the [keymap] config table:
//
//	[keymap]
//	redo = "Ctrl+Y, Ctrl+Shift+Z"
package keymap
