// Package history provides snapshot-based undo/redo for tiewarp.
//
// The host application owns its state. The history Manager only sees that
// state through two hooks registered at startup:
//
//	mgr := history.New(history.WithLogger(logger))
//	mgr.Configure(session.Capture, session.Restore)
//
// A capture returns any JSON-serializable value. The manager canonicalizes
// it into a Snapshot (sorted keys, no insignificant whitespace) so that two
// captures of the same logical state compare equal byte for byte.
//
// # Recording
//
// The host calls RecordAction after every discrete user edit:
//
//	session.AddImagePoint(p) // mutates, then calls mgr.RecordAction()
//
// Consecutive identical snapshots are never pushed. When an action is
// recorded after one or more undos, the redo stack is drained onto the undo
// stack first (one pop, one push, until empty), so undone states stay
// reachable through further undos in the way Emacs undo works.
//
// # Undo and Redo
//
// Undo saves the present state onto the redo stack before restoring the
// previous snapshot; Redo does the reverse. One Undo followed by one Redo
// leaves both stacks exactly as they were.
//
// The Manager is not safe for concurrent use. It is driven from the single
// goroutine that handles user input.
package history
