package config

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/dshills/tiewarp/internal/config/notify"
)

// Diff returns the leaf settings that differ between old and updated, keyed
// by dotted path ("logging.level", "keymap.undo"), sorted by path.
func Diff(old, updated *Config) []notify.Change {
	before, after := flatten(old), flatten(updated)

	var changes []notify.Change
	for path, was := range before {
		now, ok := after[path]
		switch {
		case !ok:
			changes = append(changes, notify.Change{Path: path, Type: notify.ChangeDelete, OldValue: was})
		case now != was:
			changes = append(changes, notify.Change{Path: path, Type: notify.ChangeSet, OldValue: was, NewValue: now})
		}
	}
	for path, now := range after {
		if _, ok := before[path]; !ok {
			changes = append(changes, notify.Change{Path: path, Type: notify.ChangeSet, NewValue: now})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

func flatten(c *Config) map[string]any {
	out := map[string]any{}
	walkLeaves(c, func(path string, r gjson.Result) {
		out[path] = r.Value()
	})
	return out
}

// walkLeaves calls fn for every leaf setting of c's JSON form.
func walkLeaves(c *Config, fn func(path string, r gjson.Result)) {
	if c == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	walk("", gjson.ParseBytes(data), fn)
}

func walk(prefix string, r gjson.Result, fn func(string, gjson.Result)) {
	if !r.IsObject() {
		fn(prefix, r)
		return
	}
	r.ForEach(func(key, value gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		walk(path, value, fn)
		return true
	})
}
