package matchlog

import "strings"

// Actions the watcher reports on
var significantActions = map[string]bool{
	"played":                 true,
	"lineup_missing":         true,
	"scheduling_suggest":     true,
	"scheduling_confirm":     true,
	"scheduling_autoconfirm": true,
	"change_status":          true,
}

// Actions that end a match. A completing action need not be significant.
var completedActions = map[string]bool{
	"played":         true,
	"lineup_missing": true,
	"change_status":  true,
}

// IsSignificant reports whether an action is one the watcher notifies about
func IsSignificant(action string) bool {
	return significantActions[strings.TrimSpace(action)]
}

// IsCompletedAction reports whether an action marks the match as finished
func IsCompletedAction(action string) bool {
	return completedActions[strings.TrimSpace(action)]
}

// Classify returns the significant entries of raw in source order.
// Entries without an action are dropped.
func Classify(raw []LogEntry) []LogEntry {
	significant := make([]LogEntry, 0, len(raw))
	for _, e := range raw {
		if !e.HasAction() {
			continue
		}
		if IsSignificant(e.Action) {
			significant = append(significant, e)
		}
	}
	return significant
}

// IsCompleted evaluates the unfiltered raw list for any completing action
func IsCompleted(raw []LogEntry) bool {
	for _, e := range raw {
		if e.HasAction() && IsCompletedAction(e.Action) {
			return true
		}
	}
	return false
}

// Diff returns the entries of fresh that are not structurally present in prior,
// keeping the order of fresh. Removals from prior are not reported.
func Diff(fresh, prior []LogEntry) []LogEntry {
	known := make(map[LogEntry]struct{}, len(prior))
	for _, e := range prior {
		known[e] = struct{}{}
	}

	var added []LogEntry
	for _, e := range fresh {
		if _, ok := known[e]; !ok {
			added = append(added, e)
		}
	}
	return added
}
