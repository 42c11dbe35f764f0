package matchlog

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// LogEntry is one row of a match's activity log.
// Zero values mean the source row did not carry that field.
type LogEntry struct {
	Player   string `json:"Player,omitempty"`
	Action   string `json:"Action,omitempty"`
	Details  string `json:"Details,omitempty"`
	UnixTime int64  `json:"UnixTime,omitempty"`
	Time     string `json:"Time,omitempty"`
}

// HasAction reports whether the row carried an action at all.
// Header and spacer rows do not.
func (e LogEntry) HasAction() bool {
	return strings.TrimSpace(e.Action) != ""
}

// String renders the entry for log output
func (e LogEntry) String() string {
	return fmt.Sprintf("%s %s %s %q", e.Time, e.Player, strings.TrimSpace(e.Action), e.Details)
}

// State is the persisted snapshot for one watched match.
// Logs only ever holds classified (significant) entries, oldest first.
type State struct {
	URL       string     `json:"URL"`
	Logs      []LogEntry `json:"logs"`
	Completed bool       `json:"Completed"`
}

// Equal reports structural equality of two snapshots
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.URL != other.URL || s.Completed != other.Completed || len(s.Logs) != len(other.Logs) {
		return false
	}
	for i := range s.Logs {
		if s.Logs[i] != other.Logs[i] {
			return false
		}
	}
	return true
}

// MatchUp derives the record key for a match URL: its final non-empty path segment.
// e.g. "https://www.primeleague.gg/leagues/matches/1234-team-a-vs-team-b" -> "1234-team-a-vs-team-b"
func MatchUp(matchURL string) string {
	p := matchURL
	if u, err := url.Parse(matchURL); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return url.PathEscape(matchURL)
	}
	return base
}
