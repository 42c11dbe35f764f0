package primeleague

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"matchwatch/internal/matchlog"
)

// TimeLayout is how log timestamps are rendered (UTC)
const TimeLayout = "2006-01-02 15:04:05"

var (
	errNoLogSection = errors.New("match page has no log section")
	errNoLogTable   = errors.New("log section has no table")
)

// MatchLogs is the raw activity log of one match page
type MatchLogs struct {
	URL       string
	Entries   []matchlog.LogEntry
	Completed bool
}

// FetchMatchLogs downloads a match page and extracts its full, unfiltered log.
// Completed is derived from the raw entries before any filtering.
func (c *Client) FetchMatchLogs(ctx context.Context, matchURL string) (*MatchLogs, error) {
	doc, err := c.fetchDocument(ctx, matchURL)
	if err != nil {
		return nil, err
	}

	entries, err := ParseMatchLogs(doc)
	if err != nil {
		return nil, &FetchError{URL: matchURL, Op: "parse", Err: err}
	}

	logs := &MatchLogs{
		URL:       matchURL,
		Entries:   entries,
		Completed: matchlog.IsCompleted(entries),
	}
	c.log.Debug().
		Str("url", matchURL).
		Int("entries", len(entries)).
		Bool("completed", logs.Completed).
		Msg("fetched match logs")
	return logs, nil
}

// ParseMatchLogs extracts one LogEntry per table row of the match log section.
// Cells are read positionally as player, action, details; a cell holding an
// itime span supplies the timestamp. Rows without cells yield empty entries.
func ParseMatchLogs(doc *html.Node) ([]matchlog.LogEntry, error) {
	section := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Section && hasClass(n, "league-match-logs")
	})
	if section == nil {
		return nil, errNoLogSection
	}

	table := findFirst(section, isElement(atom.Table))
	if table == nil {
		return nil, errNoLogTable
	}

	rows := findAll(table, isElement(atom.Tr))
	entries := make([]matchlog.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, parseRow(row))
	}
	return entries, nil
}

func parseRow(row *html.Node) matchlog.LogEntry {
	var entry matchlog.LogEntry
	var texts []string

	for _, cell := range findAll(row, isElement(atom.Td)) {
		if ts, ok := cellTimestamp(cell); ok {
			entry.UnixTime = ts
			entry.Time = time.Unix(ts, 0).UTC().Format(TimeLayout)
			continue
		}
		texts = append(texts, textContent(cell))
	}

	if len(texts) > 0 {
		entry.Player = texts[0]
	}
	if len(texts) > 1 {
		entry.Action = texts[1]
	}
	if len(texts) > 2 {
		entry.Details = texts[2]
	}
	return entry
}

// cellTimestamp reads <span class="itime" data-time="..."> inside a cell
func cellTimestamp(cell *html.Node) (int64, bool) {
	span := findFirst(cell, func(n *html.Node) bool {
		return n.DataAtom == atom.Span && hasClass(n, "itime")
	})
	if span == nil {
		return 0, false
	}
	raw, ok := attr(span, "data-time")
	if !ok {
		return 0, false
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
