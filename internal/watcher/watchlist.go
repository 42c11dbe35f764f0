package watcher

import "sort"

// Watchlist is the set of match URLs under observation.
// It is owned by a single Driver and is not safe for concurrent use.
type Watchlist struct {
	urls map[string]struct{}
}

// NewWatchlist creates a watchlist holding urls (duplicates collapse)
func NewWatchlist(urls ...string) *Watchlist {
	w := &Watchlist{urls: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		w.Add(u)
	}
	return w
}

// Add starts watching url; empty URLs are ignored
func (w *Watchlist) Add(url string) {
	if url == "" {
		return
	}
	w.urls[url] = struct{}{}
}

// Remove drops url and reports whether it was present
func (w *Watchlist) Remove(url string) bool {
	if _, ok := w.urls[url]; !ok {
		return false
	}
	delete(w.urls, url)
	return true
}

// Contains reports whether url is watched
func (w *Watchlist) Contains(url string) bool {
	_, ok := w.urls[url]
	return ok
}

// Len returns the number of watched matches
func (w *Watchlist) Len() int {
	return len(w.urls)
}

// Empty reports whether nothing is left to watch
func (w *Watchlist) Empty() bool {
	return len(w.urls) == 0
}

// URLs returns a sorted snapshot of the watched URLs
func (w *Watchlist) URLs() []string {
	out := make([]string, 0, len(w.urls))
	for u := range w.urls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
