package primeleague

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DiscoverMatchURLs returns the match links on a group page that involve team.
// A link matches when its href contains "-vs-"+team or team+"-vs-".
// Links are resolved against groupURL, de-duplicated and sorted.
func (c *Client) DiscoverMatchURLs(ctx context.Context, groupURL, team string) ([]string, error) {
	if strings.TrimSpace(team) == "" {
		return nil, fmt.Errorf("discover matches: team is empty")
	}

	base, err := url.Parse(groupURL)
	if err != nil {
		return nil, &FetchError{URL: groupURL, Op: "request", Err: err}
	}

	doc, err := c.fetchDocument(ctx, groupURL)
	if err != nil {
		return nil, err
	}

	urls := MatchLinks(doc, base, team)
	c.log.Info().
		Str("group", groupURL).
		Str("team", team).
		Int("matches", len(urls)).
		Msg("discovered match urls")
	return urls, nil
}

// MatchLinks collects the team's match links from a parsed group page
func MatchLinks(doc *html.Node, base *url.URL, team string) []string {
	seen := make(map[string]struct{})
	for _, a := range findAll(doc, isElement(atom.A)) {
		href, ok := attr(a, "href")
		if !ok || !involvesTeam(href, team) {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		ref.Fragment = ""
		seen[ref.String()] = struct{}{}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func involvesTeam(href, team string) bool {
	return strings.Contains(href, "-vs-"+team) || strings.Contains(href, team+"-vs-")
}
