// Package scrape extracts ribbon and gym badge reference tables from HTML pages.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultRibbonsURL = "https://www.serebii.net/games/ribbons.shtml"
	DefaultBadgesURL  = "https://pokemon.fandom.com/wiki/List_of_Gym_Badges"

	RibbonsFile = "pokemon_ribbons.json"
	BadgesFile  = "pokemon_gym_badges.json"

	ribbonImageBase = "https://www.serebii.net/games/"
	badgeImageBase  = "https://pokemon.fandom.com"
)

// Item is one scraped table row.
type Item struct {
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}

type Scraper struct {
	client *http.Client
}

// New returns a Scraper using client (http.DefaultClient if nil).
func New(client *http.Client) *Scraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &Scraper{client: client}
}

func (s *Scraper) fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", url, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("scrape %s: http %d %s", url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: parse html: %w", url, err)
	}
	return doc, nil
}

// Ribbons scrapes the first dextable on the page at url.
func (s *Scraper) Ribbons(ctx context.Context, url string) ([]Item, error) {
	doc, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseRibbons(doc)
}

// GymBadges scrapes the league badge tables on the page at url.
func (s *Scraper) GymBadges(ctx context.Context, url string) ([]Item, error) {
	doc, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseGymBadges(doc), nil
}

// ParseRibbons reads rows of image, name and description cells from the first
// table with class dextable. The header row is skipped.
func ParseRibbons(doc *html.Node) ([]Item, error) {
	table := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClass(n, "dextable")
	})
	if table == nil {
		return nil, fmt.Errorf("ribbon table not found")
	}

	var items []Item
	for _, row := range skipHeader(rows(table)) {
		cells := cellsOf(row)
		if len(cells) < 3 {
			continue
		}
		var image string
		if img := findFirst(cells[0], isElement(atom.Img)); img != nil {
			image = absolute(attr(img, "src"), ribbonImageBase)
		}
		items = append(items, Item{
			Name:        text(cells[1], ""),
			ImageURL:    image,
			Description: text(cells[2], " "),
		})
	}
	return items, nil
}

// ParseGymBadges reads prettytable tables that appear before the
// Anime_exclusive heading (all of them when the heading is absent).
func ParseGymBadges(doc *html.Node) []Item {
	var items []Item
	for _, table := range badgeTables(doc) {
		for _, row := range skipHeader(rows(table)) {
			cells := cellsOf(row)
			if len(cells) < 2 {
				continue
			}
			items = append(items, parseBadge(cells[0], cells[1]))
		}
	}
	return items
}

func parseBadge(imageCell, info *html.Node) Item {
	var image string
	img := findFirst(imageCell, func(n *html.Node) bool {
		return n.DataAtom == atom.Img && hasClass(n, "mw-file-element")
	})
	if img != nil {
		image = attr(img, "data-src")
		if image == "" {
			image = attr(img, "src")
		}
		image = absolute(image, badgeImageBase)
	}

	name := "Unnamed Badge"
	if b := findFirst(info, isElement(atom.B)); b != nil {
		name = strings.TrimPrefix(text(b, ""), "The ")
	} else if span := findFirst(info, func(n *html.Node) bool {
		return n.DataAtom == atom.Span && attr(n, "id") != ""
	}); span != nil {
		name = strings.TrimPrefix(text(span, ""), "The ")
	}

	full := text(info, " ")
	desc := full
	switch {
	case strings.HasPrefix(full, "The "+name):
		desc = strings.TrimSpace(strings.Replace(full, "The "+name, "", 1))
	case name != "":
		desc = strings.TrimSpace(strings.Replace(full, name, "", 1))
	}
	if before, _, ok := strings.Cut(desc, "Abilities:"); ok {
		desc = before
	}
	return Item{
		Name:        name,
		ImageURL:    image,
		Description: strings.Join(strings.Fields(desc), " "),
	}
}

func badgeTables(doc *html.Node) []*html.Node {
	var tables []*html.Node
	stopped := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if stopped {
			return
		}
		if n.DataAtom == atom.H2 && isAnimeExclusive(n) {
			stopped = true
			return
		}
		if n.DataAtom == atom.Table && hasClass(n, "prettytable") {
			tables = append(tables, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables
}

// isAnimeExclusive matches both <h2 id=...> and MediaWiki's <h2><span id=...>.
func isAnimeExclusive(h2 *html.Node) bool {
	return findFirst(h2, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == "Anime_exclusive"
	}) != nil
}

func rows(table *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.DataAtom {
			case atom.Tr:
				out = append(out, c)
			case atom.Table:
				// nested tables keep their own rows
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return out
}

func skipHeader(rows []*html.Node) []*html.Node {
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}

func cellsOf(row *html.Node) []*html.Node {
	var out []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Td {
			out = append(out, c)
		}
	}
	return out
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a }
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// text joins the trimmed, non-empty text nodes under n with sep.
func text(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

func absolute(ref, base string) string {
	if ref == "" || strings.HasPrefix(ref, "http") {
		return ref
	}
	return base + ref
}
