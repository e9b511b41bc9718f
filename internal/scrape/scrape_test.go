package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const ribbonsPage = `<html><body>
<table class="tab">
  <tr><td>not this one</td><td>x</td><td>y</td></tr>
</table>
<table class="dextable">
  <tr><td class="fooevo">Picture</td><td class="fooevo">Name</td><td class="fooevo">Description</td></tr>
  <tr>
    <td><img src="ribbons/champion.png"></td>
    <td><a href="#">Champion</a> Ribbon</td>
    <td>Awarded for clearing the
        <b>Pokémon League</b>.</td>
  </tr>
  <tr>
    <td><img src="https://cdn.example.com/effort.png"></td>
    <td>Effort Ribbon</td>
    <td>Maxed base points.</td>
  </tr>
  <tr><td>Short row</td><td>only two</td></tr>
  <tr><td></td><td>No Image Ribbon</td><td>Mystery.</td></tr>
</table>
</body></html>`

const badgesPage = `<html><body>
<h2><span class="mw-headline" id="Indigo_League">Indigo League</span></h2>
<table class="prettytable">
  <tr><th>Badge</th><th>Info</th></tr>
  <tr>
    <td><img class="mw-file-element" src="data:image/gif;base64,R0lGOD" data-src="/images/boulder.png"></td>
    <td><b>The Boulder Badge</b> is given out at the Pewter Gym.
      Abilities: Flash outside of battle.</td>
  </tr>
  <tr>
    <td><img class="mw-file-element" src="https://static.example.com/cascade.png"></td>
    <td><span id="Cascade">Cascade Badge</span>   awarded   in Cerulean City.</td>
  </tr>
  <tr><td>only one cell</td></tr>
</table>
<h3>Orange Islands</h3>
<table class="prettytable">
  <tr><td>Header</td><td>Header</td></tr>
  <tr><td></td><td>Coral-Eye description only.</td></tr>
</table>
<h2><span class="mw-headline" id="Anime_exclusive">Anime exclusive</span></h2>
<table class="prettytable">
  <tr><th>Badge</th><th>Info</th></tr>
  <tr><td></td><td><b>Secret Badge</b> never shown.</td></tr>
</table>
</body></html>`

func parse(t *testing.T, page string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("html.Parse: %v", err)
	}
	return doc
}

func TestParseRibbons(t *testing.T) {
	got, err := ParseRibbons(parse(t, ribbonsPage))
	if err != nil {
		t.Fatalf("ParseRibbons: %v", err)
	}
	want := []Item{
		{Name: "ChampionRibbon", ImageURL: "https://www.serebii.net/games/ribbons/champion.png", Description: "Awarded for clearing the Pokémon League ."},
		{Name: "Effort Ribbon", ImageURL: "https://cdn.example.com/effort.png", Description: "Maxed base points."},
		{Name: "No Image Ribbon", ImageURL: "", Description: "Mystery."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseRibbons mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseRibbons_MissingTable(t *testing.T) {
	if _, err := ParseRibbons(parse(t, `<html><body><table class="tab"></table></body></html>`)); err == nil {
		t.Fatalf("expected error when the ribbon table is missing")
	}
}

func TestParseGymBadges(t *testing.T) {
	got := ParseGymBadges(parse(t, badgesPage))
	want := []Item{
		{Name: "Boulder Badge", ImageURL: "https://pokemon.fandom.com/images/boulder.png", Description: "is given out at the Pewter Gym."},
		{Name: "Cascade Badge", ImageURL: "https://static.example.com/cascade.png", Description: "awarded in Cerulean City."},
		{Name: "Unnamed Badge", ImageURL: "", Description: "Coral-Eye description only."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseGymBadges mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseGymBadges_AllTablesWithoutAnimeHeading(t *testing.T) {
	page := strings.Replace(badgesPage, `id="Anime_exclusive"`, `id="Other"`, 1)
	got := ParseGymBadges(parse(t, page))
	if len(got) != 4 || got[3].Name != "Secret Badge" {
		t.Fatalf("expected all tables to be read, got %+v", got)
	}
}

func TestScraper_FetchesPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ribbons", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ribbonsPage)
	})
	mux.HandleFunc("/badges", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, badgesPage)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s := New(server.Client())
	ctx := context.Background()

	ribbons, err := s.Ribbons(ctx, server.URL+"/ribbons")
	if err != nil || len(ribbons) != 3 {
		t.Fatalf("Ribbons: %d items, err=%v", len(ribbons), err)
	}
	badges, err := s.GymBadges(ctx, server.URL+"/badges")
	if err != nil || len(badges) != 3 {
		t.Fatalf("GymBadges: %d items, err=%v", len(badges), err)
	}
	if _, err := s.Ribbons(ctx, server.URL+"/gone"); err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("expected http 410 error, got %v", err)
	}
	if _, err := s.GymBadges(ctx, "://bad"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
