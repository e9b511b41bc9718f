package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dexharvest/internal/flags"
	"dexharvest/internal/logx"
	"dexharvest/internal/output"
	"dexharvest/internal/scrape"
)

var (
	scrapeURL string
	scrapeOut string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape reference tables from web pages",
	Long: `Scrape reference tables that are not published as JSON.

Examples:
  dexharvest scrape ribbons
  dexharvest scrape badges --out ./data
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var scrapeRibbonsCmd = &cobra.Command{
	Use:   "ribbons",
	Short: "Scrape ribbon names, images and descriptions",
	Long: `Scrape ribbon names, images and descriptions into pokemon_ribbons.json.

Nothing is written when the page yields no rows.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		url := scrapeURLOr(scrape.DefaultRibbonsURL)
		code := runScrape(cmd.Context(), "ribbon", scrape.RibbonsFile, cmd.OutOrStdout(), cmd.ErrOrStderr(),
			func(ctx context.Context, s *scrape.Scraper) ([]scrape.Item, error) { return s.Ribbons(ctx, url) })
		if code != 0 {
			osExit(code)
		}
	},
}

var scrapeBadgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Scrape gym badge names, images and descriptions",
	Long: `Scrape gym badge names, images and descriptions into pokemon_gym_badges.json.

Tables after the "Anime exclusive" heading are skipped. Nothing is written when
the page yields no rows.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		url := scrapeURLOr(scrape.DefaultBadgesURL)
		code := runScrape(cmd.Context(), "gym badge", scrape.BadgesFile, cmd.OutOrStdout(), cmd.ErrOrStderr(),
			func(ctx context.Context, s *scrape.Scraper) ([]scrape.Item, error) { return s.GymBadges(ctx, url) })
		if code != 0 {
			osExit(code)
		}
	},
}

func scrapeURLOr(def string) string {
	if scrapeURL != "" {
		return scrapeURL
	}
	return def
}

func runScrape(ctx context.Context, what, file string, stdout, stderr io.Writer, run func(context.Context, *scrape.Scraper) ([]scrape.Item, error)) int {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logx.New(stderr, verbose)

	items, err := run(ctx, scrape.New(nil))
	if err != nil {
		log.Errorf("%v", err)
		return 3
	}
	if len(items) == 0 {
		fmt.Fprintf(stdout, "No %s data was scraped.\n", what)
		return 0
	}

	store, err := output.OpenStore(ctx, scrapeOut)
	if err != nil {
		log.Errorf("%v", err)
		return 3
	}
	defer store.Close()
	if err := store.Ensure(ctx); err != nil {
		log.Errorf("%v", err)
		return 3
	}
	if err := output.WriteJSON(ctx, store, file, items); err != nil {
		log.Errorf("%v", err)
		return 3
	}
	fmt.Fprintf(stdout, "Saved %d %s entries to %s\n", len(items), what, file)
	return 0
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.AddCommand(scrapeRibbonsCmd, scrapeBadgesCmd)
	scrapeCmd.PersistentFlags().StringVar(&scrapeURL, flags.FlagURL, "", "Page URL to scrape (default: the well-known source page)")
	scrapeCmd.PersistentFlags().StringVar(&scrapeOut, flags.FlagOut, ".", "Output directory or bucket URL")
}
