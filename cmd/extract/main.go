// Command extract seeds the content store from an HTML gallery page. Each
// <figure> becomes one row: its <img> sources joined into the image field
// and its <figcaption> as the caption.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mikequentel/sheetposter/internal/app"
	"github.com/mikequentel/sheetposter/internal/caption"
	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/logging"
	"github.com/mikequentel/sheetposter/internal/model"
)

var (
	inFile     string
	outCSV     string
	baseURL    string
	appendRows bool
)

var rootCmd = &cobra.Command{
	Use:   "extract",
	Short: "Turn an HTML gallery into content rows",
	Long: `Extract reads an HTML page, takes every <figure> with at least one <img>
and a <figcaption>, and writes image_url,caption rows to a CSV file.
With --append the rows are also appended to the configured row store.

Examples:
  extract --in gallery.html --base https://example.com/gallery/
  extract --in gallery.html --out rows.csv --append`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&inFile, "in", "i", "", "HTML file to read (- for stdin)")
	rootCmd.Flags().StringVarP(&outCSV, "out", "o", "rows.csv", "Output CSV (image_url,caption)")
	rootCmd.Flags().StringVar(&baseURL, "base", "", "Base URL for relative image sources")
	rootCmd.Flags().BoolVar(&appendRows, "append", false, "Also append each row to the configured row store")
	cobra.CheckErr(rootCmd.MarkFlagRequired("in"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type seedRow struct {
	imageURLs []string
	caption   string
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	var base *url.URL
	if baseURL != "" {
		if base, err = url.Parse(baseURL); err != nil {
			return fmt.Errorf("parse --base: %w", err)
		}
	}

	in, err := open(inFile)
	if err != nil {
		return err
	}
	defer in.Close()

	rows, skipped, err := extractRows(in, base)
	if err != nil {
		return err
	}
	if err := writeCSV(outCSV, rows); err != nil {
		return fmt.Errorf("write %s: %w", outCSV, err)
	}
	log.Info().Int("rows", len(rows)).Int("skipped", skipped).Str("out", outCSV).Msg("Gallery extracted")

	if appendRows {
		return appendAll(ctx, cfg, rows)
	}
	return nil
}

func open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

var reSpace = regexp.MustCompile(`\s+`)

// extractRows returns one row per usable <figure> and the number of figures
// skipped for lacking images or a caption.
func extractRows(r io.Reader, base *url.URL) ([]seedRow, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("parse HTML: %w", err)
	}

	var (
		rows    []seedRow
		skipped int
	)
	doc.Find("figure").Each(func(i int, fig *goquery.Selection) {
		var urls []string
		fig.Find("img").Each(func(_ int, img *goquery.Selection) {
			src := strings.TrimSpace(img.AttrOr("src", ""))
			if src == "" || strings.HasPrefix(src, "data:") {
				src = strings.TrimSpace(img.AttrOr("data-src", ""))
			}
			if src == "" {
				return
			}
			if u := resolve(base, src); u != "" {
				urls = append(urls, u)
			}
		})

		text := reSpace.ReplaceAllString(strings.TrimSpace(fig.Find("figcaption").First().Text()), " ")
		text = caption.Normalize(text)

		if len(urls) == 0 || text == "" {
			log.Debug().Int("figure", i).Int("images", len(urls)).Msg("Figure skipped")
			skipped++
			return
		}
		rows = append(rows, seedRow{imageURLs: urls, caption: text})
	})
	return rows, skipped, nil
}

// resolve makes src absolute against base; unparsable sources are dropped.
// Commas are escaped because the image field is comma-delimited.
func resolve(base *url.URL, src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return strings.ReplaceAll(u.String(), ",", "%2C")
}

func writeCSV(path string, rows []seedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{model.ColumnImageURL, model.ColumnCaption}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{model.JoinImageURLs(r.imageURLs), r.caption}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func appendAll(ctx context.Context, cfg *config.Config, rows []seedRow) error {
	if missing := cfg.Credentials.MissingStore(); len(missing) > 0 {
		return &config.MissingError{Vars: missing}
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	for i, r := range rows {
		if err := a.Store.AppendRow(ctx, model.JoinImageURLs(r.imageURLs), r.caption); err != nil {
			return fmt.Errorf("append row %d of %d: %w", i+1, len(rows), err)
		}
	}
	log.Info().Int("rows", len(rows)).Str("backend", cfg.Credentials.StoreBackend).Msg("Rows appended to store")
	return nil
}
