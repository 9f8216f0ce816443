package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hslookup/internal/config"
	"hslookup/internal/lookup"
	"hslookup/internal/models"
	"hslookup/internal/store"
)

var (
	searchChapter string
	searchLimit   int
	showCopy      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the lookup table from the terminal",
	Long: `Prints the records matching a free-text query, using the same rules
as the lookup screen: codes match as substrings, descriptions and chapter
names case-insensitively. Without a query, --chapter lists one chapter.`,
	Example: `  hslookup search horses
  hslookup search 0101.21
  hslookup search --chapter 84 --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var showCmd = &cobra.Command{
	Use:   "show <code>",
	Short: "Print every attribute of one HS10 code",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	searchCmd.Flags().StringVar(&searchChapter, "chapter", "", "restrict to one chapter (ignored with a query)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum rows to print (default PAGE_SIZE)")
	showCmd.Flags().BoolVar(&showCopy, "copy", false, "print the copy-all text instead of the attribute list")
}

func runSearch(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	paging := cfg.Paging()
	if searchLimit > 0 {
		paging.PageSize = searchLimit
	}
	state := lookup.Initial(paging)
	if searchChapter != "" {
		state = state.FilterByChapter(searchChapter, paging)
	}
	if len(args) == 1 {
		state = state.Search(args[0], paging)
	}

	view := lookup.Evaluate(snap.Collection, state)
	return printPage(cmd.OutOrStdout(), view.Page)
}

func printPage(w io.Writer, page lookup.Page) error {
	if page.Empty() {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}

	tbl := newTable("HS10", "CHAPTER", "DESCRIPTION", "GENERAL RATE")
	for _, row := range page.Rows {
		r := row.Record
		tbl.addRow(r.FormattedCode, r.ChapterNumber, r.DescriptionShort, orNA(r.GeneralRate))
	}
	if err := tbl.write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nShowing %s of %s\n", humanize.Comma(int64(page.Visible)), humanize.Comma(int64(page.Total)))
	return err
}

func runShow(cmd *cobra.Command, args []string) error {
	code := strings.ReplaceAll(args[0], ".", "")
	r, err := findRecord(cmd.Context(), code)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showCopy {
		_, err := fmt.Fprintln(out, r.CopyAllText())
		return err
	}
	return printRecord(out, r)
}

// findRecord looks code up in the configured source. The SQL store is
// queried directly; the other sources are loaded in full.
func findRecord(ctx context.Context, code string) (*models.Record, error) {
	if cfg.DataSource == config.SourceDB {
		db, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		r, err := store.NewRecordStore(db).FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("%w: %s", lookup.ErrNotFound, code)
		}
		return r, nil
	}

	snap, err := loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Collection.Find(code)
}

func printRecord(w io.Writer, r *models.Record) error {
	tbl := newTable()
	fields := []struct{ label, value string }{
		{"HS10", r.FormattedCode},
		{"Description", r.DescriptionShort},
		{"Raw", r.DescriptionRaw},
		{"Path", strings.Join(r.Breadcrumb(), " / ")},
		{"Section", r.SectionNumber + ": " + r.SectionName},
		{"Chapter", r.ChapterNumber + " - " + r.ChapterName},
		{"General rate", orNA(r.GeneralRate)},
		{"Special rate", orNA(r.SpecialRate)},
		{"Other rate", orNA(r.OtherRate)},
		{"Units", orNA(r.Units)},
		{"HS2/4/6/8", strings.Join([]string{r.HS2, r.HS4, r.HS6, r.HS8}, " ")},
	}
	for _, f := range fields {
		tbl.addRow(f.label, f.value)
	}
	return tbl.write(w)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
