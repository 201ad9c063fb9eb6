package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aoideee/treekings-library/internal/catalog"
	"github.com/aoideee/treekings-library/internal/data"
)

func (c *cli) booksCmd() *cobra.Command {
	var (
		genre     string
		rating    float64
		sortTitle string
		search    string
		histogram bool
	)

	cmd := &cobra.Command{
		Use:   "books",
		Short: "Show the catalog shelves",
		Long: `Show the Featured, Popular and All Books shelves.

A rating filter keeps books whose rating rounds to that half star.

Examples:
  library books
  library books --genre Fiction --rating 4.5
  library books --search gatsby
  library books --sort title --histogram`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := catalog.Query{Genre: genre}
			if cmd.Flags().Changed("rating") {
				q.Rating = &rating
			}
			switch strings.ToLower(sortTitle) {
			case "":
			case "title":
				q.SortByTitle = true
			default:
				return fmt.Errorf("invalid --sort %q: only title is supported", sortTitle)
			}

			view, err := c.api.Catalog(cmd.Context(), q, search)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(view)
			}
			c.renderCatalog(view, histogram)
			return nil
		},
	}

	cmd.Flags().StringVar(&genre, "genre", catalog.AllGenres, "Only show this genre")
	cmd.Flags().Float64Var(&rating, "rating", 0, "Only show books with this rating, in half stars")
	cmd.Flags().StringVar(&sortTitle, "sort", "", "Sort shelves (title)")
	cmd.Flags().StringVar(&search, "search", "", "Search titles, authors and genres")
	cmd.Flags().BoolVar(&histogram, "histogram", false, "Show the rating distribution")
	return cmd
}

func (c *cli) renderCatalog(view *catalog.View, histogram bool) {
	if view.Search.Visible {
		section(c.out, fmt.Sprintf("Search results for %q", view.Search.Query))
		if len(view.Search.Books) == 0 {
			muted(c.out, "No books found.")
		} else {
			fmt.Fprintln(c.out, booksTable(view.Search.Books))
		}
	}

	shelves := []struct {
		title string
		books []*data.Book
	}{
		{"Featured Books", view.Featured},
		{"Popular Books", view.Popular},
		{"All Books", view.All},
	}
	for _, shelf := range shelves {
		section(c.out, shelf.title)
		if len(shelf.books) == 0 {
			muted(c.out, "Nothing on this shelf.")
			continue
		}
		fmt.Fprintln(c.out, booksTable(shelf.books))
	}

	if histogram {
		section(c.out, "Rating distribution")
		for _, bucket := range view.RatingDistribution {
			fmt.Fprintf(c.out, "  %.1f %s %d\n", bucket.Rating, strings.Repeat("█", bucket.Count), bucket.Count)
		}
	}
}
