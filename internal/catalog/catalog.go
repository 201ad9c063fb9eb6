// Package catalog turns the book list into the views shown on the student
// dashboard: free-text search, genre and rating filters, the optional A–Z
// sort, the featured/popular/all sections and the rating histogram.
//
// Everything here is a pure function of its inputs. Books are never
// modified; results share the *data.Book pointers of the input slice.
package catalog

import (
	"math"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/aoideee/treekings-library/internal/data"
)

// AllGenres is the genre filter value that lets every book through.
const AllGenres = "all"

// Query is the filter state of the dashboard.
type Query struct {
	Genre string // "" or AllGenres matches every genre
	// Rating, when set, keeps books whose rating rounded to the nearest
	// half star equals *Rating exactly.
	Rating      *float64
	SortByTitle bool
}

// SearchResult is the search panel. It is hidden when the query is blank.
type SearchResult struct {
	Query   string       `json:"query"`
	Visible bool         `json:"visible"`
	Books   []*data.Book `json:"books"`
}

// Search returns the books whose title, author or genre contains q,
// ignoring case. A blank q yields a hidden panel with no books, not the
// whole catalog.
func Search(books []*data.Book, q string) SearchResult {
	if strings.TrimSpace(q) == "" {
		return SearchResult{Query: q, Books: []*data.Book{}}
	}

	needle := strings.ToLower(q)
	matches := []*data.Book{}
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Author), needle) ||
			strings.Contains(strings.ToLower(b.Genre), needle) {
			matches = append(matches, b)
		}
	}
	return SearchResult{Query: q, Visible: true, Books: matches}
}

// RoundRating rounds r to the nearest half star.
func RoundRating(r float64) float64 {
	return math.Round(r*2) / 2
}

// Filter applies the genre and rating filters of q, keeping catalog order.
func Filter(books []*data.Book, q Query) []*data.Book {
	var want float64
	if q.Rating != nil {
		want = RoundRating(*q.Rating)
	}

	out := []*data.Book{}
	for _, b := range books {
		if q.Genre != "" && q.Genre != AllGenres && b.Genre != q.Genre {
			continue
		}
		if q.Rating != nil && RoundRating(b.Rating) != want {
			continue
		}
		out = append(out, b)
	}
	return out
}

// SortByTitle returns a copy of books ordered alphabetically by title using
// English collation. Equal titles keep their catalog order.
func SortByTitle(books []*data.Book) []*data.Book {
	// A Collator keeps per-call buffers, so each sort gets its own.
	coll := collate.New(language.English)
	sorted := slices.Clone(books)
	slices.SortStableFunc(sorted, func(a, b *data.Book) int {
		return coll.CompareString(a.Title, b.Title)
	})
	return sorted
}

// Sections splits the catalog for the three dashboard shelves.
type Sections struct {
	Featured []*data.Book `json:"featured"`
	Popular  []*data.Book `json:"popular"`
	All      []*data.Book `json:"all"`
}

// Group puts every book into exactly one section by its category. Books
// with an unknown category land in All.
func Group(books []*data.Book) Sections {
	s := Sections{Featured: []*data.Book{}, Popular: []*data.Book{}, All: []*data.Book{}}
	for _, b := range books {
		switch b.Category {
		case data.CategoryFeatured:
			s.Featured = append(s.Featured, b)
		case data.CategoryPopular:
			s.Popular = append(s.Popular, b)
		default:
			s.All = append(s.All, b)
		}
	}
	return s
}

// RatingBucket counts the books whose rounded rating equals Rating.
type RatingBucket struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

// RatingDistribution returns the histogram from 5.0 down to 1.0 in half
// star steps. Books rounding below one star are not counted.
func RatingDistribution(books []*data.Book) []RatingBucket {
	buckets := make([]RatingBucket, 0, 9)
	index := make(map[float64]int, 9)
	for r := 5.0; r >= 1.0; r -= 0.5 {
		index[r] = len(buckets)
		buckets = append(buckets, RatingBucket{Rating: r})
	}
	for _, b := range books {
		if i, ok := index[RoundRating(b.Rating)]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

// View is everything the dashboard renders from one catalog snapshot.
type View struct {
	Sections
	Search             SearchResult   `json:"search"`
	RatingDistribution []RatingBucket `json:"rating_distribution"`
}

// Build filters, optionally sorts and groups books for q, runs the search
// over the whole catalog and computes the histogram.
func Build(books []*data.Book, q Query, search string) View {
	shown := Filter(books, q)
	if q.SortByTitle {
		shown = SortByTitle(shown)
	}
	return View{
		Sections:           Group(shown),
		Search:             Search(books, search),
		RatingDistribution: RatingDistribution(books),
	}
}
