package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aoideee/treekings-library/internal/apiclient"
	"github.com/aoideee/treekings-library/internal/catalog"
	"github.com/aoideee/treekings-library/internal/circulation"
	"github.com/aoideee/treekings-library/internal/data"
)

// libraryAPI is the part of the API the commands use.
type libraryAPI interface {
	circulation.CatalogService
	Catalog(ctx context.Context, q catalog.Query, search string) (*catalog.View, error)
	ActiveLoans(ctx context.Context, studentID string) ([]circulation.ActiveLoan, error)
	Login(ctx context.Context, email, password string) (string, *data.User, error)
	ListStudents(ctx context.Context, page int) ([]*data.Student, data.Metadata, error)
	Stats(ctx context.Context) (*circulation.Stats, error)
}

func newClient(baseURL, token string) libraryAPI {
	return apiclient.New(baseURL, apiclient.WithToken(token))
}

// cli holds the global flags and the streams every command writes to.
type cli struct {
	apiURL    string
	token     string
	studentID string
	jsonOut   bool

	in     io.Reader
	out    io.Writer
	newAPI func(baseURL, token string) libraryAPI
	api    libraryAPI
}

func newRootCmd(in io.Reader, out io.Writer, newAPI func(baseURL, token string) libraryAPI) *cobra.Command {
	c := &cli{in: in, out: out, newAPI: newAPI}

	root := &cobra.Command{
		Use:   "library",
		Short: "Tree Kings Library from the terminal",
		Long: `Browse the Tree Kings Library catalog, borrow up to five books in one
checkout and return them.

Examples:
  library books --genre Fiction --sort title
  library borrow --student 2023-0001 3 7 9
  library return --student 2023-0001 7`,
		Version:       "1.2.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.api = c.newAPI(c.apiURL, c.token)
		},
	}

	root.SetIn(in)
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api", envOr("LIBRARY_API", "http://localhost:4000"), "Library API base URL")
	flags.StringVar(&c.token, "token", os.Getenv("LIBRARY_TOKEN"), "Bearer token from `library login`")
	flags.StringVar(&c.studentID, "student", os.Getenv("LIBRARY_STUDENT"), "Student id to act for")
	flags.BoolVar(&c.jsonOut, "json", false, "Output in JSON format")

	root.AddCommand(
		c.booksCmd(),
		c.borrowCmd(),
		c.returnCmd(),
		c.loansCmd(),
		c.loginCmd(),
		c.studentsCmd(),
		c.statsCmd(),
	)
	return root
}

// printJSON writes v as indented JSON.
func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) requireStudent() error {
	if c.studentID == "" {
		return errStudentRequired
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
