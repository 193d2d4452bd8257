package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/gmailsql/gmailsql/internal/frame"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query <statement>",
	Short: "Run a SELECT statement or a native API command",
	Long: `Run a query and print the result as a table (or JSON with --json).

SELECT statements are translated into Gmail API calls:

  gmailsql query "SELECT id, subject FROM messages WHERE q = 'from:alice' LIMIT 20"

Anything else is treated as a native command of the form
method(key=value, ...) against one of the supported collections:

  gmailsql query "labels()"
  gmailsql query "threads(maxResults=10, q='is:unread')"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		statement := strings.Join(args, " ")

		h, client, err := newHandler(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		var result *frame.Frame
		if isSelect(statement) {
			result, err = h.Select(cmd.Context(), statement)
		} else {
			result, err = h.NativeQuery(cmd.Context(), statement)
		}
		if err != nil {
			return err
		}

		if queryJSON {
			return outputFrameJSON(result)
		}
		return outputFrameTable(result)
	},
}

// isSelect reports whether the statement should go through the SQL
// translator rather than the native command parser.
func isSelect(statement string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(statement)), "select")
}

func outputFrameTable(f *frame.Frame) error {
	if f.NumRows() == 0 {
		fmt.Println("No rows.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(f.Columns(), "\t"))

	for i := 0; i < f.NumRows(); i++ {
		cells := make([]string, 0, len(f.Columns()))
		for _, v := range f.Values(i) {
			cells = append(cells, formatCell(v))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d row(s)\n", f.NumRows())
	return nil
}

// formatCell renders a single value for terminal output. Long values
// are truncated so message bodies don't flood the table.
func formatCell(v any) string {
	const maxCell = 80

	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		s = string(val)
	case string:
		s = val
	default:
		s = fmt.Sprint(val)
	}

	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if utf8.RuneCountInString(s) > maxCell {
		// Truncate on rune boundaries so multibyte text stays valid.
		runes := []rune(s)
		s = string(runes[:maxCell-3]) + "..."
	}
	return s
}

func outputFrameJSON(f *frame.Frame) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(f.Records())
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}
