package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Values accepted by -o.
const (
	outputJSON = "json"
	outputYAML = "yaml"
	outputWide = "wide"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode JSON: %v\n", err)
	}
}

func printYAML(v any) {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode YAML: %v\n", err)
	}
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// tableWriter aligns tab-separated rows into columns.
type tableWriter struct {
	tw *tabwriter.Writer
}

func newTable(headers ...string) *tableWriter { return newTableTo(os.Stdout, headers...) }

func newTableTo(out io.Writer, headers ...string) *tableWriter {
	t := &tableWriter{tw: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)}
	t.AddRow(headers...)
	return t
}

func (t *tableWriter) AddRow(cells ...string) {
	fmt.Fprintln(t.tw, strings.Join(cells, "\t"))
}

func (t *tableWriter) Flush() { _ = t.tw.Flush() }

func printPagination(total int64, page, perPage, totalPages int) {
	if total == 0 {
		fmt.Println("No reports found.")
		return
	}
	first := (page-1)*perPage + 1
	last := min(int64(page*perPage), total)
	fmt.Printf("\nShowing %d-%d of %d (page %d/%d)\n", first, last, total, page, totalPages)
}

func boolToStr(b bool) string { return strconv.FormatBool(b) }

func ptrStr(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// shortTime drops fractional seconds and zone from an RFC 3339 timestamp.
func shortTime(ts string) string {
	if len(ts) > 19 {
		return ts[:19]
	}
	return ts
}

// cellString renders one result cell for table output.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
