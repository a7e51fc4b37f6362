package cmd

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "List resources",
}

var getReportsCmd = &cobra.Command{
	Use:     "reports",
	Aliases: []string{"report", "rp"},
	Short:   "List the reports you are allowed to run",
	RunE:    runGetReports,
}

var getMenuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Show the report menu tree",
	RunE:  runGetMenu,
}

func init() {
	getReportsCmd.Flags().String("prefix", "", "Only reports under this menu path (segments separated by ';')")
	getReportsCmd.Flags().String("sort", "", "Sort field, prefix with '-' for descending (id, title, path)")
	getReportsCmd.Flags().Int("page", 1, "Page number")
	getReportsCmd.Flags().Int("per-page", 20, "Items per page")

	getMenuCmd.Flags().String("prefix", "", "Only the subtree under this menu path")

	getCmd.AddCommand(getReportsCmd)
	getCmd.AddCommand(getMenuCmd)
}

func runGetReports(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := url.Values{}
	if v, _ := cmd.Flags().GetString("prefix"); v != "" {
		params.Set("prefix", v)
	}
	if v, _ := cmd.Flags().GetString("sort"); v != "" {
		params.Set("sort", v)
	}
	if v, _ := cmd.Flags().GetInt("page"); v > 0 {
		params.Set("page", strconv.Itoa(v))
	}
	if v, _ := cmd.Flags().GetInt("per-page"); v > 0 {
		params.Set("per_page", strconv.Itoa(v))
	}

	path := "/api/v1/reports"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	data, err := client.Get(cmd.Context(), path)
	if err != nil {
		return err
	}

	var resp ReportListResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	case outputWide:
		t := newTable("ID", "TITLE", "PATH", "PARAMETERS", "EDITABLE")
		for _, r := range resp.Data {
			t.AddRow(strconv.Itoa(r.ID), r.Title, strings.Join(r.Path, " / "), dash(strings.Join(r.ParameterNames, ", ")), boolToStr(r.Editable))
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	default:
		t := newTable("ID", "TITLE", "PATH")
		for _, r := range resp.Data {
			t.AddRow(strconv.Itoa(r.ID), truncate(r.Title, 48), truncate(strings.Join(r.Path, " / "), 48))
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	}
	return nil
}

func runGetMenu(cmd *cobra.Command, args []string) error {
	client := mustClient()

	path := "/api/v1/menu"
	if v, _ := cmd.Flags().GetString("prefix"); v != "" {
		path += "?" + url.Values{"prefix": {v}}.Encode()
	}

	data, err := client.Get(cmd.Context(), path)
	if err != nil {
		return err
	}

	var resp MenuResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		if len(resp.Items) == 0 {
			fmt.Println("No reports found.")
			return nil
		}
		printMenuTree(os.Stdout, resp.Items, "")
	}
	return nil
}

// printMenuTree writes the menu as an indented tree. Leaves show the report
// id in brackets.
func printMenuTree(w io.Writer, nodes []*MenuNode, indent string) {
	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		label := n.Name
		if n.ReportID != nil {
			label = fmt.Sprintf("%s [%d]", n.Name, *n.ReportID)
		}
		fmt.Fprintf(w, "%s%s%s\n", indent, branch, label)
		printMenuTree(w, n.Children, indent+next)
	}
}
