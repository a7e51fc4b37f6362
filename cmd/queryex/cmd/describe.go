package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show detailed information about a resource",
}

var describeReportCmd = &cobra.Command{
	Use:     "report ID",
	Aliases: []string{"rp"},
	Short:   "Show a report with its parameters",
	Args:    cobra.ExactArgs(1),
	RunE:    runDescribeReport,
}

func init() {
	describeReportCmd.Flags().Bool("options", false, "Also load dropdown options for each parameter")
	describeCmd.AddCommand(describeReportCmd)
}

func runDescribeReport(cmd *cobra.Command, args []string) error {
	if _, err := strconv.Atoi(args[0]); err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}

	path := "/api/v1/reports/" + args[0]
	if withOptions, _ := cmd.Flags().GetBool("options"); withOptions {
		path += "?options=true"
	}

	data, err := mustClient().Get(cmd.Context(), path)
	if err != nil {
		return err
	}

	var resp ReportDetailResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("ID:        %d\n", resp.ID)
		fmt.Printf("Title:     %s\n", resp.Title)
		fmt.Printf("Path:      %s\n", strings.Join(resp.Path, " / "))
		fmt.Printf("Editable:  %s\n", boolToStr(resp.Editable))
		if resp.SQL != "" {
			fmt.Printf("SQL:\n  %s\n", strings.ReplaceAll(resp.SQL, "\n", "\n  "))
		}

		if len(resp.Parameters) == 0 {
			fmt.Println("\nNo parameters.")
			return nil
		}

		fmt.Println("\nParameters:")
		t := newTable("  ORDER", "NAME", "BIND", "TYPE", "MULTI", "DEFAULT", "CHOICES")
		for _, p := range resp.Parameters {
			t.AddRow("  "+strconv.Itoa(p.Order), p.Name, "@"+p.BoundName, p.Type, boolToStr(p.MultiSelect),
				ptrStr(p.DefaultValue), dash(strings.Join(p.StaticChoices, ",")))
		}
		t.Flush()

		if len(resp.Options) > 0 {
			names := make([]string, 0, len(resp.Options))
			for name := range resp.Options {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("\nOptions for %s:\n", name)
				t := newTable("  KEY", "VALUE")
				for _, o := range resp.Options[name] {
					t.AddRow("  "+o.Key, o.Value)
				}
				t.Flush()
			}
		}
	}
	return nil
}
