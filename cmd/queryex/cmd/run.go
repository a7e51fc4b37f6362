package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a resource",
}

var runReportCmd = &cobra.Command{
	Use:   "report ID",
	Short: "Execute a report and print the result",
	Long: `Execute a report and print the result.

Parameters are given as name=value. Repeat --param to pass several values to a
multi-select parameter, or separate them with commas.

  queryex run report 12 --param "Fecha Desde=2024-01-01" --param Cliente=C1,C2`,
	Args: cobra.ExactArgs(1),
	RunE: runRunReport,
}

func init() {
	runReportCmd.Flags().StringArrayP("param", "p", nil, "Parameter as name=value (repeatable)")
	runReportCmd.Flags().Int("max-width", 40, "Maximum column width in table output")
	runCmd.AddCommand(runReportCmd)
}

func runRunReport(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid report id %q", args[0])
	}

	raw, _ := cmd.Flags().GetStringArray("param")
	reqArgs, err := parseParams(raw)
	if err != nil {
		return err
	}

	data, err := mustClient().Post(cmd.Context(), fmt.Sprintf("/api/v1/reports/%d/execute", id), ExecuteRequest{Args: reqArgs})
	if err != nil {
		return err
	}

	var resp ExecuteResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		maxWidth, _ := cmd.Flags().GetInt("max-width")
		if len(resp.Columns) == 0 {
			fmt.Println("The report returned no columns.")
			return nil
		}
		headers := make([]string, len(resp.Columns))
		for i, c := range resp.Columns {
			headers[i] = strings.ToUpper(c.Name)
		}
		t := newTable(headers...)
		for _, row := range resp.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = truncate(cellString(v), maxWidth)
			}
			t.AddRow(cells...)
		}
		t.Flush()

		fmt.Printf("\n%d rows", resp.RowCount)
		if resp.Truncated {
			fmt.Print(" (truncated)")
		}
		fmt.Println()
	}
	return nil
}

// parseParams turns name=value pairs into request arguments. Repeated names
// are merged into one multi-value argument. The value is sent as typed; the
// server splits comma lists for multi-select parameters.
func parseParams(raw []string) ([]Arg, error) {
	var out []Arg
	index := make(map[string]int)

	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", kv)
		}

		i, seen := index[name]
		if !seen {
			v := value
			index[name] = len(out)
			out = append(out, Arg{Name: name, Value: &v})
			continue
		}

		a := &out[i]
		if a.Value != nil {
			a.Values = append(a.Values, *a.Value)
			a.Value = nil
		}
		a.Values = append(a.Values, value)
	}
	return out, nil
}
