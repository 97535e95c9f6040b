package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hms/hms/internal/domain/reports"
	"github.com/hms/hms/internal/platform/db"
)

// Output formats for the report commands.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(format string) bool {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return true
	}
	return false
}

func encode(w io.Writer, v interface{}, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderDefinitions(w io.Writer, defs []reports.Definition, format string) error {
	if format != formatTable {
		return encode(w, defs, format)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPARAMETERS")
	for _, d := range defs {
		params := strings.Join(d.Parameters, ",")
		if params == "" {
			params = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, params)
	}
	return tw.Flush()
}

// renderReport writes report in the given format. Tables use def's column
// headings; an empty result prints the headings followed by "(no rows)".
func renderReport(w io.Writer, def *reports.Definition, report *reports.Report, format string) error {
	if format != formatTable {
		return encode(w, report, format)
	}

	fmt.Fprintf(w, "%s\n", report.ReportName)
	if len(report.Parameters) > 0 {
		for _, name := range def.Parameters {
			fmt.Fprintf(w, "  %s: %s\n", name, report.Parameters[name])
		}
	}
	fmt.Fprintf(w, "  generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(def.Columns, "\t"))
	for _, row := range report.Results {
		fmt.Fprintln(tw, strings.Join(row.Cells(), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(report.Results) == 0 {
		fmt.Fprintln(w, "(no rows)")
	} else {
		fmt.Fprintf(w, "\n%d row(s)\n", report.RowCount)
	}
	return nil
}

func renderMigrationStatus(w io.Writer, schema string, statuses []db.MigrationStatus) error {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
	}
	return tw.Flush()
}
