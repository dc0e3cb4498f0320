package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-api/internal/dto"
	"github.com/noah-isme/planner-api/internal/service"
)

var errConflictsFound = errors.New("plan has conflicts")

type checkOptions struct {
	planPath string
	icsPath  string
	term     string
	year     int
	format   string
	timezone string
	strict   bool
	verbose  bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "plancheck",
		Short:        "Check a term plan for scheduling and requisite conflicts",
		SilenceUsage: true,
	}
	root.AddCommand(newCheckCommand())
	return root
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a YAML plan file, optionally with busy times from an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.planPath, "plan", "", "path to the plan YAML file")
	flags.StringVar(&opts.icsPath, "ics", "", "optional iCalendar file with busy times")
	flags.StringVar(&opts.term, "term", "", "term name, e.g. Fall")
	flags.IntVar(&opts.year, "year", 0, "term year")
	flags.StringVar(&opts.format, "format", "table", "output format: table or json")
	flags.StringVar(&opts.timezone, "timezone", "", "timezone used to read event times (overrides the plan file)")
	flags.BoolVar(&opts.strict, "strict", false, "exit non-zero when conflicts are found")
	flags.BoolVar(&opts.verbose, "verbose", false, "log evaluation details to stderr")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("term")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, opts *checkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	plan, err := loadPlanFile(opts.planPath)
	if err != nil {
		return err
	}

	tz := opts.timezone
	if tz == "" {
		tz = plan.Timezone
	}
	loc := time.Local
	if tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return fmt.Errorf("load timezone: %w", err)
		}
	}

	logr := zap.NewNop()
	if opts.verbose {
		if logr, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logr.Sync() //nolint:errcheck
	}

	source := staticPlan{plan: plan}
	svc := service.NewConflictService(service.ConflictServiceParams{
		Plans:      source,
		Requisites: source,
		Location:   loc,
		Logger:     logr,
	})
	req := dto.EvaluateRequest{StudentID: plan.Student, Term: opts.term, Year: opts.year}

	var report *dto.ConflictReport
	if opts.icsPath != "" {
		f, err := os.Open(opts.icsPath)
		if err != nil {
			return fmt.Errorf("open calendar: %w", err)
		}
		defer f.Close()
		report, err = svc.PreviewCalendar(ctx, req, f)
		if err != nil {
			return err
		}
	} else if report, err = svc.Evaluate(ctx, req); err != nil {
		return err
	}

	if err := writeReport(out, report, opts.format); err != nil {
		return err
	}
	if opts.strict && report.HasConflicts {
		return errConflictsFound
	}
	return nil
}

func writeReport(out io.Writer, report *dto.ConflictReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if !report.HasConflicts {
		_, err := fmt.Fprintf(out, "No conflicts for %s %d\n", report.Term, report.Year)
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tTYPE\tDETAILS")
	for _, row := range service.ConflictRows(report.Conflicts) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.CourseID, row.Type, strings.TrimSpace(row.Detail))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d conflict(s) across %d course(s)\n", len(report.Conflicts), len(report.CoursesWithConflicts))
	return err
}
