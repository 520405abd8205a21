package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dashboard"
	"github.com/san-kum/cellsim/internal/export"
	"github.com/san-kum/cellsim/internal/storage"
)

func runsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := app.store.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tCHEMISTRY\tCURRENT\tAMBIENT\tBACKEND\tVERDICT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%gA\t%g°C\t%s\t%s\n",
			run.ID[:8],
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Parameters.Chemistry,
			run.Parameters.ChargeCurrent,
			run.Parameters.AmbientTemperature,
			run.Backend,
			verdictLabel(run),
		)
	}

	return w.Flush()
}

func verdictLabel(run storage.RunMetadata) string {
	switch {
	case run.Failed():
		return "diverged"
	case run.Verdict != nil && run.Verdict.Safe:
		return "safe"
	case run.Verdict != nil:
		return fmt.Sprintf("unsafe (%d)", len(run.Verdict.Reasons))
	}
	return "?"
}

// loadRun returns the metadata and, for completed runs, the series.
func loadRun(id string) (*storage.RunMetadata, *battery.SeriesBundle, error) {
	meta, err := app.store.Load(id)
	if err != nil {
		return nil, nil, err
	}
	if meta.Failed() {
		return meta, nil, nil
	}
	bundle, err := app.store.LoadSeries(meta.ID)
	if err != nil {
		return nil, nil, err
	}
	return meta, bundle, nil
}

func showCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "replay a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, bundle, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return printReport(dashboard.Report{
				Params:  meta.Parameters,
				Bundle:  bundle,
				Failure: meta.Failure,
				Header:  fmt.Sprintf("run %s, %s backend, %s", meta.ID, meta.Backend, meta.Timestamp.Local().Format("2006-01-02 15:04:05")),
			})
		},
	}
	addReportFlags(cmd)
	return cmd
}

func deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.store.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := app.store.Delete(id); err != nil {
				return err
			}
			fmt.Println("deleted", id)
			return nil
		},
	}
}

// openOutput returns stdout unless a path was given.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCommand(use, short string, write func(w io.Writer, meta *storage.RunMetadata, b *battery.SeriesBundle) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [run_id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, bundle, err := loadRun(args[0])
			if err != nil {
				return err
			}
			out, err := openOutput(output)
			if err != nil {
				return err
			}
			if err := write(out, meta, bundle); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

var errNoSeries = errors.New("run diverged and has no series to export")

func exportCSVCommand() *cobra.Command {
	return exportCommand("export-csv", "export run series to CSV", func(w io.Writer, meta *storage.RunMetadata, b *battery.SeriesBundle) error {
		if b == nil {
			return errNoSeries
		}
		return storage.WriteCSV(w, b)
	})
}

func exportJSONCommand() *cobra.Command {
	return exportCommand("export-json", "export run metadata and series to JSON", export.RunToJSON)
}

func exportSVGCommand() *cobra.Command {
	return exportCommand("export-svg", "export the eight-panel grid as SVG", func(w io.Writer, meta *storage.RunMetadata, b *battery.SeriesBundle) error {
		if b == nil {
			return errNoSeries
		}
		return export.GridToSVG(w, b, fmt.Sprintf("%s  %gA  %g°C  run %s", meta.Parameters.Chemistry, meta.Parameters.ChargeCurrent, meta.Parameters.AmbientTemperature, meta.ID[:8]))
	})
}

func exportPNGCommand() *cobra.Command {
	cmd := exportCommand("export-png", "export the eight-panel grid as PNG", func(w io.Writer, meta *storage.RunMetadata, b *battery.SeriesBundle) error {
		if b == nil {
			return errNoSeries
		}
		return export.GridToPNG(w, b, export.DefaultPNGWidth, export.DefaultPNGHeight)
	})
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if output == "" {
			output = args[0] + ".png"
		}
		return nil
	}
	return cmd
}
