package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/enipaddr/internal/config"
	"firestige.xyz/enipaddr/internal/inspect"
	"firestige.xyz/enipaddr/internal/metrics"
)

// errInvalidFound is returned by inspect --strict when a capture carries an
// invalid socket address.
var errInvalidFound = errors.New("invalid socket addresses found")

var inspectCmd = &cobra.Command{
	Use:   "inspect [file...]",
	Short: "Scan captures for EtherNet/IP socket addresses",
	Long: `Scan pcap or pcapng captures for encapsulation traffic on the configured
ports and report every socket address found in SockAddr Info Items and
ListIdentity replies. Invalid items are logged as warnings.

Examples:
  enipaddr inspect -f plant.pcapng
  enipaddr inspect -f a.pcap -f b.pcap -o json --strict
  enipaddr inspect -f plant.pcap --metrics-file /var/lib/node_exporter/enipaddr.prom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files := append(append([]string(nil), inspectFiles...), args...)
		if len(files) == 0 {
			return errors.New("no capture files given")
		}
		ic := cfg.Inspect
		if inspectWorkers > 0 {
			ic.Workers = inspectWorkers
		}
		return runInspect(cmd.Context(), ic, files, inspectOpts, os.Stdout)
	},
}

// inspectOptions are the output settings of the inspect command.
type inspectOptions struct {
	Format      string // yaml or json
	Strict      bool
	MetricsFile string // Prometheus textfile, "" to skip
}

var (
	inspectFiles   []string
	inspectWorkers int
	inspectOpts    inspectOptions
)

func init() {
	inspectCmd.Flags().StringSliceVarP(&inspectFiles, "file", "f", nil, "capture file (repeatable)")
	inspectCmd.Flags().StringVarP(&inspectOpts.Format, "output", "o", "yaml", "report format: yaml or json")
	inspectCmd.Flags().BoolVar(&inspectOpts.Strict, "strict", false, "fail when an invalid socket address is found")
	inspectCmd.Flags().StringVar(&inspectOpts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	inspectCmd.Flags().IntVar(&inspectWorkers, "workers", 0, "files scanned in parallel (overrides inspect.workers)")
}

func runInspect(ctx context.Context, ic config.InspectConfig, files []string, opts inspectOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Format != "yaml" && opts.Format != "json" {
		return fmt.Errorf("unsupported output format %q (must be yaml or json)", opts.Format)
	}

	// A failed scan still yields the files finished before it.
	report, scanErr := inspect.ScanFiles(ctx, ic, slog.Default(), files)
	if err := writeReport(w, report, opts.Format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if scanErr != nil {
		return scanErr
	}

	if opts.MetricsFile != "" {
		m := metrics.NewInspect()
		m.Observe(report)
		if err := m.WriteTextfile(opts.MetricsFile); err != nil {
			return err
		}
	}

	if opts.Strict && report.HasInvalid() {
		return fmt.Errorf("%w: %d", errInvalidFound, report.Counters.Invalid)
	}
	return nil
}

func writeReport(w io.Writer, report inspect.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}
