package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/statfang/pkg/pattern"
	"github.com/Sumatoshi-tech/statfang/pkg/scan"
	"github.com/Sumatoshi-tech/statfang/pkg/workpool"
)

// defaultFilePattern matches the simulator's per-run statistics dump.
const defaultFilePattern = "stats.txt"

// defaultManifestName is the scan manifest written under the root.
const defaultManifestName = "statfang-scan.yaml"

// scanTableLimit caps the variables printed to the terminal; the manifest
// always carries the full list.
const scanTableLimit = 40

// NewScanCommand creates the scan command.
func NewScanCommand(verbose, quiet *bool) *cobra.Command {
	var (
		root        string
		filePattern string
		limit       int
		manifestOut string
		noPatterns  bool
		configPath  string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover which statistics exist across the output files",
		Long: `Scan walks the output tree, reads every matching statistics file, and
writes a manifest of the discovered variables. Mechanically-indexed
families (cpu0, cpu1, ...) are consolidated into one pattern variable
unless --no-patterns is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, scanOptions{
				root:        root,
				filePattern: filePattern,
				limit:       limit,
				manifestOut: manifestOut,
				noPatterns:  noPatterns,
				configPath:  configPath,
				verbose:     *verbose,
				quiet:       *quiet,
			})
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", ".", "output tree root directory")
	cmd.Flags().StringVarP(&filePattern, "pattern", "p", defaultFilePattern, "statistics file name glob")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "max files to sample (0 = unlimited)")
	cmd.Flags().StringVarP(&manifestOut, "output", "o", "", "manifest path (default <root>/"+defaultManifestName+")")
	cmd.Flags().BoolVar(&noPatterns, "no-patterns", false, "skip pattern consolidation")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")

	return cmd
}

type scanOptions struct {
	root        string
	filePattern string
	limit       int
	manifestOut string
	noPatterns  bool
	configPath  string
	verbose     bool
	quiet       bool
}

func runScan(cmd *cobra.Command, opts scanOptions) error {
	ctx := cmd.Context()
	start := time.Now()

	eng, err := newEngine(opts.configPath, opts.verbose, opts.quiet)
	if err != nil {
		return err
	}
	defer eng.close(ctx)

	limit := opts.limit
	if limit == 0 {
		limit = eng.cfg.Scan.FileLimit
	}

	pool := workpool.New[[]scan.Variable](eng.cfg.Scan.Workers)

	svc := scan.NewService(scan.ServiceConfig{
		Pool:    pool,
		Logger:  eng.logger,
		Metrics: eng.metrics,
	})

	handles, err := svc.SubmitScan(ctx, opts.root, opts.filePattern, limit)
	if err != nil {
		return err
	}

	results, failed := svc.Collect(ctx, handles)

	variables := scan.Aggregate(results)
	if !opts.noPatterns {
		variables = pattern.Aggregate(variables)
	}

	manifestPath := opts.manifestOut
	if manifestPath == "" {
		manifestPath = filepath.Join(opts.root, defaultManifestName)
	}

	manifest := scan.Manifest{
		Root:      opts.root,
		Pattern:   opts.filePattern,
		CreatedAt: time.Now().UTC(),
		Failed:    failed,
		Variables: variables,
	}

	if err := scan.WriteManifest(manifestPath, manifest); err != nil {
		return err
	}

	if !opts.quiet {
		renderScanReport(variables, len(results), failed, manifestPath, time.Since(start))
	}

	return nil
}

func renderScanReport(variables []scan.Variable, files, failed int, manifestPath string, elapsed time.Duration) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"variable", "type", "entries", "indices"})

	for idx, variable := range variables {
		if idx == scanTableLimit {
			tbl.AppendRow(table.Row{fmt.Sprintf("... %d more", len(variables)-scanTableLimit), "", "", ""})

			break
		}

		indices := ""
		if variable.IsPattern() {
			indices = strings.Join(variable.PatternIndices, ",")
		}

		tbl.AppendRow(table.Row{variable.Name, string(variable.Kind), len(variable.Entries), indices})
	}

	tbl.Render()

	okColor := color.New(color.FgGreen)
	failColor := color.New(color.FgRed)

	okColor.Printf("scanned %d file(s), %s variable(s) in %s\n",
		files, humanize.Comma(int64(len(variables))), elapsed.Round(time.Millisecond))

	if failed > 0 {
		failColor.Printf("%d file(s) skipped\n", failed)
	}

	fmt.Printf("manifest written to %s\n", manifestPath)
}
