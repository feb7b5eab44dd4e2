package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/statfang/internal/config"
	"github.com/Sumatoshi-tech/statfang/pkg/parse"
	"github.com/Sumatoshi-tech/statfang/pkg/pattern"
	"github.com/Sumatoshi-tech/statfang/pkg/procpool"
	"github.com/Sumatoshi-tech/statfang/pkg/scan"
	"github.com/Sumatoshi-tech/statfang/pkg/workpool"
)

// NewParseCommand creates the parse command.
func NewParseCommand(verbose, quiet *bool) *cobra.Command {
	var (
		root         string
		filePattern  string
		limit        int
		varsPath     string
		manifestPath string
		outputDir    string
		compress     bool
		strategyName string
		configPath   string
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract selected statistics into a CSV table",
		Long: `Parse extracts the variables listed in a JSON manifest from every
matching statistics file and consolidates them into one table, one row
per file. Pattern variables from a scan manifest expand back into their
concrete family members.

When no scan manifest is given, a discovery pass over the same files
runs first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runParse(cmd, parseOptions{
				root:         root,
				filePattern:  filePattern,
				limit:        limit,
				varsPath:     varsPath,
				manifestPath: manifestPath,
				outputDir:    outputDir,
				compress:     compress,
				strategyName: strategyName,
				configPath:   configPath,
				verbose:      *verbose,
				quiet:        *quiet,
			})
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", ".", "output tree root directory")
	cmd.Flags().StringVarP(&filePattern, "pattern", "p", defaultFilePattern, "statistics file name glob")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "max files to parse (0 = unlimited)")
	cmd.Flags().StringVar(&varsPath, "vars", "", "variables manifest (JSON), required")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "scan manifest to resolve patterns against")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "table output directory")
	cmd.Flags().BoolVar(&compress, "compress", false, "write the table as an LZ4 frame")
	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "row metadata strategy (simple | config-aware)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")

	_ = cmd.MarkFlagRequired("vars")

	return cmd
}

type parseOptions struct {
	root         string
	filePattern  string
	limit        int
	varsPath     string
	manifestPath string
	outputDir    string
	compress     bool
	strategyName string
	configPath   string
	verbose      bool
	quiet        bool
}

func runParse(cmd *cobra.Command, opts parseOptions) error {
	ctx := cmd.Context()
	start := time.Now()

	eng, err := newEngine(opts.configPath, opts.verbose, opts.quiet)
	if err != nil {
		return err
	}
	defer eng.close(ctx)

	variables, err := config.LoadVariables(opts.varsPath)
	if err != nil {
		return err
	}

	scanned, err := resolveScanned(ctx, eng, opts)
	if err != nil {
		return err
	}

	binary, err := eng.workerBinary()
	if err != nil {
		return err
	}

	procs, err := procpool.New(procpool.Config{
		Workers:        eng.cfg.Parse.Workers,
		Binary:         binary,
		StartTimeout:   eng.cfg.Worker.StartTimeout,
		RequestTimeout: eng.cfg.Worker.RequestTimeout,
		HealthInterval: eng.cfg.Worker.HealthInterval,
		Logger:         eng.logger,
		Metrics:        eng.metrics,
	})
	if err != nil {
		return err
	}
	defer procs.Close()

	eng.sched.SetWorkerSource(procs.LiveWorkers)

	svc := parse.NewService(parse.ServiceConfig{
		Procs:    procs,
		Strategy: buildStrategy(eng, opts.strategyName),
		Compress: opts.compress || eng.cfg.Parse.Compress,
		Logger:   eng.logger,
		Metrics:  eng.metrics,
	})

	limit := opts.limit
	if limit == 0 {
		limit = eng.cfg.Scan.FileLimit
	}

	batch, err := svc.SubmitParse(ctx, parse.Request{
		Root:      opts.root,
		Pattern:   opts.filePattern,
		FileLimit: limit,
		Variables: variables,
		Scanned:   scanned,
	})
	if err != nil {
		return err
	}

	summary, err := svc.Finalize(ctx, batch, eng.outputDir(opts.outputDir))
	if err != nil {
		return err
	}

	if !opts.quiet {
		renderParseReport(summary, time.Since(start))
	}

	return nil
}

// resolveScanned loads the discovery snapshot from the scan manifest, or
// runs an inline discovery pass over the same file set when none is given.
func resolveScanned(ctx context.Context, eng *engine, opts parseOptions) ([]scan.Variable, error) {
	if opts.manifestPath != "" {
		manifest, err := scan.ReadManifest(opts.manifestPath)
		if err != nil {
			return nil, err
		}

		return manifest.Variables, nil
	}

	pool := workpool.New[[]scan.Variable](eng.cfg.Scan.Workers)

	svc := scan.NewService(scan.ServiceConfig{
		Pool:    pool,
		Logger:  eng.logger,
		Metrics: eng.metrics,
	})

	handles, err := svc.SubmitScan(ctx, opts.root, opts.filePattern, opts.limit)
	if err != nil {
		return nil, err
	}

	results, _ := svc.Collect(ctx, handles)

	return pattern.Aggregate(scan.Aggregate(results)), nil
}

func buildStrategy(eng *engine, flagValue string) parse.Strategy {
	name := flagValue
	if name == "" {
		name = eng.cfg.Parse.Strategy
	}

	if name != config.StrategyConfigAware {
		return parse.NewSimpleStrategy()
	}

	return parse.NewConfigAwareStrategy(parse.ConfigAwareConfig{
		MetadataFile: eng.cfg.Parse.MetadataFile,
		Keys:         eng.cfg.Parse.MetadataKeys,
		Logger:       eng.logger,
	})
}

func renderParseReport(summary parse.Summary, elapsed time.Duration) {
	okColor := color.New(color.FgGreen)
	failColor := color.New(color.FgRed)

	if summary.Path == "" {
		failColor.Printf("no files parsed successfully (%d failed)\n", summary.Failed)

		return
	}

	okColor.Printf("parsed %s row(s) in %s\n",
		humanize.Comma(int64(summary.Rows)), elapsed.Round(time.Millisecond))

	if summary.Failed > 0 {
		failColor.Printf("%d file(s) excluded\n", summary.Failed)
	}

	fmt.Printf("table written to %s\n", summary.Path)
}
