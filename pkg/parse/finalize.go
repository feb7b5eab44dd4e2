package parse

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/statfang/internal/observability"
	pkgobs "github.com/Sumatoshi-tech/statfang/pkg/observability"
	"github.com/Sumatoshi-tech/statfang/pkg/procpool"
	"github.com/Sumatoshi-tech/statfang/pkg/proto"
	"github.com/Sumatoshi-tech/statfang/pkg/statfile"
	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

// Output file names under the output directory.
const (
	OutputName           = "results.csv"
	OutputNameCompressed = "results.csv.lz4"
)

// missingCell fills header columns a row has no value for: the variable was
// never observed in that file.
const missingCell = "NaN"

// pathColumn leads the header and identifies the row's source file.
const pathColumn = "path"

// Summary reports the outcome of one parse run.
type Summary struct {
	// Path is the output table location, empty when zero files succeeded.
	Path string

	// Rows is the number of files that produced a table row.
	Rows int

	// Failed counts files excluded from the table.
	Failed int
}

// row is one file's consolidated output: serialized cells keyed by column
// name, plus the column order the file produced and the strategy metadata.
type row struct {
	file  string
	cells map[string]string
	order []string
	meta  map[string]string
}

// Finalize resolves every handle of the batch, consolidates the per-file
// results, and writes the output table under outputDir. Per-file failures
// never abort the run; they are logged and counted. The returned Summary
// carries an empty Path when no file succeeded.
func (s *Service) Finalize(ctx context.Context, batch *Batch, outputDir string) (Summary, error) {
	rows := make([]row, 0, len(batch.handles))
	failed := 0

	for idx, handle := range batch.handles {
		file := batch.files[idx]
		fileCtx := pkgobs.WithStatFile(ctx, file)

		resolved, err := s.resolveFile(fileCtx, file, handle, batch.plan)
		if err != nil {
			failed++

			s.logger.WarnContext(fileCtx, "file excluded from output", "file", file, "error", err)

			continue
		}

		rows = append(rows, resolved)
	}

	summary := Summary{Failed: failed, Rows: len(rows)}
	if len(rows) == 0 {
		return summary, nil
	}

	header := buildHeader(batch.plan, s.strategy, rows)

	path, err := s.writeTable(outputDir, header, rows)
	if err != nil {
		return Summary{Failed: failed}, err
	}

	summary.Path = path

	s.logger.InfoContext(ctx, "parse finalized",
		"output", path, "rows", summary.Rows, "failed", summary.Failed)

	return summary, nil
}

// resolveFile waits for one file's worker response and consolidates it into
// a row. Worker ERR lines count as a per-file parse failure.
func (s *Service) resolveFile(ctx context.Context, file string, handle *procpool.Handle, plan []planVar) (row, error) {
	start := time.Now()

	resp, err := handle.Result(ctx)

	if s.metrics != nil {
		status := observability.StatusOK
		if err != nil || len(resp.Errs) > 0 {
			status = observability.StatusError
		}

		s.metrics.RecordJob(ctx, opParse, status, time.Since(start))
	}

	if err != nil {
		return row{}, err
	}

	if len(resp.Errs) > 0 {
		return row{}, fmt.Errorf("worker reported: %s", resp.Errs[0])
	}

	resolved := consolidate(s.logger, plan, file, resp.Lines)
	resolved.meta = s.strategy.Metadata(file)

	return resolved, nil
}

// leafRef locates one worker key inside the plan.
type leafRef struct {
	varIdx int
	entry  string
}

// consolidate accumulates one file's payload lines into fresh per-variable
// instances, then balances, reduces, and serializes them. Lines whose class
// disagrees with the requested kind are logged and dropped. A variable with
// no observed lines produces no cells; the header fill marks it missing.
func consolidate(logger *slog.Logger, plan []planVar, file string, lines []proto.Line) row {
	refs := make(map[string]leafRef)

	for varIdx, pv := range plan {
		for _, l := range pv.leaves {
			refs[l.key] = leafRef{varIdx: varIdx, entry: l.entry}
		}
	}

	stats := make([]stattype.Stat, len(plan))
	observed := make([]int, len(plan))

	for _, line := range lines {
		base, entry, _ := strings.Cut(line.ID, statfile.EntryMark)

		ref, known := refs[base]
		if !known {
			continue
		}

		pv := plan[ref.varIdx]

		accept, drop := classifyLine(pv.cfg.Kind, line.Class, entry)
		if drop {
			continue
		}

		if !accept {
			logger.Warn("line kind disagrees with request, dropped",
				"file", file, "variable", pv.cfg.Name, "line_class", string(line.Class))

			continue
		}

		if stats[ref.varIdx] == nil {
			stat, err := stattype.New(pv.cfg)
			if err != nil {
				logger.Warn("variable skipped", "variable", pv.cfg.Name, "error", err)

				continue
			}

			stats[ref.varIdx] = stat
		}

		label := entry
		if label == "" {
			label = ref.entry
		}

		if err := stats[ref.varIdx].Accumulate(label, line.Value); err != nil {
			logger.Warn("value dropped", "file", file, "variable", pv.cfg.Name, "error", err)

			continue
		}

		observed[ref.varIdx]++
	}

	resolved := row{file: file, cells: make(map[string]string)}

	for varIdx, stat := range stats {
		if stat == nil || observed[varIdx] == 0 {
			continue
		}

		stat.Balance(plan[varIdx].entries)
		stat.Reduce()

		for _, col := range stat.Columns() {
			if _, dup := resolved.cells[col.Name]; !dup {
				resolved.order = append(resolved.order, col.Name)
			}

			resolved.cells[col.Name] = col.Value
		}
	}

	return resolved
}

// classifyLine checks a payload line's class against the requested kind.
// accept means accumulate; drop means ignore silently (derived summary
// lines on kinds that do not consume them); neither means a mismatch.
func classifyLine(kind stattype.Kind, class statfile.Class, entry string) (accept, drop bool) {
	if class == statfile.ClassSummary || stattype.IsSummaryLabel(entry) {
		switch kind {
		case stattype.Distribution:
			return true, false
		case stattype.Vector, stattype.Histogram:
			return false, true
		default:
			return false, false
		}
	}

	switch class {
	case statfile.ClassScalar:
		// Scalar lines also feed Vector instances assembled from a
		// scalar-family pattern.
		return kind == stattype.Scalar || kind == stattype.Vector, false
	case statfile.ClassVector:
		return kind == stattype.Vector, false
	case statfile.ClassHistogram, statfile.ClassDistribution:
		return kind == stattype.Histogram || kind == stattype.Distribution, false
	case statfile.ClassConfiguration:
		return kind == stattype.Configuration, false
	default:
		return false, false
	}
}

// buildHeader computes the output column set: the path column, the
// strategy's metadata columns, then the union of all rows' variable columns.
// Column order is seeded from the plan so the requested variable order wins;
// columns only some files produced follow in first-seen row order.
func buildHeader(plan []planVar, strategy Strategy, rows []row) []string {
	header := []string{pathColumn}
	header = append(header, strategy.Columns()...)

	seen := make(map[string]bool, len(header))
	for _, col := range header {
		seen[col] = true
	}

	for _, pv := range plan {
		names, err := stattype.ColumnNames(pv.cfg, pv.entries)
		if err != nil {
			continue
		}

		for _, name := range names {
			if seen[name] {
				continue
			}

			seen[name] = true
			header = append(header, name)
		}
	}

	for _, r := range rows {
		for _, name := range r.order {
			if seen[name] {
				continue
			}

			seen[name] = true
			header = append(header, name)
		}
	}

	return header
}

// writeTable renders the rows as CSV under outputDir, LZ4-framed when the
// service was configured to compress.
func (s *Service) writeTable(outputDir string, header []string, rows []row) (string, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := OutputName
	if s.compress {
		name = OutputNameCompressed
	}

	path := filepath.Join(outputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	var sink io.Writer = file

	var lzWriter *lz4.Writer

	if s.compress {
		lzWriter = lz4.NewWriter(file)
		sink = lzWriter
	}

	writer := csv.NewWriter(sink)

	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))

	for _, r := range rows {
		for idx, col := range header {
			record[idx] = cellValue(r, col)
		}

		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("write row for %s: %w", r.file, err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush table: %w", err)
	}

	if lzWriter != nil {
		if err := lzWriter.Close(); err != nil {
			return "", fmt.Errorf("close lz4 frame: %w", err)
		}
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close output file: %w", err)
	}

	return path, nil
}

func cellValue(r row, col string) string {
	if col == pathColumn {
		return r.file
	}

	if val, ok := r.cells[col]; ok {
		return val
	}

	if val, ok := r.meta[col]; ok {
		return val
	}

	return missingCell
}
