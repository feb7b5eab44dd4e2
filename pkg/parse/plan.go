// Package parse turns a list of requested statistics into per-file
// extraction jobs on the persistent worker pool, collects the per-file
// results, and consolidates them into one row-oriented CSV table.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/statfang/pkg/pattern"
	"github.com/Sumatoshi-tech/statfang/pkg/scan"
	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

// Request describes one parse run.
type Request struct {
	// Root is the directory holding the statistics files.
	Root string

	// Pattern is the file-name glob, e.g. "stats.txt".
	Pattern string

	// FileLimit caps the number of files; zero means unlimited.
	FileLimit int

	// Variables are the requested statistic descriptors.
	Variables []stattype.Config

	// Scanned is the merged discovery snapshot used to resolve patterns
	// and entry sets. It is read, never mutated.
	Scanned []scan.Variable
}

// leaf maps one worker key to its output variable. For leaves expanded from
// a scalar-family pattern, entry carries the index token the leaf's value
// accumulates under; it is empty when payload lines name their own entries.
type leaf struct {
	key   string
	entry string
}

// planVar is one output variable of the table: the effective descriptor,
// the entry set used for balancing, and the worker keys feeding it.
type planVar struct {
	cfg     stattype.Config
	entries []string
	leaves  []leaf
}

// buildPlan resolves the requested variables against the discovery snapshot:
// pattern requests expand into concrete leaves, regex requests fan out over
// every matching scanned variable, duplicates and unresolvable patterns
// fail the whole request before any work is submitted.
func buildPlan(req Request) ([]planVar, error) {
	if len(req.Variables) == 0 {
		return nil, ErrNoVariables
	}

	byName := make(map[string]scan.Variable, len(req.Scanned))
	for _, scanned := range req.Scanned {
		byName[scanned.Name] = scanned
	}

	var plan []planVar

	seen := make(map[string]bool, len(req.Variables))

	for _, cfg := range req.Variables {
		resolved, err := resolveVariable(cfg, req.Scanned, byName)
		if err != nil {
			return nil, err
		}

		for _, pv := range resolved {
			if seen[pv.cfg.Name] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateVariable, pv.cfg.Name)
			}

			seen[pv.cfg.Name] = true
			plan = append(plan, pv)
		}
	}

	return plan, nil
}

func resolveVariable(cfg stattype.Config, scanned []scan.Variable, byName map[string]scan.Variable) ([]planVar, error) {
	if cfg.IsRegex {
		return resolveRegex(cfg, scanned)
	}

	if sv, ok := byName[cfg.Name]; ok {
		return []planVar{planFromScanned(cfg, sv)}, nil
	}

	// A placeholder in an unscanned name is a caller-configuration error,
	// not a runtime fault.
	if strings.Contains(cfg.Name, pattern.Placeholder) {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedPattern, cfg.Name)
	}

	return []planVar{{
		cfg:    cfg,
		leaves: []leaf{{key: cfg.Name}},
	}}, nil
}

// resolveRegex fans one regex request out over every scanned variable whose
// name matches. Each match becomes its own output variable carrying the
// request's params; the match's scanned kind wins over the requested one.
func resolveRegex(cfg stattype.Config, scanned []scan.Variable) ([]planVar, error) {
	re, err := regexp.Compile("^" + cfg.Name + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnresolvedPattern, cfg.Name, err)
	}

	var resolved []planVar

	for _, sv := range scanned {
		if !re.MatchString(sv.Name) {
			continue
		}

		matched := cfg
		matched.Name = sv.Name
		matched.Kind = sv.Kind
		matched.IsRegex = false

		resolved = append(resolved, planFromScanned(matched, sv))
	}

	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedPattern, cfg.Name)
	}

	return resolved, nil
}

// planFromScanned binds one request to its discovery record. A pattern
// record expands into one leaf per index token; all leaves feed the single
// shared instance so reduction averages across the family.
func planFromScanned(cfg stattype.Config, sv scan.Variable) planVar {
	effective := cfg
	if sv.IsPattern() && effective.Kind == stattype.Scalar {
		effective.Kind = sv.Kind
	}

	pv := planVar{cfg: effective, entries: sv.Entries}

	if !sv.IsPattern() {
		pv.leaves = []leaf{{key: sv.Name}}

		return pv
	}

	names := pattern.Expand(sv)
	pv.leaves = make([]leaf, 0, len(names))

	for idx, name := range names {
		pv.leaves = append(pv.leaves, leaf{key: name, entry: sv.PatternIndices[idx]})
	}

	return pv
}

// workerKeys returns the deduplicated worker keys of the whole plan in
// first-seen order; this is the key list sent with every file request.
func workerKeys(plan []planVar) []string {
	var keys []string

	seen := make(map[string]bool)

	for _, pv := range plan {
		for _, l := range pv.leaves {
			if seen[l.key] {
				continue
			}

			seen[l.key] = true
			keys = append(keys, l.key)
		}
	}

	return keys
}
