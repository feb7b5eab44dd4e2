// Package pattern collapses families of mechanically-named variables that
// differ only by a numeric index (cpu0.cycles, cpu1.cycles, ...) into one
// parametrized variable description, and expands such descriptions back into
// concrete leaf names.
package pattern

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/statfang/pkg/scan"
	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

// Placeholder replaces each maximal digit run in a consolidated name.
// The resulting name doubles as a regular expression matching every member.
const Placeholder = `\d+`

var digitRunRe = regexp.MustCompile(`\d+`)

// indexSep joins the digit runs of one member into its index token when a
// name carries more than one run.
const indexSep = "."

// Aggregate groups variables by their pattern signature and replaces each
// group of two or more with one synthetic pattern variable. Groups of size
// one, and variables that are already patterns, pass through unchanged.
// The transform is pure and idempotent: consolidated names contain no digit
// runs, so a second pass leaves them alone.
func Aggregate(vars []scan.Variable) []scan.Variable {
	type group struct {
		signature string
		members   []scan.Variable
		indices   []string
	}

	var order []string

	groups := make(map[string]*group)

	for _, v := range vars {
		sig, index := signature(v.Name)

		grp, ok := groups[sig]
		if !ok {
			grp = &group{signature: sig}
			groups[sig] = grp

			order = append(order, sig)
		}

		grp.members = append(grp.members, v)
		grp.indices = append(grp.indices, index)
	}

	out := make([]scan.Variable, 0, len(order))

	for _, sig := range order {
		grp := groups[sig]
		if len(grp.members) == 1 {
			out = append(out, grp.members[0])

			continue
		}

		out = append(out, consolidate(sig, grp.members, grp.indices))
	}

	return out
}

// signature replaces every maximal digit run in name with the placeholder
// and returns the removed runs as the member's index token. Names without
// digit runs are their own signature with an empty index.
func signature(name string) (sig, index string) {
	runs := digitRunRe.FindAllString(name, -1)
	if len(runs) == 0 {
		return name, ""
	}

	return digitRunRe.ReplaceAllLiteralString(name, Placeholder), strings.Join(runs, indexSep)
}

// consolidate builds the synthetic pattern variable for a group: the kind is
// promoted to Vector for scalar members and kept otherwise, entries are the
// sorted index tokens for scalar members or the union of member entries,
// and bounds widen across members.
func consolidate(sig string, members []scan.Variable, indices []string) scan.Variable {
	sortIndices(indices)

	synthetic := scan.Variable{
		Name:           sig,
		Kind:           members[0].Kind,
		Minimum:        members[0].Minimum,
		Maximum:        members[0].Maximum,
		PatternIndices: indices,
	}

	if synthetic.Kind == stattype.Scalar {
		synthetic.Kind = stattype.Vector
		synthetic.Entries = indices

		return synthetic
	}

	seen := make(map[string]bool)

	for _, member := range members {
		for _, entry := range member.Entries {
			if seen[entry] {
				continue
			}

			seen[entry] = true
			synthetic.Entries = append(synthetic.Entries, entry)
		}

		if member.Minimum < synthetic.Minimum {
			synthetic.Minimum = member.Minimum
		}

		if member.Maximum > synthetic.Maximum {
			synthetic.Maximum = member.Maximum
		}
	}

	return synthetic
}

// Expand turns a pattern variable back into its concrete leaf names by
// substituting each index token into the placeholders. Non-pattern
// variables expand to their own name.
func Expand(v scan.Variable) []string {
	if !v.IsPattern() {
		return []string{v.Name}
	}

	leaves := make([]string, 0, len(v.PatternIndices))

	for _, token := range v.PatternIndices {
		name := v.Name
		for part := range strings.SplitSeq(token, indexSep) {
			name = strings.Replace(name, Placeholder, part, 1)
		}

		leaves = append(leaves, name)
	}

	return leaves
}

// sortIndices orders index tokens numerically part by part, so "10" sorts
// after "9" rather than after "1".
func sortIndices(indices []string) {
	sort.Slice(indices, func(i, j int) bool {
		return lessIndex(indices[i], indices[j])
	})
}

func lessIndex(a, b string) bool {
	aParts := strings.Split(a, indexSep)
	bParts := strings.Split(b, indexSep)

	for idx := 0; idx < len(aParts) && idx < len(bParts); idx++ {
		aVal, aErr := strconv.Atoi(aParts[idx])
		bVal, bErr := strconv.Atoi(bParts[idx])

		if aErr == nil && bErr == nil {
			if aVal != bVal {
				return aVal < bVal
			}

			continue
		}

		if aParts[idx] != bParts[idx] {
			return aParts[idx] < bParts[idx]
		}
	}

	return len(aParts) < len(bParts)
}
