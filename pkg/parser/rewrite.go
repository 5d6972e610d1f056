package parser

import "sort"

// Rewrite prepends prefix to every eligible table name in the original
// statement text and returns the rewritten statement. A reference is
// eligible when it has no database or schema qualifier, does not name a
// CTE of the same statement, and has a non-empty name. Everything
// outside the rewritten name spans is preserved byte for byte.
//
// Rewriting is not idempotent: running the result through Rewrite again
// prefixes the names a second time. Callers rewrite the user's original
// text exactly once.
func Rewrite(original string, info *QueryInfo, prefix string) string {
	if prefix == "" || info == nil {
		return original
	}

	var targets []TableReference
	for _, ref := range info.References {
		if ref.Rewritable() {
			targets = append(targets, ref)
		}
	}
	if len(targets) == 0 {
		return original
	}

	// Splice highest offset first so earlier spans stay valid.
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Start > targets[j].Start
	})

	out := original
	for _, ref := range targets {
		at := ref.Start
		if ref.Quoted {
			// Insert inside the quotes: "users" becomes "prod_users".
			at++
		}
		out = out[:at] + prefix + out[at:]
	}
	return out
}
