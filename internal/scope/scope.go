// Package scope resolves which contract numbers a reconciliation run
// covers. Candidates come from the contracting-system organization
// registry; a hand-reviewed draft workbook can widen or narrow the set.
package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"clrecon/internal/lookup"
	"clrecon/internal/tabfile"
)

// ErrUnresolved means no contract matched the search term and no override
// supplied one. Runs must not proceed on an empty scope.
var ErrUnresolved = errors.New("scope: no contracts resolved")

type Resolver struct {
	Registry *lookup.Registry
}

// Resolve returns the sorted, deduplicated set of in-scope contract
// numbers for a manufacturer or vendor search term. Registry entries
// without an ERP vendor number are ignored, they have no ledger presence
// to reconcile against. Overrides from a reviewed scoping draft are
// added verbatim.
func (r *Resolver) Resolve(term string, overrides []string) ([]string, error) {
	needle := strings.ToUpper(strings.TrimSpace(term))
	set := map[string]struct{}{}

	if needle != "" {
		for _, e := range r.Registry.Entries {
			if e.ERPVendorNumber == "" {
				continue
			}
			if strings.Contains(strings.ToUpper(e.Manufacturer), needle) ||
				strings.Contains(strings.ToUpper(e.Vendor), needle) {
				if c := strings.ToUpper(strings.TrimSpace(e.ContractNumber)); c != "" {
					set[c] = struct{}{}
				}
			}
		}
	}
	for _, o := range overrides {
		if c := strings.ToUpper(strings.TrimSpace(o)); c != "" {
			set[c] = struct{}{}
		}
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("%w (term %q)", ErrUnresolved, term)
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// DraftSchema is the column set of the scoping draft artifact. The
// Include column is blank when written and hand-marked during review.
var DraftSchema = []string{
	"Contract Number",
	"Manufacturer",
	"Manufacturer Name",
	"Vendor",
	"Vendor Name",
	"Representative",
	"Key Hits",
	"Include",
}

// ReadReviewed extracts the override contract list from a hand-reviewed
// scoping draft: rows whose Include cell is non-empty.
func ReadReviewed(path string) ([]string, error) {
	sheets, err := tabfile.ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, nil
	}
	tbl := sheets[0]
	if err := tbl.Require([]string{"Contract Number", "Include"}); err != nil {
		return nil, err
	}

	var out []string
	for _, row := range tbl.Rows {
		if tbl.Get(row, "Include") == "" {
			continue
		}
		if c := tbl.Get(row, "Contract Number"); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
