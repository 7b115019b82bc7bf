// Package pipeline implements the reconciliation operations that run on
// standardized contract lines: submission precheck, cross-source
// stacking, duplicate search with human review, item-master conformance,
// and replacement-contract gap checking.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clrecon/internal/lookup"
	"clrecon/internal/standardize"
	"clrecon/internal/tabfile"
	"clrecon/internal/util"
)

// Finding is one row-level problem discovered during precheck. Findings
// are collected across all files so a submitter gets the full picture in
// one round.
type Finding struct {
	File     string
	Contract string
	Row      int
	Issue    string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s [%s] row %d: %s", f.File, f.Contract, f.Row, f.Issue)
}

// PrecheckReport carries the combined findings and, when clean, the
// number of rows written to the prechecked artifact.
type PrecheckReport struct {
	Files    []string
	Findings []Finding
	RowCount int
}

func (r *PrecheckReport) Passed() bool { return len(r.Findings) == 0 }

type Prechecker struct {
	SubmissionsDir string
	UOM            *lookup.UOMTable
}

// Run validates every submission workbook and, when all rows pass, writes
// the combined prechecked artifact that standardization consumes. A
// failing run writes nothing.
func (p *Prechecker) Run() (*PrecheckReport, error) {
	entries, err := os.ReadDir(p.SubmissionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("precheck: %s: %w", p.SubmissionsDir, tabfile.ErrNotFound)
		}
		return nil, fmt.Errorf("precheck: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
			continue
		}
		if name == standardize.PrecheckedFile {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("precheck: no submission workbooks in %s", p.SubmissionsDir)
	}

	report := &PrecheckReport{Files: names}
	combined := tabfile.New("combined", standardize.PrecheckedSchema)
	seenKeys := map[string]Finding{}

	for _, name := range names {
		sheets, err := tabfile.ReadWorkbook(filepath.Join(p.SubmissionsDir, name))
		if err != nil {
			return nil, fmt.Errorf("precheck: %s: %w", name, err)
		}
		for _, tbl := range sheets {
			if tbl.Len() == 0 {
				continue
			}
			if err := tbl.Require(standardize.SubmissionTemplateSchema); err != nil {
				return nil, fmt.Errorf("precheck: %s: %w", name, err)
			}
			contract := strings.ToUpper(strings.TrimSpace(tbl.Name))
			p.checkSheet(name, contract, tbl, report, seenKeys, combined)
		}
	}

	if !report.Passed() {
		return report, nil
	}

	report.RowCount = combined.Len()
	out := filepath.Join(p.SubmissionsDir, standardize.PrecheckedFile)
	if err := tabfile.WriteWorkbook(out, []*tabfile.Table{combined}); err != nil {
		return nil, fmt.Errorf("precheck: write %s: %w", out, err)
	}
	return report, nil
}

func (p *Prechecker) checkSheet(file, contract string, tbl *tabfile.Table,
	report *PrecheckReport, seenKeys map[string]Finding, combined *tabfile.Table) {

	flag := func(row int, issue string) {
		report.Findings = append(report.Findings, Finding{File: file, Contract: contract, Row: row, Issue: issue})
	}

	for i, row := range tbl.Rows {
		rowNo := i + 2

		mfn := tbl.Get(row, "Mfg Part Num")
		description := tbl.Get(row, "Description")
		price := tbl.Get(row, "Contract Price")
		uom := tbl.Get(row, "UOM")
		qoeRaw := tbl.Get(row, "QOE")

		clean := true
		if mfn == "" {
			flag(rowNo, "missing manufacturer part number")
			clean = false
		}
		if description == "" {
			flag(rowNo, "missing description")
			clean = false
		}
		if _, ok := util.ParseCurrency(price); !ok {
			flag(rowNo, fmt.Sprintf("unparseable contract price %q", price))
			clean = false
		}
		qoe, qoeOK := util.ParseQuantity(qoeRaw)
		if !qoeOK || qoe <= 0 {
			flag(rowNo, fmt.Sprintf("invalid QOE %q", qoeRaw))
			clean = false
		}

		uomStd := p.UOM.Normalize(uom)
		if uomStd == lookup.Sentinel {
			flag(rowNo, fmt.Sprintf("unrecognized UOM %q", uom))
			clean = false
		}
		if uomStd == "EA" && qoeOK && qoe != 1 {
			flag(rowNo, fmt.Sprintf("UOM is EA but QOE is %s", qoeRaw))
			clean = false
		}

		// Duplicates are global across the combined submission: the same
		// part under two contracts is still one reviewable conflict.
		if mfn != "" {
			key := util.NormalizePartNumber(mfn)
			if prev, dup := seenKeys[key]; dup {
				flag(rowNo, fmt.Sprintf("duplicate of %s [%s] row %d (part %s)", prev.File, prev.Contract, prev.Row, mfn))
				clean = false
			} else {
				seenKeys[key] = Finding{File: file, Contract: contract, Row: rowNo}
			}
		}

		if !clean {
			continue
		}
		combined.Append([]string{
			mfn,
			util.NormalizePartNumber(mfn),
			tbl.Get(row, "Vendor Part Num"),
			tbl.Get(row, "Buyer Part Num"),
			description,
			price,
			uom,
			uomStd,
			qoeRaw,
			tbl.Get(row, "Effective Date"),
			tbl.Get(row, "Expiration Date"),
			contract,
			file,
		})
	}
}
