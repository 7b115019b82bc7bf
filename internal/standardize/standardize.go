// Package standardize maps the four heterogeneous contract-line sources
// onto the canonical record schema. Each source has a fixed column
// mapping; shared finalization applies flag defaults, type coercion, the
// reduced part number, seq assignment, and the Active Rank.
package standardize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"clrecon/internal"
	"clrecon/internal/tabfile"
	"clrecon/internal/util"
)

const (
	ledgerFile       = "ContractLine.csv"
	ledgerImportFile = "ContractLineImport.csv"

	// PrecheckedFile is the combined submission artifact produced by a
	// passing precheck.
	PrecheckedFile = "SUBMISSION_prechecked.xlsx"
)

type Standardizer struct {
	SharedDir      string
	HubDir         string
	SubmissionsDir string

	// Today anchors expiration comparisons; zero means the wall clock.
	Today time.Time
}

func (s *Standardizer) today() time.Time {
	t := s.Today
	if t.IsZero() {
		t = time.Now()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Ledger standardizes the ERP's primary contract-line export.
func (s *Standardizer) Ledger() ([]internal.ContractLine, error) {
	tbl, err := tabfile.ReadCSV(filepath.Join(s.SharedDir, ledgerFile))
	if err != nil {
		return nil, fmt.Errorf("standardize %s: %w", internal.SourceLedger, err)
	}
	if err := tbl.Require(ledgerSchema); err != nil {
		return nil, fmt.Errorf("standardize %s: %w", internal.SourceLedger, err)
	}

	lines := make([]internal.ContractLine, 0, tbl.Len())
	for _, row := range tbl.Rows {
		cost, _ := util.ParseCurrency(tbl.Get(row, "BaseCost"))
		qoe, _ := util.ParseQuantity(tbl.Get(row, "DerivedUOMConversion"))
		lines = append(lines, internal.ContractLine{
			ContractNumber: tbl.Get(row, "Contract.WorkingContractID"),
			MFN:            tbl.Get(row, "ManufacturerNumber"),
			VendorPart:     tbl.Get(row, "VendorItem"),
			ItemNumber:     tbl.Get(row, "ItemNumber"),
			Description:    tbl.Get(row, "ItemDescription"),
			UnitCost:       cost,
			UOM:            tbl.Get(row, "UOM"),
			QOE:            qoe,
			EffectiveDate:  util.ParseDate(tbl.Get(row, "EffectiveDate"), internal.EpochSentinel),
			ExpirationDate: util.ParseDate(tbl.Get(row, "ExpirationDate"), internal.EpochSentinel),
			LineNumber:     tbl.Get(row, "ContractLine"),
			Manufacturer:   tbl.Get(row, "Manufacturer"),
			Vendor:         tbl.Get(row, "Vendor"),
			ItemType:       tbl.Get(row, "ItemType"),
			OnHold:         tbl.Get(row, "OnHold"),
			ActiveLine:     tbl.Get(row, "ActiveLine"),
			LineState:      tbl.Get(row, "ContractLineState"),
			ContractStatus: tbl.Get(row, "Contract.ContractStatus"),
		})
	}
	return s.finalize(lines, internal.SourceLedger), nil
}

// LedgerImport standardizes the ERP's staged contract-line import export.
// The combined ManufacturerInformation column carries the manufacturer
// code in its first four characters and the part number in the rest.
func (s *Standardizer) LedgerImport() ([]internal.ContractLine, error) {
	tbl, err := tabfile.ReadCSV(filepath.Join(s.SharedDir, ledgerImportFile))
	if err != nil {
		return nil, fmt.Errorf("standardize %s: %w", internal.SourceLedgerImport, err)
	}
	if err := tbl.Require(ledgerImportSchema); err != nil {
		return nil, fmt.Errorf("standardize %s: %w", internal.SourceLedgerImport, err)
	}

	lines := make([]internal.ContractLine, 0, tbl.Len())
	for _, row := range tbl.Rows {
		manufacturer, mfn := splitManufacturerInformation(tbl.Get(row, "ManufacturerInformation"))
		cost, _ := util.ParseCurrency(tbl.Get(row, "BaseCost"))
		qoe, _ := util.ParseQuantity(tbl.Get(row, "UOMConversion"))
		lines = append(lines, internal.ContractLine{
			ContractNumber: tbl.Get(row, "ContractImport.WorkingContractID"),
			MFN:            mfn,
			VendorPart:     tbl.Get(row, "VendorItem"),
			ItemNumber:     tbl.Get(row, "ItemNumber"),
			Description:    tbl.Get(row, "ItemDescription"),
			UnitCost:       cost,
			UOM:            tbl.Get(row, "UOM"),
			QOE:            qoe,
			EffectiveDate:  util.ParseDate(tbl.Get(row, "EffectiveDate"), internal.EpochSentinel),
			ExpirationDate: util.ParseDate(tbl.Get(row, "ExpirationDate"), internal.EpochSentinel),
			LineNumber:     tbl.Get(row, "ContractLineImport"),
			Manufacturer:   manufacturer,
			Vendor:         tbl.Get(row, "ContractImport.Vendor"),
		})
	}
	return s.finalize(lines, internal.SourceLedgerImport), nil
}

// ContractHub standardizes every downloaded contract workbook in the hub
// directory. Line numbers are positional within each file.
func (s *Standardizer) ContractHub() ([]internal.ContractLine, error) {
	entries, err := os.ReadDir(s.HubDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("standardize %s: %s: %w", internal.SourceContractHub, s.HubDir, tabfile.ErrNotFound)
		}
		return nil, fmt.Errorf("standardize %s: %w", internal.SourceContractHub, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".xlsx") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var lines []internal.ContractLine
	for _, name := range names {
		sheets, err := tabfile.ReadWorkbook(filepath.Join(s.HubDir, name))
		if err != nil {
			return nil, fmt.Errorf("standardize %s: %w", internal.SourceContractHub, err)
		}
		for _, tbl := range sheets {
			if tbl.Len() == 0 {
				continue
			}
			if err := tbl.Require(hubSchema); err != nil {
				return nil, fmt.Errorf("standardize %s: %s: %w", internal.SourceContractHub, name, err)
			}
			for i, row := range tbl.Rows {
				cost, _ := util.ParseCurrency(tbl.Get(row, "Contract Price"))
				qoe, _ := util.ParseQuantity(tbl.Get(row, "QOE"))
				lines = append(lines, internal.ContractLine{
					ContractNumber: tbl.Get(row, "Contract Number"),
					MFN:            tbl.Get(row, "Mfg Part Num"),
					VendorPart:     tbl.Get(row, "Vendor Part Num"),
					ItemNumber:     tbl.Get(row, "Buyer Part Num"),
					Description:    tbl.Get(row, "Description"),
					UnitCost:       cost,
					UOM:            tbl.Get(row, "UOM"),
					QOE:            qoe,
					EffectiveDate:  util.ParseDate(tbl.Get(row, "Effective Date"), internal.EpochSentinel),
					ExpirationDate: util.ParseDate(tbl.Get(row, "Expiration Date"), internal.EpochSentinel),
					LineNumber:     strconv.Itoa(i + 1),
					Manufacturer:   tbl.Get(row, "Manufacturer"),
					Vendor:         tbl.Get(row, "Vendor"),
					FileName:       name,
				})
			}
		}
	}
	return s.finalize(lines, internal.SourceContractHub), nil
}

// Submission standardizes the prechecked combined submission artifact.
// Manufacturer and vendor are supplied by the operator since the template
// does not carry them.
func (s *Standardizer) Submission(manufacturer, vendorName string) ([]internal.ContractLine, error) {
	path := filepath.Join(s.SubmissionsDir, PrecheckedFile)
	sheets, err := tabfile.ReadWorkbook(path)
	if err != nil {
		return nil, fmt.Errorf("standardize %s: %w", internal.SourceSubmission, err)
	}
	if len(sheets) == 0 {
		return s.finalize(nil, internal.SourceSubmission), nil
	}
	tbl := sheets[0]
	if err := tbl.Require(PrecheckedSchema); err != nil {
		return nil, fmt.Errorf("standardize %s: %w", internal.SourceSubmission, err)
	}

	lineNo := map[string]int{}
	lines := make([]internal.ContractLine, 0, tbl.Len())
	for _, row := range tbl.Rows {
		contract := tbl.Get(row, "Contract Number")
		lineNo[contract]++
		cost, _ := util.ParseCurrency(tbl.Get(row, "Contract Price"))
		qoe, _ := util.ParseQuantity(tbl.Get(row, "QOE"))
		lines = append(lines, internal.ContractLine{
			ContractNumber: contract,
			MFN:            tbl.Get(row, "Mfg Part Num"),
			VendorPart:     tbl.Get(row, "Vendor Part Num"),
			ItemNumber:     tbl.Get(row, "Buyer Part Num"),
			Description:    tbl.Get(row, "Description"),
			UnitCost:       cost,
			UOM:            tbl.Get(row, "UOM STD"),
			QOE:            qoe,
			EffectiveDate:  util.ParseDate(tbl.Get(row, "Effective Date"), internal.EpochSentinel),
			ExpirationDate: util.ParseDate(tbl.Get(row, "Expiration Date"), internal.EpochSentinel),
			LineNumber:     strconv.Itoa(lineNo[contract]),
			Manufacturer:   manufacturer,
			Vendor:         vendorName,
			FileName:       tbl.Get(row, "File Name"),
		})
	}
	return s.finalize(lines, internal.SourceSubmission), nil
}

// finalize applies the shared post-processing every source goes through.
// Lines are created here once and never mutated after stacking.
func (s *Standardizer) finalize(lines []internal.ContractLine, source internal.SourceSystem) []internal.ContractLine {
	today := s.today()
	out := make([]internal.ContractLine, 0, len(lines))
	for i, line := range lines {
		if line.OnHold == "" {
			line.OnHold = "No"
		}
		if line.ActiveLine == "" {
			line.ActiveLine = "Yes"
		}
		if line.LineState == "" {
			line.LineState = "Active"
		}
		if line.ContractStatus == "" {
			line.ContractStatus = "Active"
		}
		if line.FileName == "" {
			line.FileName = "Not Applicable"
		}
		if line.VendorPart == "" {
			line.VendorPart = line.MFN
		}
		line.ContractNumber = strings.ToUpper(strings.TrimSpace(line.ContractNumber))
		line.MFNReduced = util.NormalizePartNumber(line.MFN)
		line.SourceSystem = source
		line.Seq = source.SeqPrefix() + strconv.Itoa(i)
		line.ActiveRank = activeRank(line, today)
		out = append(out, line)
	}
	return out
}

// activeRank is computed once at standardization time and never revised.
func activeRank(line internal.ContractLine, today time.Time) string {
	if line.OnHold == "No" &&
		line.ActiveLine == "Yes" &&
		line.LineState == "Active" &&
		line.ContractStatus == "Active" &&
		!line.ExpirationDate.Before(today) {
		return internal.RankActive
	}
	return internal.RankInactive
}

func splitManufacturerInformation(combined string) (code, number string) {
	s := strings.TrimSpace(combined)
	if len(s) <= 4 {
		return s, ""
	}
	return s[:4], strings.TrimSpace(s[4:])
}
