package scope

import (
	"sort"
	"strconv"

	"clrecon/internal"
	"clrecon/internal/lookup"
	"clrecon/internal/tabfile"
)

// DraftRow is one candidate contract in the scoping draft, with enough
// enrichment for a reviewer to decide inclusion without opening the
// source systems.
type DraftRow struct {
	ContractNumber   string
	Manufacturer     string
	ManufacturerName string
	Vendor           string
	VendorName       string
	Representative   string
	KeyHits          int
}

// BuildDraft joins submitted part numbers against active ledger lines and
// rolls the hits up per ledger contract. A ledger line hits on any of
// three probes: raw manufacturer number, reduced manufacturer number, or
// vendor part number. Contracts with no overlap never appear; the
// reviewer only sees contracts the submission actually touches.
func BuildDraft(submission, ledger []internal.ContractLine,
	manufacturers *lookup.Manufacturers, vendors *lookup.Vendors) []DraftRow {

	mfns := map[string]struct{}{}
	reduced := map[string]struct{}{}
	vendorParts := map[string]struct{}{}
	for _, l := range submission {
		if l.MFN != "" {
			mfns[l.MFN] = struct{}{}
		}
		if l.MFNReduced != "" {
			reduced[l.MFNReduced] = struct{}{}
		}
		if l.VendorPart != "" {
			vendorParts[l.VendorPart] = struct{}{}
		}
	}
	hit := func(l internal.ContractLine) bool {
		if _, ok := mfns[l.MFN]; ok && l.MFN != "" {
			return true
		}
		if _, ok := reduced[l.MFNReduced]; ok && l.MFNReduced != "" {
			return true
		}
		if _, ok := vendorParts[l.VendorPart]; ok && l.VendorPart != "" {
			return true
		}
		return false
	}

	type agg struct {
		manufacturer string
		vendor       string
		hits         int
	}
	byContract := map[string]*agg{}
	for _, l := range ledger {
		if l.ActiveRank != internal.RankActive {
			continue
		}
		if !hit(l) {
			continue
		}
		a := byContract[l.ContractNumber]
		if a == nil {
			a = &agg{manufacturer: l.Manufacturer, vendor: l.Vendor}
			byContract[l.ContractNumber] = a
		}
		a.hits++
	}

	rows := make([]DraftRow, 0, len(byContract))
	for contract, a := range byContract {
		info := vendors.Info(a.vendor)
		rows = append(rows, DraftRow{
			ContractNumber:   contract,
			Manufacturer:     a.manufacturer,
			ManufacturerName: manufacturers.Name(a.manufacturer),
			Vendor:           a.vendor,
			VendorName:       info.Name,
			Representative:   info.Representative,
			KeyHits:          a.hits,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].KeyHits != rows[j].KeyHits {
			return rows[i].KeyHits > rows[j].KeyHits
		}
		return rows[i].ContractNumber < rows[j].ContractNumber
	})
	return rows
}

// WriteDraft renders the scoping draft workbook for review.
func WriteDraft(path string, rows []DraftRow) error {
	tbl := tabfile.New("Scope Draft", DraftSchema)
	for _, r := range rows {
		tbl.Append([]string{
			r.ContractNumber,
			r.Manufacturer,
			r.ManufacturerName,
			r.Vendor,
			r.VendorName,
			r.Representative,
			strconv.Itoa(r.KeyHits),
			"",
		})
	}
	return tabfile.WriteWorkbook(path, []*tabfile.Table{tbl})
}
