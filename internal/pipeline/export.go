package pipeline

import (
	"fmt"
	"strconv"

	"clrecon/internal"
	"clrecon/internal/tabfile"
	"clrecon/internal/util"
)

var reportPairSchema = []string{
	"Left Seq", "Left System", "Left Contract", "Left Part Num", "Left Description",
	"Left Unit Cost", "Left UOM", "Left QOE", "Left Manufacturer",
	"Right Seq", "Right System", "Right Contract", "Right Part Num", "Right Description",
	"Right Unit Cost", "Right UOM", "Right QOE", "Right Manufacturer",
	"Same UOM", "Same QOE", "EA Cost Diff", "Similarity", "Action",
}

var summarySchema = []string{"Source System", "Contract Number", "Line Count", "Overlap Count"}

var itemMasterSchema = []string{
	"Seq", "Contract Number", "Mfg Part Num", "Description", "UOM", "QOE",
	"Item Number", "Item Description", "Item UOM", "Item QOE",
	"Similarity", "Conversion", "Valid For Buying", "All Valid Buy UOM",
	"IM Check", "Matched Items",
}

var gapSchema = []string{
	"Seq", "Contract Number", "Mfg Part Num", "MFN RF", "Vendor Part Num",
	"Description", "Unit Cost", "UOM", "QOE", "File Name", "Item Type",
}

var findingsSchema = []string{"File", "Contract", "Row", "Issue"}

var stackedSchema = []string{
	"Seq", "Source System", "Contract Number", "Mfg Part Num", "MFN RF",
	"Vendor Part Num", "Item Number", "Description", "Unit Cost", "UOM", "QOE",
	"Effective Date", "Expiration Date", "Line Number", "Manufacturer", "Vendor",
	"Item Type", "File Name", "Active Rank",
}

// WriteStackedLines renders the scoped stacked table for inspection.
func WriteStackedLines(path string, lines []internal.ContractLine) error {
	tbl := tabfile.New("Stacked", stackedSchema)
	for _, l := range lines {
		tbl.Append([]string{
			l.Seq, string(l.SourceSystem), l.ContractNumber, l.MFN, l.MFNReduced,
			l.VendorPart, l.ItemNumber, l.Description, l.UnitCost.String(), l.UOM,
			util.FormatQuantity(l.QOE),
			l.EffectiveDate.Format(internal.DateLayout), l.ExpirationDate.Format(internal.DateLayout),
			l.LineNumber, l.Manufacturer, l.Vendor, l.ItemType, l.FileName, l.ActiveRank,
		})
	}
	return tabfile.WriteWorkbook(path, []*tabfile.Table{tbl})
}

// WriteMatchReport renders the finalized duplicate report: a summary
// sheet, one sheet per right-side contract, and the full raw sheet.
func WriteMatchReport(path string, report *internal.MatchReport) error {
	summary := tabfile.New("Summary", summarySchema)
	for _, c := range report.Summary {
		summary.Append([]string{
			string(c.SourceSystem), c.ContractNumber,
			strconv.Itoa(c.LineCount), strconv.Itoa(c.OverlapCount),
		})
	}

	tables := []*tabfile.Table{summary}
	for _, contract := range report.GroupOrder {
		tbl := tabfile.New(contract, reportPairSchema)
		for _, p := range report.Groups[contract] {
			tbl.Append(pairRow(p))
		}
		tables = append(tables, tbl)
	}

	raw := tabfile.New("All Matches", reportPairSchema)
	for _, p := range report.Raw {
		raw.Append(pairRow(p))
	}
	tables = append(tables, raw)

	return tabfile.WriteWorkbook(path, tables)
}

func pairRow(p internal.DupPair) []string {
	return []string{
		p.Left.Seq, string(p.Left.SourceSystem), p.Left.ContractNumber, p.Left.MFN, p.Left.Description,
		p.Left.UnitCost.String(), p.Left.UOM, util.FormatQuantity(p.Left.QOE), p.Left.Manufacturer,
		p.Right.Seq, string(p.Right.SourceSystem), p.Right.ContractNumber, p.Right.MFN, p.Right.Description,
		p.Right.UnitCost.String(), p.Right.UOM, util.FormatQuantity(p.Right.QOE), p.Right.Manufacturer,
		formatBool(p.SameUOM), formatBool(p.SameQOE),
		p.EachCostDiff.String(), fmt.Sprintf("%.4f", p.Similarity),
		string(p.Action),
	}
}

// WriteItemMasterReport renders the conformance report, failures first.
func WriteItemMasterReport(path string, matches []internal.ItemMasterMatch) error {
	tbl := tabfile.New("Item Master", itemMasterSchema)
	for _, m := range matches {
		tbl.Append([]string{
			m.Line.Seq, m.Line.ContractNumber, m.Line.MFN, m.Line.Description,
			m.Line.UOM, util.FormatQuantity(m.Line.QOE),
			m.Item.ItemNumber, m.Item.Description, m.Item.UOM, util.FormatQuantity(m.Item.QOE),
			fmt.Sprintf("%.4f", m.Similarity),
			util.FormatQuantity(m.Conversion),
			formatBool(m.ValidForBuying),
			m.AllValidBuyUOM,
			m.Check,
			strconv.Itoa(m.MatchedItems),
		})
	}
	return tabfile.WriteWorkbook(path, []*tabfile.Table{tbl})
}

// WriteGapReport renders uncovered old-contract lines.
func WriteGapReport(path string, gaps []internal.GapLine) error {
	tbl := tabfile.New("Gaps", gapSchema)
	for _, g := range gaps {
		tbl.Append([]string{
			g.Line.Seq, g.Line.ContractNumber, g.Line.MFN, g.Line.MFNReduced, g.Line.VendorPart,
			g.Line.Description, g.Line.UnitCost.String(), g.Line.UOM,
			util.FormatQuantity(g.Line.QOE), g.Line.FileName, g.ItemType,
		})
	}
	return tabfile.WriteWorkbook(path, []*tabfile.Table{tbl})
}

// WritePrecheckFindings renders the aggregated row-level issues of a
// failed precheck.
func WritePrecheckFindings(path string, report *PrecheckReport) error {
	tbl := tabfile.New("Findings", findingsSchema)
	for _, f := range report.Findings {
		tbl.Append([]string{f.File, f.Contract, strconv.Itoa(f.Row), f.Issue})
	}
	return tabfile.WriteWorkbook(path, []*tabfile.Table{tbl})
}
