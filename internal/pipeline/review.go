package pipeline

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"clrecon/internal"
	"clrecon/internal/tabfile"
	"clrecon/internal/util"
)

// The review draft workbook: a Pairs sheet the reviewer annotates and a
// Search sheet recording how the draft was produced, so the finalize
// pass never depends on operator memory.
const (
	draftPairsSheet = "Pairs"
	draftMetaSheet  = "Search"

	// DropColumn is the reviewer's marker. Any non-empty cell discards
	// the row as a false positive.
	DropColumn = "Drop"
)

var draftPairsSchema = []string{
	"Left Seq", "Left System", "Left Contract", "Left Part Num", "Left Description",
	"Left Unit Cost", "Left UOM", "Left QOE", "Left Manufacturer",
	"Right Seq", "Right System", "Right Contract", "Right Part Num", "Right Description",
	"Right Unit Cost", "Right UOM", "Right QOE", "Right Manufacturer",
	"Same UOM", "Same QOE", "EA Cost Diff", "Similarity",
	DropColumn,
}

var draftMetaSchema = []string{"Base System", "Search Systems", "Key Mode"}

// WriteReviewDraft renders the first-pass draft for hand annotation.
func WriteReviewDraft(path string, draft *internal.ReviewDraft) error {
	pairs := tabfile.New(draftPairsSheet, draftPairsSchema)
	for _, p := range draft.Pairs {
		pairs.Append([]string{
			p.Left.Seq, string(p.Left.SourceSystem), p.Left.ContractNumber, p.Left.MFN, p.Left.Description,
			p.Left.UnitCost.String(), p.Left.UOM, util.FormatQuantity(p.Left.QOE), p.Left.Manufacturer,
			p.Right.Seq, string(p.Right.SourceSystem), p.Right.ContractNumber, p.Right.MFN, p.Right.Description,
			p.Right.UnitCost.String(), p.Right.UOM, util.FormatQuantity(p.Right.QOE), p.Right.Manufacturer,
			formatBool(p.SameUOM), formatBool(p.SameQOE),
			p.EachCostDiff.String(), fmt.Sprintf("%.4f", p.Similarity),
			"",
		})
	}

	var systems []string
	for _, s := range draft.SearchSystems {
		systems = append(systems, string(s))
	}
	meta := tabfile.New(draftMetaSheet, draftMetaSchema)
	meta.Append([]string{string(draft.BaseSystem), strings.Join(systems, ","), draft.Mode.String()})

	return tabfile.WriteWorkbook(path, []*tabfile.Table{pairs, meta})
}

// ReadReviewDraft reconstructs a hand-reviewed draft. Cells are
// re-parsed strictly; a draft damaged during review fails loudly rather
// than feeding half-typed rows into classification.
func ReadReviewDraft(path string) (*internal.ReviewDraft, error) {
	pairs, err := tabfile.ReadSheet(path, draftPairsSheet)
	if err != nil {
		return nil, fmt.Errorf("review draft: %w", err)
	}
	if err := pairs.Require(draftPairsSchema); err != nil {
		return nil, fmt.Errorf("review draft: %w", err)
	}
	meta, err := tabfile.ReadSheet(path, draftMetaSheet)
	if err != nil {
		return nil, fmt.Errorf("review draft: %w", err)
	}
	if err := meta.Require(draftMetaSchema); err != nil {
		return nil, fmt.Errorf("review draft: %w", err)
	}
	if meta.Len() == 0 {
		return nil, fmt.Errorf("review draft: empty %s sheet", draftMetaSheet)
	}

	metaRow := meta.Rows[0]
	base, ok := internal.ParseSourceSystem(meta.Get(metaRow, "Base System"))
	if !ok {
		return nil, fmt.Errorf("review draft: unknown base system %q", meta.Get(metaRow, "Base System"))
	}
	var searches []internal.SourceSystem
	for _, raw := range strings.Split(meta.Get(metaRow, "Search Systems"), ",") {
		s, ok := internal.ParseSourceSystem(strings.TrimSpace(raw))
		if !ok {
			return nil, fmt.Errorf("review draft: unknown search system %q", raw)
		}
		searches = append(searches, s)
	}
	mode, ok := internal.ParseKeyMode(meta.Get(metaRow, "Key Mode"))
	if !ok {
		return nil, fmt.Errorf("review draft: unknown key mode %q", meta.Get(metaRow, "Key Mode"))
	}

	draft := &internal.ReviewDraft{BaseSystem: base, SearchSystems: searches, Mode: mode}
	for i, row := range pairs.Rows {
		pair, err := parseDraftPair(pairs, row)
		if err != nil {
			return nil, fmt.Errorf("review draft: row %d: %w", i+2, err)
		}
		draft.Pairs = append(draft.Pairs, pair)
	}
	return draft, nil
}

func parseDraftPair(tbl *tabfile.Table, row []string) (internal.DupPair, error) {
	var pair internal.DupPair
	var err error

	if pair.Left, err = parseDraftSide(tbl, row, "Left"); err != nil {
		return pair, err
	}
	if pair.Right, err = parseDraftSide(tbl, row, "Right"); err != nil {
		return pair, err
	}

	sameUOM, ok := util.ParseStrictBool(tbl.Get(row, "Same UOM"))
	if !ok {
		return pair, fmt.Errorf("bad Same UOM %q", tbl.Get(row, "Same UOM"))
	}
	sameQOE, ok := util.ParseStrictBool(tbl.Get(row, "Same QOE"))
	if !ok {
		return pair, fmt.Errorf("bad Same QOE %q", tbl.Get(row, "Same QOE"))
	}
	pair.SameUOM = sameUOM
	pair.SameQOE = sameQOE

	if pair.EachCostDiff, err = decimal.NewFromString(tbl.Get(row, "EA Cost Diff")); err != nil {
		return pair, fmt.Errorf("bad EA Cost Diff %q", tbl.Get(row, "EA Cost Diff"))
	}
	if _, err := fmt.Sscanf(tbl.Get(row, "Similarity"), "%f", &pair.Similarity); err != nil {
		return pair, fmt.Errorf("bad Similarity %q", tbl.Get(row, "Similarity"))
	}
	pair.Drop = tbl.Get(row, DropColumn)
	return pair, nil
}

func parseDraftSide(tbl *tabfile.Table, row []string, side string) (internal.ContractLine, error) {
	system, ok := internal.ParseSourceSystem(tbl.Get(row, side+" System"))
	if !ok {
		return internal.ContractLine{}, fmt.Errorf("unknown %s system %q", side, tbl.Get(row, side+" System"))
	}
	cost, ok := util.ParseCurrency(tbl.Get(row, side+" Unit Cost"))
	if !ok {
		return internal.ContractLine{}, fmt.Errorf("bad %s unit cost %q", side, tbl.Get(row, side+" Unit Cost"))
	}
	qoe, ok := util.ParseQuantity(tbl.Get(row, side+" QOE"))
	if !ok {
		return internal.ContractLine{}, fmt.Errorf("bad %s QOE %q", side, tbl.Get(row, side+" QOE"))
	}
	mfn := tbl.Get(row, side+" Part Num")
	return internal.ContractLine{
		Seq:            tbl.Get(row, side+" Seq"),
		SourceSystem:   system,
		ContractNumber: tbl.Get(row, side+" Contract"),
		MFN:            mfn,
		MFNReduced:     util.NormalizePartNumber(mfn),
		Description:    tbl.Get(row, side+" Description"),
		UnitCost:       cost,
		UOM:            tbl.Get(row, side+" UOM"),
		QOE:            qoe,
		Manufacturer:   tbl.Get(row, side+" Manufacturer"),
	}, nil
}

func formatBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
