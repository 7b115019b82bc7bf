package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"clrecon/internal"
	"clrecon/internal/util"
)

func testPolicy() RatioPolicy {
	return RatioPolicy{
		CrossLow:  decimal.NewFromFloat(0.5),
		CrossHigh: decimal.NewFromFloat(2.0),
		SameLow:   decimal.NewFromFloat(0.65),
		SameHigh:  decimal.NewFromFloat(1.5),
	}
}

func line(system internal.SourceSystem, seq, contract, mfn, uom string, qoe float64, cost, manufacturer string) internal.ContractLine {
	c, _ := util.ParseCurrency(cost)
	return internal.ContractLine{
		Seq:            seq,
		SourceSystem:   system,
		ContractNumber: contract,
		MFN:            mfn,
		MFNReduced:     util.NormalizePartNumber(mfn),
		Description:    "WIDGET " + mfn,
		UnitCost:       c,
		UOM:            uom,
		QOE:            qoe,
		Manufacturer:   manufacturer,
		ActiveRank:     internal.RankActive,
	}
}

func TestEachCostDiff(t *testing.T) {
	l := line(internal.SourceSubmission, "sub0", "C1", "1", "EA", 1, "$10.00", "ACME")
	r := line(internal.SourceLedger, "led0", "C2", "1", "EA", 1, "$10.00", "ACME")
	if got := EachCostDiff(l, r); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("ratio=%s", got)
	}

	r.QOE = 0
	if got := EachCostDiff(l, r); !got.Equal(internal.RatioUnusable) {
		t.Fatalf("zero QOE must be unusable, got %s", got)
	}

	r.QOE = 1
	r.UnitCost = decimal.Zero
	if got := EachCostDiff(l, r); !got.Equal(internal.RatioUnusable) {
		t.Fatalf("zero denominator must be unusable, got %s", got)
	}
}

func TestClassify(t *testing.T) {
	policy := testPolicy()

	cases := []struct {
		name string
		pair internal.DupPair
		want internal.Action
	}{
		{
			name: "clean exact duplicate deactivates",
			pair: internal.DupPair{
				Left:         line(internal.SourceSubmission, "sub0", "C1", "1", "CS", 12, "$120", "ACME"),
				Right:        line(internal.SourceLedger, "led0", "C2", "1", "CS", 12, "$120", "ACME"),
				SameUOM:      true,
				SameQOE:      true,
				EachCostDiff: decimal.NewFromInt(1),
			},
			want: internal.ActionDeactivate,
		},
		{
			name: "uom mismatch always reviews",
			pair: internal.DupPair{
				Left:         line(internal.SourceSubmission, "sub0", "C1", "1", "CS", 12, "$120", "ACME"),
				Right:        line(internal.SourceLedger, "led0", "C2", "1", "BX", 12, "$120", "ACME"),
				SameUOM:      false,
				SameQOE:      true,
				EachCostDiff: decimal.NewFromInt(1),
			},
			want: internal.ActionReview,
		},
		{
			name: "qoe mismatch reviews",
			pair: internal.DupPair{
				Left:         line(internal.SourceSubmission, "sub0", "C1", "1", "CS", 12, "$120", "ACME"),
				Right:        line(internal.SourceLedger, "led0", "C2", "1", "CS", 6, "$60", "ACME"),
				SameUOM:      true,
				SameQOE:      false,
				EachCostDiff: decimal.NewFromInt(1),
			},
			want: internal.ActionReview,
		},
		{
			name: "same manufacturer band is tighter",
			pair: internal.DupPair{
				Left:         line(internal.SourceSubmission, "sub0", "C1", "1", "CS", 12, "$210", "ACME"),
				Right:        line(internal.SourceLedger, "led0", "C2", "1", "CS", 12, "$120", "ACME"),
				SameUOM:      true,
				SameQOE:      true,
				EachCostDiff: decimal.NewFromFloat(1.75),
			},
			want: internal.ActionReview,
		},
		{
			name: "cross manufacturer tolerates the same ratio",
			pair: internal.DupPair{
				Left:         line(internal.SourceSubmission, "sub0", "C1", "1", "CS", 12, "$210", "ACME"),
				Right:        line(internal.SourceLedger, "led0", "C2", "1", "CS", 12, "$120", "OTHER"),
				SameUOM:      true,
				SameQOE:      true,
				EachCostDiff: decimal.NewFromFloat(1.75),
			},
			want: internal.ActionDeactivate,
		},
		{
			name: "unusable ratio reviews",
			pair: internal.DupPair{
				Left:         line(internal.SourceSubmission, "sub0", "C1", "1", "CS", 12, "$120", "ACME"),
				Right:        line(internal.SourceLedger, "led0", "C2", "1", "CS", 12, "$0", "OTHER"),
				SameUOM:      true,
				SameQOE:      true,
				EachCostDiff: internal.RatioUnusable,
			},
			want: internal.ActionReview,
		},
		{
			name: "each with multi qoe reviews",
			pair: internal.DupPair{
				Left:         line(internal.SourceSubmission, "sub0", "C1", "1", "EA", 6, "$60", "ACME"),
				Right:        line(internal.SourceLedger, "led0", "C2", "1", "EA", 6, "$60", "ACME"),
				SameUOM:      true,
				SameQOE:      true,
				EachCostDiff: decimal.NewFromInt(1),
			},
			want: internal.ActionReview,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.Classify(tc.pair); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestDupSearchEndToEnd(t *testing.T) {
	// Submitted "00123" matches a hub line whose "12-3" reduces to the
	// same key.
	sub := line(internal.SourceSubmission, "sub0", "C100", "00123", "EA", 1, "$10.00", "ACME")
	hub := line(internal.SourceContractHub, "hub0", "C200", "12-3", "EA", 1, "$10.00", "ACME")
	other := line(internal.SourceContractHub, "hub1", "C200", "999", "EA", 1, "$5.00", "ACME")
	stacked := []internal.ContractLine{hub, other, sub}

	searcher := &DupSearcher{Policy: testPolicy()}
	draft, err := searcher.BeginDupSearch(context.Background(), stacked,
		internal.SourceSubmission, []internal.SourceSystem{internal.SourceContractHub}, internal.KeyReduced)
	if err != nil {
		t.Fatal(err)
	}
	if len(draft.Pairs) != 1 {
		t.Fatalf("pairs=%d", len(draft.Pairs))
	}

	pair := draft.Pairs[0]
	if pair.Left.MFNReduced != "123" || pair.Right.MFNReduced != "123" {
		t.Fatalf("key join broken: %q vs %q", pair.Left.MFNReduced, pair.Right.MFNReduced)
	}
	if !pair.SameUOM || !pair.SameQOE {
		t.Fatalf("sameUOM=%v sameQOE=%v", pair.SameUOM, pair.SameQOE)
	}
	if !pair.EachCostDiff.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("ratio=%s", pair.EachCostDiff)
	}
	if pair.Similarity != 1 {
		t.Fatalf("similarity default=%v", pair.Similarity)
	}

	report := searcher.FinalizeDupSearch(draft)
	if len(report.Raw) != 1 {
		t.Fatalf("raw=%d", len(report.Raw))
	}
	if report.Raw[0].Action != internal.ActionDeactivate {
		t.Fatalf("action=%s", report.Raw[0].Action)
	}
	if len(report.GroupOrder) != 1 || report.GroupOrder[0] != "C200" {
		t.Fatalf("groups=%v", report.GroupOrder)
	}
}

func TestFinalizeGroupsActiveLinesOnly(t *testing.T) {
	sub := line(internal.SourceSubmission, "sub0", "C100", "00123", "EA", 1, "$10.00", "ACME")
	active := line(internal.SourceLedger, "led0", "C200", "12-3", "EA", 1, "$10.00", "ACME")
	inactive := line(internal.SourceLedger, "led1", "C300", "123", "EA", 1, "$10.00", "ACME")
	inactive.ActiveRank = internal.RankInactive
	stacked := []internal.ContractLine{active, inactive, sub}

	searcher := &DupSearcher{Policy: testPolicy()}
	draft, err := searcher.BeginDupSearch(context.Background(), stacked,
		internal.SourceSubmission, []internal.SourceSystem{internal.SourceLedger}, internal.KeyReduced)
	if err != nil {
		t.Fatal(err)
	}
	if len(draft.Pairs) != 2 {
		t.Fatalf("pairs=%d", len(draft.Pairs))
	}

	report := searcher.FinalizeDupSearch(draft)
	// the raw sheet keeps the inactive pair for audit
	if len(report.Raw) != 2 {
		t.Fatalf("raw=%d", len(report.Raw))
	}
	if len(report.GroupOrder) != 1 || report.GroupOrder[0] != "C200" {
		t.Fatalf("groups=%v", report.GroupOrder)
	}

	CountLines(report, stacked)
	for _, c := range report.Summary {
		if c.ContractNumber == "C300" && c.LineCount != 0 {
			t.Fatalf("inactive contract counted %d lines", c.LineCount)
		}
		if c.ContractNumber == "C200" && c.LineCount != 1 {
			t.Fatalf("C200 line count=%d", c.LineCount)
		}
	}
}

func TestDupSearchRejectsBaseInSearch(t *testing.T) {
	searcher := &DupSearcher{Policy: testPolicy()}
	_, err := searcher.BeginDupSearch(context.Background(), nil,
		internal.SourceSubmission, []internal.SourceSystem{internal.SourceSubmission}, internal.KeyReduced)
	if err == nil {
		t.Fatal("want error for base in search set")
	}
}

func TestReviewDraftRoundTripAndDrop(t *testing.T) {
	sub := line(internal.SourceSubmission, "sub0", "C100", "00123", "EA", 1, "$10.00", "ACME")
	hubA := line(internal.SourceContractHub, "hub0", "C200", "12-3", "EA", 1, "$10.00", "ACME")
	hubB := line(internal.SourceContractHub, "hub1", "C300", "123", "BX", 10, "$95.00", "ACME")
	stacked := []internal.ContractLine{hubA, hubB, sub}

	searcher := &DupSearcher{Policy: testPolicy()}
	draft, err := searcher.BeginDupSearch(context.Background(), stacked,
		internal.SourceSubmission, []internal.SourceSystem{internal.SourceContractHub}, internal.KeyReduced)
	if err != nil {
		t.Fatal(err)
	}
	if len(draft.Pairs) != 2 {
		t.Fatalf("pairs=%d", len(draft.Pairs))
	}

	path := filepath.Join(t.TempDir(), "draft.xlsx")
	if err := WriteReviewDraft(path, draft); err != nil {
		t.Fatal(err)
	}

	reread, err := ReadReviewDraft(path)
	if err != nil {
		t.Fatal(err)
	}
	if reread.BaseSystem != internal.SourceSubmission || reread.Mode != internal.KeyReduced {
		t.Fatalf("meta lost: %+v", reread)
	}
	if len(reread.Pairs) != 2 {
		t.Fatalf("pairs=%d", len(reread.Pairs))
	}
	if reread.Pairs[0].SameUOM != draft.Pairs[0].SameUOM {
		t.Fatal("typed bool lost in round trip")
	}

	// reviewer marks the first row as a false positive
	reread.Pairs[0].Drop = "x"
	report := searcher.FinalizeDupSearch(reread)
	if len(report.Raw) != 1 {
		t.Fatalf("kept=%d", len(report.Raw))
	}
	if report.Raw[0].Right.ContractNumber != reread.Pairs[1].Right.ContractNumber {
		t.Fatal("wrong row dropped")
	}
}
