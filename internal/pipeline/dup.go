package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"clrecon/internal"
	"clrecon/internal/config"
	"clrecon/internal/embed"
)

// RatioPolicy is the each-cost review band, wider across manufacturers
// than within one.
type RatioPolicy struct {
	CrossLow  decimal.Decimal
	CrossHigh decimal.Decimal
	SameLow   decimal.Decimal
	SameHigh  decimal.Decimal
}

func RatioPolicyFromConfig(cfg config.Config) RatioPolicy {
	return RatioPolicy{
		CrossLow:  decimal.NewFromFloat(cfg.RatioCrossLow),
		CrossHigh: decimal.NewFromFloat(cfg.RatioCrossHigh),
		SameLow:   decimal.NewFromFloat(cfg.RatioSameLow),
		SameHigh:  decimal.NewFromFloat(cfg.RatioSameHigh),
	}
}

// outside reports whether the ratio falls outside the applicable band.
// The unusable sentinel always reads as an outlier.
func (p RatioPolicy) outside(ratio decimal.Decimal, sameManufacturer bool) bool {
	if ratio.Equal(internal.RatioUnusable) {
		return true
	}
	low, high := p.CrossLow, p.CrossHigh
	if sameManufacturer {
		low, high = p.SameLow, p.SameHigh
	}
	return ratio.LessThanOrEqual(low) || ratio.GreaterThanOrEqual(high)
}

// EachCostDiff is the left/right per-each cost ratio. A zero left QOE or
// a zero right per-each cost yields the unusable sentinel instead of an
// error.
func EachCostDiff(left, right internal.ContractLine) decimal.Decimal {
	if left.QOE == 0 || right.QOE == 0 {
		return internal.RatioUnusable
	}
	rightEach := right.UnitCost.Div(decimal.NewFromFloat(right.QOE))
	if rightEach.IsZero() {
		return internal.RatioUnusable
	}
	leftEach := left.UnitCost.Div(decimal.NewFromFloat(left.QOE))
	return leftEach.Div(rightEach)
}

// Classify applies the review-or-deactivate rule to a confirmed pair.
// Anything with a unit, quantity, or cost anomaly goes to a human;
// clean exact duplicates are safe to deactivate automatically.
func (p RatioPolicy) Classify(pair internal.DupPair) internal.Action {
	if !pair.SameUOM || !pair.SameQOE {
		return internal.ActionReview
	}
	same := pair.Left.Manufacturer != "" && pair.Left.Manufacturer == pair.Right.Manufacturer
	if p.outside(pair.EachCostDiff, same) {
		return internal.ActionReview
	}
	if pair.Left.UOM == "EA" && pair.Left.QOE != 1 {
		return internal.ActionReview
	}
	return internal.ActionDeactivate
}

type DupSearcher struct {
	Policy RatioPolicy

	// Scorer may be nil; pairs then keep the maximal-similarity default
	// so nothing is silently dropped for lack of a scoring backend.
	Scorer embed.Scorer
}

// BeginDupSearch joins the base system's lines against the search
// systems' lines on the selected key and emits the first-pass draft for
// human review. Similarity is scored once per distinct description pair.
func (d *DupSearcher) BeginDupSearch(ctx context.Context, stacked []internal.ContractLine,
	base internal.SourceSystem, searches []internal.SourceSystem, mode internal.KeyMode) (*internal.ReviewDraft, error) {

	inSearch := map[internal.SourceSystem]struct{}{}
	for _, s := range searches {
		if s == base {
			return nil, fmt.Errorf("dup search: %s cannot be both base and search system", base)
		}
		inSearch[s] = struct{}{}
	}

	rightByKey := map[string][]internal.ContractLine{}
	for _, line := range stacked {
		if _, ok := inSearch[line.SourceSystem]; !ok {
			continue
		}
		if key := mode.Of(line); key != "" {
			rightByKey[key] = append(rightByKey[key], line)
		}
	}

	var pairs []internal.DupPair
	for _, left := range stacked {
		if left.SourceSystem != base {
			continue
		}
		key := mode.Of(left)
		if key == "" {
			continue
		}
		for _, right := range rightByKey[key] {
			pairs = append(pairs, internal.DupPair{
				Left:         left,
				Right:        right,
				SameUOM:      left.UOM == right.UOM,
				SameQOE:      left.QOE == right.QOE,
				EachCostDiff: EachCostDiff(left, right),
				Similarity:   1,
			})
		}
	}

	if err := d.score(ctx, pairs); err != nil {
		return nil, err
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Right.ContractNumber != pairs[j].Right.ContractNumber {
			return pairs[i].Right.ContractNumber < pairs[j].Right.ContractNumber
		}
		return pairs[i].Left.Seq < pairs[j].Left.Seq
	})

	return &internal.ReviewDraft{
		BaseSystem:    base,
		SearchSystems: searches,
		Mode:          mode,
		Pairs:         pairs,
	}, nil
}

// score fills in similarity for each pair, batching through the scorer
// so each distinct description pair is computed once.
func (d *DupSearcher) score(ctx context.Context, pairs []internal.DupPair) error {
	if d.Scorer == nil || len(pairs) == 0 {
		return nil
	}

	type descPair struct{ left, right string }
	index := map[descPair]int{}
	var unique []embed.TextPair
	for _, p := range pairs {
		dp := descPair{p.Left.Description, p.Right.Description}
		if _, ok := index[dp]; !ok {
			index[dp] = len(unique)
			unique = append(unique, embed.TextPair{Left: dp.left, Right: dp.right})
		}
	}

	scores, err := d.Scorer.ScorePairs(ctx, unique)
	if err != nil {
		return fmt.Errorf("dup search: similarity: %w", err)
	}
	for i := range pairs {
		dp := descPair{pairs[i].Left.Description, pairs[i].Right.Description}
		pairs[i].Similarity = scores[index[dp]]
	}
	return nil
}

// FinalizeDupSearch consumes the hand-reviewed draft: rows the reviewer
// marked in the drop column are discarded as false positives, the rest
// are classified and grouped by right-side contract. Only pairs whose
// right line is currently active land in the per-contract groups; the
// raw sheet keeps everything for audit.
func (d *DupSearcher) FinalizeDupSearch(draft *internal.ReviewDraft) *internal.MatchReport {
	report := &internal.MatchReport{Groups: map[string][]internal.DupPair{}}

	type countKey struct {
		source   internal.SourceSystem
		contract string
	}
	lineCounts := map[countKey]int{}
	overlaps := map[countKey]int{}
	var countOrder []countKey

	track := func(k countKey) {
		if _, ok := lineCounts[k]; !ok {
			countOrder = append(countOrder, k)
		}
	}

	for _, pair := range draft.Pairs {
		if pair.Drop != "" {
			continue
		}
		pair.Action = d.Policy.Classify(pair)
		report.Raw = append(report.Raw, pair)

		contract := pair.Right.ContractNumber
		if pair.Right.ActiveRank == internal.RankActive {
			if _, ok := report.Groups[contract]; !ok {
				report.GroupOrder = append(report.GroupOrder, contract)
			}
			report.Groups[contract] = append(report.Groups[contract], pair)
		}

		lk := countKey{pair.Left.SourceSystem, pair.Left.ContractNumber}
		rk := countKey{pair.Right.SourceSystem, contract}
		track(lk)
		track(rk)
		overlaps[lk]++
		overlaps[rk]++
		lineCounts[lk] = 0
		lineCounts[rk] = 0
	}

	sort.Strings(report.GroupOrder)
	for _, k := range countOrder {
		report.Summary = append(report.Summary, internal.ContractCount{
			SourceSystem:   k.source,
			ContractNumber: k.contract,
			OverlapCount:   overlaps[k],
		})
	}
	sort.Slice(report.Summary, func(i, j int) bool {
		if report.Summary[i].ContractNumber != report.Summary[j].ContractNumber {
			return report.Summary[i].ContractNumber < report.Summary[j].ContractNumber
		}
		return report.Summary[i].SourceSystem < report.Summary[j].SourceSystem
	})
	return report
}

// CountLines fills per-contract active-line totals into a report summary
// from the stacked table the search ran over.
func CountLines(report *internal.MatchReport, stacked []internal.ContractLine) {
	totals := map[internal.SourceSystem]map[string]int{}
	for _, line := range stacked {
		if line.ActiveRank != internal.RankActive {
			continue
		}
		if totals[line.SourceSystem] == nil {
			totals[line.SourceSystem] = map[string]int{}
		}
		totals[line.SourceSystem][line.ContractNumber]++
	}
	for i := range report.Summary {
		s := report.Summary[i]
		report.Summary[i].LineCount = totals[s.SourceSystem][s.ContractNumber]
	}
}
