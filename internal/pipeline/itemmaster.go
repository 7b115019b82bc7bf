package pipeline

import (
	"context"
	"fmt"
	"sort"

	"clrecon/internal"
	"clrecon/internal/embed"
	"clrecon/internal/lookup"
)

type ItemMasterMatcher struct {
	ItemUOMs *lookup.ItemUOMs
	Scorer   embed.Scorer
}

// Match joins submission lines against currently active item-master
// ledger lines on the reduced part number and validates each hit against
// the item's registered buying units: the submitted UOM must be a valid
// buying unit and the submitted QOE must equal its conversion factor.
// Failures sort first so the report leads with what needs fixing.
func (m *ItemMasterMatcher) Match(ctx context.Context, stacked []internal.ContractLine) ([]internal.ItemMasterMatch, error) {
	itemsByKey := map[string][]internal.ContractLine{}
	for _, line := range stacked {
		if line.SourceSystem != internal.SourceLedger {
			continue
		}
		if line.ItemType != "Itemmast" || line.ActiveRank != internal.RankActive {
			continue
		}
		if line.MFNReduced != "" {
			itemsByKey[line.MFNReduced] = append(itemsByKey[line.MFNReduced], line)
		}
	}

	var out []internal.ItemMasterMatch
	for _, line := range stacked {
		if line.SourceSystem != internal.SourceSubmission {
			continue
		}
		items := itemsByKey[line.MFNReduced]
		// an item carried on several contracts is still one matched item
		distinct := map[string]struct{}{}
		for _, item := range items {
			distinct[item.ItemNumber] = struct{}{}
		}
		for _, item := range items {
			out = append(out, m.check(line, item, len(distinct)))
		}
	}

	if err := m.score(ctx, out); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Check != out[j].Check {
			return out[i].Check == internal.IMCheckFailed
		}
		return out[i].Line.Seq < out[j].Line.Seq
	})
	return out, nil
}

func (m *ItemMasterMatcher) check(line, item internal.ContractLine, matched int) internal.ItemMasterMatch {
	match := internal.ItemMasterMatch{
		Line:           line,
		Item:           item,
		Similarity:     1,
		Check:          internal.IMCheckFailed,
		MatchedItems:   matched,
		AllValidBuyUOM: m.ItemUOMs.Describe(item.ItemNumber),
	}

	for _, u := range m.ItemUOMs.ValidBuying(item.ItemNumber) {
		if u.UOM != line.UOM {
			continue
		}
		match.ValidForBuying = true
		match.Conversion = u.Conversion
		if line.QOE == u.Conversion {
			match.Check = internal.IMCheckPassed
		}
		break
	}
	return match
}

func (m *ItemMasterMatcher) score(ctx context.Context, matches []internal.ItemMasterMatch) error {
	if m.Scorer == nil || len(matches) == 0 {
		return nil
	}

	type descPair struct{ left, right string }
	index := map[descPair]int{}
	var unique []embed.TextPair
	for _, match := range matches {
		dp := descPair{match.Line.Description, match.Item.Description}
		if _, ok := index[dp]; !ok {
			index[dp] = len(unique)
			unique = append(unique, embed.TextPair{Left: dp.left, Right: dp.right})
		}
	}

	scores, err := m.Scorer.ScorePairs(ctx, unique)
	if err != nil {
		return fmt.Errorf("item master: similarity: %w", err)
	}
	for i := range matches {
		dp := descPair{matches[i].Line.Description, matches[i].Item.Description}
		matches[i].Similarity = scores[index[dp]]
	}
	return nil
}
