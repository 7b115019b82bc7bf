package pipeline

import (
	"sort"
	"strings"

	"clrecon/internal"
)

// GapCheck finds old-contract lines with no replacement coverage in the
// submission: the set difference, by the selected key, between the
// contract-hub lines of the old contract and all submitted lines. An
// empty result means the submission fully covers the old contract.
//
// Item type is enriched from the old contract's own active ledger lines
// carrying the same key; lines with no such ledger presence tag as
// "Special".
func GapCheck(stacked []internal.ContractLine, oldContract string, mode internal.KeyMode) []internal.GapLine {
	oldContract = strings.ToUpper(strings.TrimSpace(oldContract))

	submitted := map[string]struct{}{}
	ledgerType := map[string]string{}
	for _, line := range stacked {
		switch line.SourceSystem {
		case internal.SourceSubmission:
			if key := mode.Of(line); key != "" {
				submitted[key] = struct{}{}
			}
		case internal.SourceLedger:
			if line.ContractNumber != oldContract {
				continue
			}
			if line.ActiveRank != internal.RankActive || line.ItemType == "" {
				continue
			}
			if key := mode.Of(line); key != "" {
				if _, ok := ledgerType[key]; !ok {
					ledgerType[key] = line.ItemType
				}
			}
		}
	}

	var out []internal.GapLine
	for _, line := range stacked {
		if line.SourceSystem != internal.SourceContractHub || line.ContractNumber != oldContract {
			continue
		}
		key := mode.Of(line)
		if key == "" {
			continue
		}
		if _, covered := submitted[key]; covered {
			continue
		}
		itemType := ledgerType[key]
		if itemType == "" {
			itemType = "Special"
		}
		out = append(out, internal.GapLine{Line: line, ItemType: itemType})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Line.Seq < out[j].Line.Seq })
	return out
}
