package pipeline

import (
	"fmt"

	"clrecon/internal"
)

// stackOrder fixes the cross-source ordering of the combined table so
// downstream joins and reports are reproducible run to run.
var stackOrder = []internal.SourceSystem{
	internal.SourceContractHub,
	internal.SourceLedger,
	internal.SourceLedgerImport,
	internal.SourceSubmission,
}

// Stack filters each source to the in-scope contracts and concatenates
// them in the fixed source order. An empty result is legitimate, a scope
// can simply have no standardized lines yet.
func Stack(scopeContracts []string, bySource map[internal.SourceSystem][]internal.ContractLine) ([]internal.ContractLine, error) {
	inScope := map[string]struct{}{}
	for _, c := range scopeContracts {
		inScope[c] = struct{}{}
	}

	var out []internal.ContractLine
	seen := map[string]internal.SourceSystem{}
	for _, source := range stackOrder {
		for _, line := range bySource[source] {
			if _, ok := inScope[line.ContractNumber]; !ok {
				continue
			}
			if prev, dup := seen[line.Seq]; dup {
				return nil, fmt.Errorf("stack: seq %s collides across %s and %s", line.Seq, prev, line.SourceSystem)
			}
			seen[line.Seq] = line.SourceSystem
			out = append(out, line)
		}
	}
	return out, nil
}

// BySource splits a stacked table back out per source system.
func BySource(lines []internal.ContractLine) map[internal.SourceSystem][]internal.ContractLine {
	out := map[internal.SourceSystem][]internal.ContractLine{}
	for _, line := range lines {
		out[line.SourceSystem] = append(out[line.SourceSystem], line)
	}
	return out
}
