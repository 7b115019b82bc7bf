package pipeline

import (
	"testing"

	"clrecon/internal"
)

func TestStackFiltersAndOrders(t *testing.T) {
	bySource := map[internal.SourceSystem][]internal.ContractLine{
		internal.SourceSubmission: {
			line(internal.SourceSubmission, "sub0", "C100", "1", "EA", 1, "$1", "ACME"),
		},
		internal.SourceLedger: {
			line(internal.SourceLedger, "led0", "C100", "1", "EA", 1, "$1", "ACME"),
			line(internal.SourceLedger, "led1", "C999", "2", "EA", 1, "$1", "ACME"),
		},
		internal.SourceContractHub: {
			line(internal.SourceContractHub, "hub0", "C100", "1", "EA", 1, "$1", "ACME"),
		},
	}

	stacked, err := Stack([]string{"C100"}, bySource)
	if err != nil {
		t.Fatal(err)
	}
	if len(stacked) != 3 {
		t.Fatalf("len=%d", len(stacked))
	}
	// hub first, then ledger, submission last
	if stacked[0].Seq != "hub0" || stacked[1].Seq != "led0" || stacked[2].Seq != "sub0" {
		t.Fatalf("order: %s, %s, %s", stacked[0].Seq, stacked[1].Seq, stacked[2].Seq)
	}
	for _, l := range stacked {
		if l.ContractNumber != "C100" {
			t.Fatalf("out-of-scope line %s", l.Seq)
		}
	}
}

func TestStackEmptyScopeYieldsEmptyTable(t *testing.T) {
	bySource := map[internal.SourceSystem][]internal.ContractLine{
		internal.SourceLedger: {
			line(internal.SourceLedger, "led0", "C100", "1", "EA", 1, "$1", "ACME"),
		},
	}
	stacked, err := Stack([]string{"C777"}, bySource)
	if err != nil {
		t.Fatal(err)
	}
	if len(stacked) != 0 {
		t.Fatalf("len=%d", len(stacked))
	}
}

func TestStackSeqCollision(t *testing.T) {
	dup := line(internal.SourceLedger, "led0", "C100", "1", "EA", 1, "$1", "ACME")
	bySource := map[internal.SourceSystem][]internal.ContractLine{
		internal.SourceLedger: {dup, dup},
	}
	if _, err := Stack([]string{"C100"}, bySource); err == nil {
		t.Fatal("want seq collision error")
	}
}
