package internal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceSystem tags where a contract line was loaded from.
type SourceSystem string

const (
	SourceContractHub  SourceSystem = "ContractHub"
	SourceLedger       SourceSystem = "Ledger"
	SourceLedgerImport SourceSystem = "LedgerImport"
	SourceSubmission   SourceSystem = "Submission"
)

// SeqPrefix keeps seq ids unique across sources within one stacked table.
func (s SourceSystem) SeqPrefix() string {
	switch s {
	case SourceContractHub:
		return "hub"
	case SourceLedger:
		return "led"
	case SourceLedgerImport:
		return "imp"
	case SourceSubmission:
		return "sub"
	default:
		return "x"
	}
}

func ParseSourceSystem(value string) (SourceSystem, bool) {
	switch SourceSystem(value) {
	case SourceContractHub, SourceLedger, SourceLedgerImport, SourceSubmission:
		return SourceSystem(value), true
	default:
		return "", false
	}
}

// KeyMode selects which part-number column drives a join.
type KeyMode int

const (
	KeyReduced KeyMode = iota
	KeyRaw
)

func (m KeyMode) String() string {
	if m == KeyRaw {
		return "raw"
	}
	return "reduced"
}

// Of is the column-selection function for the mode.
func (m KeyMode) Of(line ContractLine) string {
	if m == KeyRaw {
		return line.MFN
	}
	return line.MFNReduced
}

func ParseKeyMode(value string) (KeyMode, bool) {
	switch value {
	case "reduced", "":
		return KeyReduced, true
	case "raw":
		return KeyRaw, true
	default:
		return 0, false
	}
}

// Active Rank values. Rank 1 means every deactivation flag reads active
// and the line has not expired as of the standardization date.
const (
	RankActive   = "1"
	RankInactive = "2"
)

// EpochSentinel replaces dates that fail to parse. Never zero/nil.
var EpochSentinel = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

const DateLayout = "2006-01-02"

// ContractLine is the canonical record: one row per (contract, item) pair
// per source system. Lines are immutable once stacked; matchers derive new
// rows instead of mutating these.
type ContractLine struct {
	ContractNumber string
	MFN            string
	MFNReduced     string
	VendorPart     string
	ItemNumber     string
	Description    string
	UnitCost       decimal.Decimal
	UOM            string
	QOE            float64
	EffectiveDate  time.Time
	ExpirationDate time.Time
	LineNumber     string
	Manufacturer   string
	Vendor         string
	ItemType       string
	OnHold         string
	ActiveLine     string
	LineState      string
	ContractStatus string
	FileName       string
	SourceSystem   SourceSystem
	Seq            string
	ActiveRank     string
}

// SubmissionLine is a prechecked user-submitted row, prior to canonical
// standardization. The sheet name of the submitted workbook carries the
// contract number.
type SubmissionLine struct {
	MFN            string
	MFNReduced     string
	VendorPart     string
	BuyerPart      string
	Description    string
	Price          decimal.Decimal
	UOM            string
	UOMStd         string
	QOE            float64
	EffectiveDate  time.Time
	ExpirationDate time.Time
	ContractNumber string
	FileName       string
}

// Action classifies a confirmed duplicate pair.
type Action string

const (
	ActionDeactivate Action = "Deactivate"
	ActionReview     Action = "Review"
)

// RatioUnusable flags an each-cost ratio that could not be computed
// (zero denominator or zero left QOE).
var RatioUnusable = decimal.NewFromInt(-1)

// DupPair is one joined (base, search) row with its comparison metrics.
type DupPair struct {
	Left         ContractLine
	Right        ContractLine
	SameUOM      bool
	SameQOE      bool
	EachCostDiff decimal.Decimal
	Similarity   float64
	Drop         string
	Action       Action
}

// ContractCount summarizes per-contract line totals and overlap counts for
// the duplicate report.
type ContractCount struct {
	SourceSystem   SourceSystem
	ContractNumber string
	LineCount      int
	OverlapCount   int
}

// ReviewDraft is the output of the first duplicate-search pass. It is
// rendered to a review artifact, hand-annotated, and fed back into the
// finalize pass.
type ReviewDraft struct {
	BaseSystem    SourceSystem
	SearchSystems []SourceSystem
	Mode          KeyMode
	Pairs         []DupPair
}

// MatchReport is the finalized duplicate report, grouped by right-side
// contract number.
type MatchReport struct {
	GroupOrder []string
	Groups     map[string][]DupPair
	Summary    []ContractCount
	Raw        []DupPair
}

// Item-master conformance outcomes.
const (
	IMCheckPassed = "Passed"
	IMCheckFailed = "Failed"
)

// ItemMasterMatch is one (submission line, matched item) pair.
type ItemMasterMatch struct {
	Line           ContractLine
	Item           ContractLine
	Similarity     float64
	Conversion     float64
	ValidForBuying bool
	AllValidBuyUOM string
	Check          string
	MatchedItems   int
}

// GapLine is an old-contract line with no replacement coverage in the
// submission. ItemType defaults to "Special" when the contract has no
// active ledger presence.
type GapLine struct {
	Line     ContractLine
	ItemType string
}

// AutoResponseSubject reports whether a subject line is mailbox noise
// that can never carry a submission: auto-replies, bounce reports, read
// receipts. Connectors drop these before the raw message is stored.
func AutoResponseSubject(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	for _, prefix := range []string{
		"automatic reply", "auto reply", "auto-reply", "out of office",
		"undeliverable", "delivery status notification", "read:",
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// IntakeMessage is a fetched mailbox message that may carry a submission.
type IntakeMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// IntakeRow tracks one registered intake message.
type IntakeRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}
