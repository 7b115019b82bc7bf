package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clrecon/internal"
	"clrecon/internal/config"
	"clrecon/internal/embed"
	"clrecon/internal/intake"
	"clrecon/internal/lookup"
	"clrecon/internal/pipeline"
	"clrecon/internal/scope"
	"clrecon/internal/standardize"
	"clrecon/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "precheck":
		uom, err := lookup.LoadUOMTable(cfg.SharedDir)
		must(err)
		prechecker := &pipeline.Prechecker{SubmissionsDir: cfg.SubmissionsDir, UOM: uom}
		report, err := prechecker.Run()
		must(err)
		_ = db.LogRun("precheck", map[string]any{"files": len(report.Files), "findings": len(report.Findings), "rows": report.RowCount})
		if !report.Passed() {
			out := filepath.Join(cfg.OutputDir, "precheck_findings.xlsx")
			must(pipeline.WritePrecheckFindings(out, report))
			for _, f := range report.Findings {
				fmt.Println(f)
			}
			must(fmt.Errorf("precheck failed: %d findings, report at %s", len(report.Findings), out))
		}
		fmt.Printf("precheck passed: %d files, %d rows combined\n", len(report.Files), report.RowCount)
	case "scope:draft":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		manufacturer := fs.String("manufacturer", "", "manufacturer code for submission lines")
		vendor := fs.String("vendor", "", "vendor name for submission lines")
		_ = fs.Parse(os.Args[2:])

		std := newStandardizer(cfg)
		cache := &storage.Cache{DB: db}
		ledger, err := cache.Get(internal.SourceLedger, std.Ledger)
		must(err)
		submission, err := std.Submission(*manufacturer, *vendor)
		must(err)
		manufacturers, err := lookup.LoadManufacturers(cfg.SharedDir)
		must(err)
		vendors, err := lookup.LoadVendors(cfg.SharedDir)
		must(err)

		rows := scope.BuildDraft(submission, ledger, manufacturers, vendors)
		out := filepath.Join(cfg.OutputDir, "scope_draft.xlsx")
		must(scope.WriteDraft(out, rows))
		fmt.Printf("scope draft written: %d candidate contracts, %s\n", len(rows), out)
	case "scope:resolve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		term := fs.String("term", "", "manufacturer/vendor search term")
		reviewed := fs.String("reviewed", "", "reviewed scope draft path")
		_ = fs.Parse(os.Args[2:])

		contracts, err := resolveScope(cfg, *term, *reviewed)
		must(err)
		for _, c := range contracts {
			fmt.Println(c)
		}
	case "stack":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		term := fs.String("term", "", "manufacturer/vendor search term")
		reviewed := fs.String("reviewed", "", "reviewed scope draft path")
		manufacturer := fs.String("manufacturer", "", "manufacturer code for submission lines")
		vendor := fs.String("vendor", "", "vendor name for submission lines")
		out := fs.String("out", "", "stacked table output path")
		_ = fs.Parse(os.Args[2:])

		stacked, err := loadStacked(cfg, db, *term, *reviewed, *manufacturer, *vendor)
		must(err)
		path := *out
		if path == "" {
			path = filepath.Join(cfg.OutputDir, "stacked.xlsx")
		}
		must(pipeline.WriteStackedLines(path, stacked))
		_ = db.LogRun("stack", map[string]any{"lines": len(stacked)})
		fmt.Printf("stacked table: %d lines, %s\n", len(stacked), path)
	case "dup:begin":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		base := fs.String("base", string(internal.SourceSubmission), "base source system")
		search := fs.String("search", string(internal.SourceLedger), "comma-separated search systems")
		mode := fs.String("mode", "reduced", "reduced|raw")
		term := fs.String("term", "", "manufacturer/vendor search term")
		reviewed := fs.String("reviewed", "", "reviewed scope draft path")
		manufacturer := fs.String("manufacturer", "", "manufacturer code for submission lines")
		vendor := fs.String("vendor", "", "vendor name for submission lines")
		out := fs.String("out", "", "review draft output path")
		_ = fs.Parse(os.Args[2:])

		baseSystem, searchSystems, keyMode, err := parseDupArgs(*base, *search, *mode)
		must(err)
		stacked, err := loadStacked(cfg, db, *term, *reviewed, *manufacturer, *vendor)
		must(err)

		searcher := &pipeline.DupSearcher{Policy: pipeline.RatioPolicyFromConfig(cfg), Scorer: newScorer(cfg)}
		draft, err := searcher.BeginDupSearch(context.Background(), stacked, baseSystem, searchSystems, keyMode)
		must(err)

		path := *out
		if path == "" {
			path = filepath.Join(cfg.OutputDir, "dup_review_draft.xlsx")
		}
		must(pipeline.WriteReviewDraft(path, draft))
		_ = db.LogRun("dup:begin", map[string]any{"pairs": len(draft.Pairs), "base": *base, "mode": keyMode.String()})
		fmt.Printf("dup search draft: %d pairs, review at %s\n", len(draft.Pairs), path)
	case "dup:finalize":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		draftPath := fs.String("draft", "", "reviewed draft path")
		term := fs.String("term", "", "manufacturer/vendor search term")
		reviewed := fs.String("reviewed", "", "reviewed scope draft path")
		manufacturer := fs.String("manufacturer", "", "manufacturer code for submission lines")
		vendor := fs.String("vendor", "", "vendor name for submission lines")
		out := fs.String("out", "", "match report output path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*draftPath) == "" {
			must(fmt.Errorf("--draft is required"))
		}

		draft, err := pipeline.ReadReviewDraft(*draftPath)
		must(err)
		searcher := &pipeline.DupSearcher{Policy: pipeline.RatioPolicyFromConfig(cfg)}
		report := searcher.FinalizeDupSearch(draft)

		if stacked, err := loadStacked(cfg, db, *term, *reviewed, *manufacturer, *vendor); err != nil {
			fmt.Printf("line counts skipped: %v\n", err)
		} else {
			pipeline.CountLines(report, stacked)
		}

		path := *out
		if path == "" {
			path = filepath.Join(cfg.OutputDir, "dup_report.xlsx")
		}
		must(pipeline.WriteMatchReport(path, report))
		_ = db.LogRun("dup:finalize", map[string]any{"kept": len(report.Raw), "groups": len(report.GroupOrder)})
		fmt.Printf("dup report: %d pairs in %d contract groups, %s\n", len(report.Raw), len(report.GroupOrder), path)
	case "itemmaster":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		term := fs.String("term", "", "manufacturer/vendor search term")
		reviewed := fs.String("reviewed", "", "reviewed scope draft path")
		manufacturer := fs.String("manufacturer", "", "manufacturer code for submission lines")
		vendor := fs.String("vendor", "", "vendor name for submission lines")
		out := fs.String("out", "", "report output path")
		_ = fs.Parse(os.Args[2:])

		stacked, err := loadStacked(cfg, db, *term, *reviewed, *manufacturer, *vendor)
		must(err)
		itemUOMs, err := lookup.LoadItemUOMs(cfg.SharedDir)
		must(err)

		matcher := &pipeline.ItemMasterMatcher{ItemUOMs: itemUOMs, Scorer: newScorer(cfg)}
		matches, err := matcher.Match(context.Background(), stacked)
		must(err)

		failed := 0
		for _, m := range matches {
			if m.Check == internal.IMCheckFailed {
				failed++
			}
		}
		path := *out
		if path == "" {
			path = filepath.Join(cfg.OutputDir, "itemmaster_report.xlsx")
		}
		must(pipeline.WriteItemMasterReport(path, matches))
		_ = db.LogRun("itemmaster", map[string]any{"matches": len(matches), "failed": failed})
		fmt.Printf("item master: %d matches, %d failed, %s\n", len(matches), failed, path)
	case "gapcheck":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		oldContract := fs.String("old", "", "old contract number")
		mode := fs.String("mode", "raw", "reduced|raw")
		term := fs.String("term", "", "manufacturer/vendor search term")
		reviewed := fs.String("reviewed", "", "reviewed scope draft path")
		manufacturer := fs.String("manufacturer", "", "manufacturer code for submission lines")
		vendor := fs.String("vendor", "", "vendor name for submission lines")
		out := fs.String("out", "", "report output path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*oldContract) == "" {
			must(fmt.Errorf("--old is required"))
		}
		keyMode, ok := internal.ParseKeyMode(*mode)
		if !ok {
			must(fmt.Errorf("unsupported key mode: %s", *mode))
		}

		stacked, err := loadStacked(cfg, db, *term, *reviewed, *manufacturer, *vendor)
		must(err)
		gaps := pipeline.GapCheck(stacked, *oldContract, keyMode)
		_ = db.LogRun("gapcheck", map[string]any{"old": *oldContract, "gaps": len(gaps)})
		if len(gaps) == 0 {
			fmt.Printf("gap check %s: full coverage\n", *oldContract)
			return
		}
		path := *out
		if path == "" {
			path = filepath.Join(cfg.OutputDir, "gap_report.xlsx")
		}
		must(pipeline.WriteGapReport(path, gaps))
		fmt.Printf("gap check %s: %d uncovered lines, %s\n", *oldContract, len(gaps), path)
	case "intake:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.IntakeProvider, "gmail|imap")
		label := fs.String("label", cfg.IntakeLabel, "mailbox/label")
		max := fs.Int("max", cfg.IntakeFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])

		connector, err := intake.MakeConnector(strings.ToLower(strings.TrimSpace(*provider)), cfg)
		must(err)
		service := intake.NewService(db, cfg.RawMailDir, cfg.SubmissionsDir, connector)
		result, err := service.FetchAndExtract(*label, *max)
		must(err)
		fmt.Printf("intake done provider=%s fetched=%d workbooks=%d flagged=%d skipped=%d\n",
			*provider, result.Fetched, result.Workbooks, result.Flagged, result.Skipped)
	case "run":
		// One-shot chain up to the human review checkpoint: precheck the
		// submissions, then produce the duplicate-search review draft.
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		base := fs.String("base", string(internal.SourceSubmission), "base source system")
		search := fs.String("search", string(internal.SourceLedger), "comma-separated search systems")
		mode := fs.String("mode", "reduced", "reduced|raw")
		term := fs.String("term", "", "manufacturer/vendor search term")
		reviewed := fs.String("reviewed", "", "reviewed scope draft path")
		manufacturer := fs.String("manufacturer", "", "manufacturer code for submission lines")
		vendor := fs.String("vendor", "", "vendor name for submission lines")
		_ = fs.Parse(os.Args[2:])

		uom, err := lookup.LoadUOMTable(cfg.SharedDir)
		must(err)
		prechecker := &pipeline.Prechecker{SubmissionsDir: cfg.SubmissionsDir, UOM: uom}
		report, err := prechecker.Run()
		must(err)
		if !report.Passed() {
			out := filepath.Join(cfg.OutputDir, "precheck_findings.xlsx")
			must(pipeline.WritePrecheckFindings(out, report))
			must(fmt.Errorf("precheck failed: %d findings, report at %s", len(report.Findings), out))
		}
		fmt.Printf("precheck passed: %d files, %d rows combined\n", len(report.Files), report.RowCount)

		baseSystem, searchSystems, keyMode, err := parseDupArgs(*base, *search, *mode)
		must(err)
		stacked, err := loadStacked(cfg, db, *term, *reviewed, *manufacturer, *vendor)
		must(err)
		searcher := &pipeline.DupSearcher{Policy: pipeline.RatioPolicyFromConfig(cfg), Scorer: newScorer(cfg)}
		draft, err := searcher.BeginDupSearch(context.Background(), stacked, baseSystem, searchSystems, keyMode)
		must(err)

		path := filepath.Join(cfg.OutputDir, "dup_review_draft.xlsx")
		must(pipeline.WriteReviewDraft(path, draft))
		_ = db.LogRun("run", map[string]any{"rows": report.RowCount, "pairs": len(draft.Pairs)})
		fmt.Printf("dup search draft: %d pairs, review at %s then dup:finalize\n", len(draft.Pairs), path)
	case "cache:reset":
		cache := &storage.Cache{DB: db}
		must(cache.Reset())
		fmt.Println("standardized-table cache cleared")
	default:
		usage()
		os.Exit(1)
	}
}

func newStandardizer(cfg config.Config) *standardize.Standardizer {
	return &standardize.Standardizer{
		SharedDir:      cfg.SharedDir,
		HubDir:         cfg.HubDir,
		SubmissionsDir: cfg.SubmissionsDir,
	}
}

func newScorer(cfg config.Config) embed.Scorer {
	if strings.TrimSpace(cfg.EmbedAPIBaseURL) != "" && strings.TrimSpace(cfg.EmbedAPIToken) != "" {
		return &embed.EmbeddingScorer{Provider: embed.NewClient(cfg)}
	}
	return embed.DiceScorer{}
}

func resolveScope(cfg config.Config, term, reviewedPath string) ([]string, error) {
	registry, err := lookup.LoadRegistry(cfg.SharedDir)
	if err != nil {
		return nil, err
	}
	var overrides []string
	if strings.TrimSpace(reviewedPath) != "" {
		overrides, err = scope.ReadReviewed(reviewedPath)
		if err != nil {
			return nil, err
		}
	}
	resolver := &scope.Resolver{Registry: registry}
	return resolver.Resolve(term, overrides)
}

// loadStacked standardizes all four sources (the ledger pair through the
// cache), resolves scope, and stacks.
func loadStacked(cfg config.Config, db *storage.DB, term, reviewedPath, manufacturer, vendor string) ([]internal.ContractLine, error) {
	contracts, err := resolveScope(cfg, term, reviewedPath)
	if err != nil {
		return nil, err
	}

	std := newStandardizer(cfg)
	cache := &storage.Cache{DB: db}

	ledger, err := cache.Get(internal.SourceLedger, std.Ledger)
	if err != nil {
		return nil, err
	}
	ledgerImport, err := cache.Get(internal.SourceLedgerImport, std.LedgerImport)
	if err != nil {
		return nil, err
	}
	hub, err := std.ContractHub()
	if err != nil {
		return nil, err
	}
	submission, err := std.Submission(manufacturer, vendor)
	if err != nil {
		return nil, err
	}

	return pipeline.Stack(contracts, map[internal.SourceSystem][]internal.ContractLine{
		internal.SourceLedger:       ledger,
		internal.SourceLedgerImport: ledgerImport,
		internal.SourceContractHub:  hub,
		internal.SourceSubmission:   submission,
	})
}

func parseDupArgs(base, search, mode string) (internal.SourceSystem, []internal.SourceSystem, internal.KeyMode, error) {
	baseSystem, ok := internal.ParseSourceSystem(base)
	if !ok {
		return "", nil, 0, fmt.Errorf("unsupported base system: %s", base)
	}
	var searchSystems []internal.SourceSystem
	for _, raw := range strings.Split(search, ",") {
		s, ok := internal.ParseSourceSystem(strings.TrimSpace(raw))
		if !ok {
			return "", nil, 0, fmt.Errorf("unsupported search system: %s", raw)
		}
		searchSystems = append(searchSystems, s)
	}
	keyMode, ok := internal.ParseKeyMode(mode)
	if !ok {
		return "", nil, 0, fmt.Errorf("unsupported key mode: %s", mode)
	}
	return baseSystem, searchSystems, keyMode, nil
}

func usage() {
	fmt.Println("usage: clrecon <command>")
	fmt.Println("commands:")
	fmt.Println("  precheck")
	fmt.Println("  scope:draft --manufacturer=ACME --vendor=\"Acme Supply\"")
	fmt.Println("  scope:resolve --term=acme [--reviewed=./out/scope_draft.xlsx]")
	fmt.Println("  stack --term=acme [--reviewed=./out/scope_draft.xlsx]")
	fmt.Println("  dup:begin --base=Submission --search=Ledger,LedgerImport --mode=reduced --term=acme")
	fmt.Println("  dup:finalize --draft=./out/dup_review_draft.xlsx --term=acme")
	fmt.Println("  itemmaster --term=acme")
	fmt.Println("  gapcheck --old=C12345 --mode=raw --term=acme")
	fmt.Println("  intake:fetch --provider=imap --label=INBOX --max=20")
	fmt.Println("  run --term=acme [--base=Submission --search=Ledger --mode=reduced]")
	fmt.Println("  cache:reset")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
