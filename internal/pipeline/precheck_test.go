package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"clrecon/internal/lookup"
	"clrecon/internal/standardize"
	"clrecon/internal/tabfile"
)

func testUOMTable(t *testing.T) *lookup.UOMTable {
	t.Helper()
	dir := t.TempDir()
	blob := "see UOM,use UOM\nEA,EA\nEACH,EA\nCS,CS\nCASE,CS\nBX,BX\n"
	if err := os.WriteFile(filepath.Join(dir, "UOM.csv"), []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}
	uom, err := lookup.LoadUOMTable(dir)
	if err != nil {
		t.Fatal(err)
	}
	return uom
}

func writeSubmission(t *testing.T, dir, file, sheet string, rows [][]string) {
	t.Helper()
	tbl := tabfile.New(sheet, standardize.SubmissionTemplateSchema)
	for _, r := range rows {
		tbl.Append(r)
	}
	if err := tabfile.WriteWorkbook(filepath.Join(dir, file), []*tabfile.Table{tbl}); err != nil {
		t.Fatal(err)
	}
}

func TestPrecheckPassWritesCombined(t *testing.T) {
	dir := t.TempDir()
	writeSubmission(t, dir, "acme.xlsx", "C100", [][]string{
		{"00123", "VP1", "", "STERILE GLOVE", "$10.00", "each", "1", "2025-01-01", "2027-01-01"},
		{"456", "", "", "SUTURE KIT", "$120.00", "case", "12", "2025-01-01", "2027-01-01"},
	})

	p := &Prechecker{SubmissionsDir: dir, UOM: testUOMTable(t)}
	report, err := p.Run()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Passed() {
		t.Fatalf("findings: %v", report.Findings)
	}
	if report.RowCount != 2 {
		t.Fatalf("rows=%d", report.RowCount)
	}

	tbl, err := tabfile.ReadSheet(filepath.Join(dir, standardize.PrecheckedFile), "combined")
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Require(standardize.PrecheckedSchema); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Get(tbl.Rows[0], "MFN RF"); got != "123" {
		t.Fatalf("reduced key=%q", got)
	}
	if got := tbl.Get(tbl.Rows[0], "UOM STD"); got != "EA" {
		t.Fatalf("standardized uom=%q", got)
	}
	if got := tbl.Get(tbl.Rows[0], "Contract Number"); got != "C100" {
		t.Fatalf("contract from sheet name=%q", got)
	}
}

func TestPrecheckAggregatesFindings(t *testing.T) {
	dir := t.TempDir()
	writeSubmission(t, dir, "acme.xlsx", "C100", [][]string{
		// missing part number
		{"", "", "", "STERILE GLOVE", "$10.00", "EA", "1", "2025-01-01", "2027-01-01"},
		// unknown UOM
		{"111", "", "", "SUTURE KIT", "$5.00", "PALLET", "1", "2025-01-01", "2027-01-01"},
		// EA with QOE != 1
		{"222", "", "", "BANDAGE", "$2.00", "EA", "6", "2025-01-01", "2027-01-01"},
		// duplicate of the next row by reduced key
		{"00333", "", "", "TAPE", "$1.00", "CS", "12", "2025-01-01", "2027-01-01"},
		{"333", "", "", "TAPE ROLL", "$1.00", "CS", "12", "2025-01-01", "2027-01-01"},
	})

	p := &Prechecker{SubmissionsDir: dir, UOM: testUOMTable(t)}
	report, err := p.Run()
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed() {
		t.Fatal("want findings")
	}
	if len(report.Findings) != 4 {
		t.Fatalf("findings=%d: %v", len(report.Findings), report.Findings)
	}

	// failed precheck writes no combined artifact
	if _, err := os.Stat(filepath.Join(dir, standardize.PrecheckedFile)); !os.IsNotExist(err) {
		t.Fatal("combined artifact must not exist after a failed precheck")
	}
}

func TestPrecheckFlagsDuplicatesAcrossContracts(t *testing.T) {
	dir := t.TempDir()
	writeSubmission(t, dir, "acme.xlsx", "C100", [][]string{
		{"00123", "", "", "STERILE GLOVE", "$10.00", "EA", "1", "2025-01-01", "2027-01-01"},
	})
	// same part, different workbook and contract, variant spelling
	writeSubmission(t, dir, "acme2.xlsx", "C200", [][]string{
		{"12-3", "", "", "STERILE GLOVE LG", "$11.00", "EA", "1", "2025-01-01", "2027-01-01"},
	})

	p := &Prechecker{SubmissionsDir: dir, UOM: testUOMTable(t)}
	report, err := p.Run()
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed() {
		t.Fatal("cross-contract duplicate must fail precheck")
	}
	if len(report.Findings) != 1 {
		t.Fatalf("findings=%d: %v", len(report.Findings), report.Findings)
	}
	f := report.Findings[0]
	if f.File != "acme2.xlsx" || f.Contract != "C200" {
		t.Fatalf("finding attributed to %s [%s]", f.File, f.Contract)
	}
}

func TestPrecheckNoWorkbooks(t *testing.T) {
	p := &Prechecker{SubmissionsDir: t.TempDir(), UOM: testUOMTable(t)}
	if _, err := p.Run(); err == nil {
		t.Fatal("want error for empty submissions dir")
	}
}
