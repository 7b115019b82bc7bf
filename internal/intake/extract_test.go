package intake

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"clrecon/internal/tabfile"
)

func mkXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	if _, err := f.WriteTo(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractSavesWorkbookAttachment(t *testing.T) {
	dir := t.TempDir()
	blob := mkXLSX(t, [][]any{
		{"Mfg Part Num", "Description", "Contract Price"},
		{"00123", "STERILE GLOVE", 10.5},
	})

	raw := []byte("From: rep@example.com\r\n" +
		"Subject: C200 price file\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=xyzzy\r\n" +
		"\r\n" +
		"--xyzzy\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--xyzzy\r\n" +
		"Content-Type: application/vnd.openxmlformats-officedocument.spreadsheetml.sheet\r\n" +
		"Content-Disposition: attachment; filename=\"lines.xlsx\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		base64.StdEncoding.EncodeToString(blob) + "\r\n" +
		"--xyzzy\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"terms.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		base64.StdEncoding.EncodeToString([]byte("not a real pdf")) + "\r\n" +
		"--xyzzy--\r\n")

	e := &Extractor{SubmissionsDir: dir}
	got, err := e.Extract(raw, "msg1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != "C200 price file" {
		t.Fatalf("subject=%q", got.Subject)
	}
	if len(got.SavedWorkbooks) != 1 || got.SavedWorkbooks[0] != "msg1_lines.xlsx" {
		t.Fatalf("workbooks=%v", got.SavedWorkbooks)
	}
	if _, err := os.Stat(filepath.Join(dir, "msg1_lines.xlsx")); err != nil {
		t.Fatal(err)
	}
	if len(got.FlaggedPDFs) != 1 || got.FlaggedPDFs[0].Name != "terms.pdf" {
		t.Fatalf("pdfs=%v", got.FlaggedPDFs)
	}
	// unreadable pdf is still flagged, just with no page count
	if got.FlaggedPDFs[0].Pages != 0 {
		t.Fatalf("pages=%d", got.FlaggedPDFs[0].Pages)
	}
}

func TestExtractConvertsHTMLBodyTable(t *testing.T) {
	dir := t.TempDir()
	raw := []byte("From: rep@example.com\r\n" +
		"Subject: C100 submission\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><table>" +
		"<tr><th>Mfg Part Num</th><th>Description</th><th>Price</th><th>UOM</th><th>Qty</th></tr>" +
		"<tr><td>00123</td><td>STERILE GLOVE</td><td>$10.00</td><td>EA</td><td>1</td></tr>" +
		"<tr><td></td><td>footer junk</td><td></td><td></td><td></td></tr>" +
		"<tr><td>456</td><td>SUTURE KIT</td><td>$120.00</td><td>CS</td><td>12</td></tr>" +
		"</table></body></html>\r\n")

	e := &Extractor{SubmissionsDir: dir}
	got, err := e.Extract(raw, "C100 submission")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.SavedWorkbooks) != 1 {
		t.Fatalf("workbooks=%v", got.SavedWorkbooks)
	}

	tbl, err := tabfile.ReadSheet(filepath.Join(dir, got.SavedWorkbooks[0]), "C100")
	if err != nil {
		t.Fatal(err)
	}
	// the empty-part-number row is dropped
	if tbl.Len() != 2 {
		t.Fatalf("rows=%d", tbl.Len())
	}
	if got := tbl.Get(tbl.Rows[0], "Mfg Part Num"); got != "00123" {
		t.Fatalf("part=%q", got)
	}
	if got := tbl.Get(tbl.Rows[1], "Contract Price"); got != "$120.00" {
		t.Fatalf("price=%q", got)
	}
	if got := tbl.Get(tbl.Rows[0], "QOE"); got != "1" {
		t.Fatalf("qoe=%q", got)
	}
}

func TestExtractSkipsBodyTableWhenWorkbookPresent(t *testing.T) {
	dir := t.TempDir()
	blob := mkXLSX(t, [][]any{{"Mfg Part Num"}, {"1"}})

	raw := []byte("From: rep@example.com\r\n" +
		"Subject: C300 submission\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=xyzzy\r\n" +
		"\r\n" +
		"--xyzzy\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<table><tr><th>Mfg Part Num</th><th>Price</th></tr><tr><td>9</td><td>1</td></tr></table>\r\n" +
		"--xyzzy\r\n" +
		"Content-Type: application/vnd.openxmlformats-officedocument.spreadsheetml.sheet\r\n" +
		"Content-Disposition: attachment; filename=\"real.xlsx\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		base64.StdEncoding.EncodeToString(blob) + "\r\n" +
		"--xyzzy--\r\n")

	e := &Extractor{SubmissionsDir: dir}
	got, err := e.Extract(raw, "msg3")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.SavedWorkbooks) != 1 || got.SavedWorkbooks[0] != "msg3_real.xlsx" {
		t.Fatalf("workbooks=%v", got.SavedWorkbooks)
	}
}
