package intake

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"clrecon/internal/standardize"
	"clrecon/internal/tabfile"
)

// PDFAttachment is a PDF the extractor could open but will not parse.
// Contract lines never come out of PDFs here; the attachment is flagged
// for a human to transcribe.
type PDFAttachment struct {
	Name  string
	Pages int
}

// Extraction is what one message yielded.
type Extraction struct {
	Subject         string
	Text            string
	HTML            string
	AttachmentNames []string
	SavedWorkbooks  []string
	FlaggedPDFs     []PDFAttachment
}

// Extractor lands submission content from raw MIME messages into the
// submissions directory.
type Extractor struct {
	SubmissionsDir string
}

// Extract saves every spreadsheet attachment, converts a submission-like
// HTML table body into a workbook, and flags PDF attachments.
func (e *Extractor) Extract(raw []byte, messageTag string) (*Extraction, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("intake extract: %w", err)
	}

	out := &Extraction{
		Subject: env.GetHeader("Subject"),
		Text:    env.Text,
		HTML:    env.HTML,
	}

	if err := os.MkdirAll(e.SubmissionsDir, 0o755); err != nil {
		return nil, err
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, filename)
		lower := strings.ToLower(filename)

		switch {
		case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
			saved, err := e.saveWorkbook(messageTag, filename, att.Content)
			if err != nil {
				return nil, err
			}
			out.SavedWorkbooks = append(out.SavedWorkbooks, saved)
		case strings.HasSuffix(lower, ".pdf"):
			out.FlaggedPDFs = append(out.FlaggedPDFs, triagePDF(filename, att.Content))
		}
	}

	// A body table is only worth converting when no workbook came along.
	if len(out.SavedWorkbooks) == 0 && env.HTML != "" {
		saved, ok, err := e.convertHTMLTable(env.HTML, messageTag)
		if err != nil {
			return nil, err
		}
		if ok {
			out.SavedWorkbooks = append(out.SavedWorkbooks, saved)
		}
	}

	return out, nil
}

func (e *Extractor) saveWorkbook(messageTag, filename string, content []byte) (string, error) {
	name := sanitizeFileName(messageTag + "_" + filename)
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}
	path := filepath.Join(e.SubmissionsDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// htmlHeaderProbes maps template columns to the header substrings that
// identify them in a body table.
var htmlHeaderProbes = map[string][]string{
	"Mfg Part Num":    {"mfg", "manufacturer part", "mpn"},
	"Vendor Part Num": {"vendor part", "vpn"},
	"Buyer Part Num":  {"buyer part", "item number"},
	"Description":     {"description"},
	"Contract Price":  {"price", "cost"},
	"UOM":             {"uom", "unit of measure"},
	"QOE":             {"qoe", "qty", "quantity"},
	"Effective Date":  {"effective"},
	"Expiration Date": {"expiration", "expiry"},
}

// convertHTMLTable turns an HTML body table with submission-like headers
// into a template-shaped workbook. ok=false means no convertible table.
func (e *Extractor) convertHTMLTable(html, messageTag string) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false, nil
	}

	var tbl *tabfile.Table
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}

		var headers []string
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
		})

		colFor := map[string]int{}
		for column, probes := range htmlHeaderProbes {
			for i, h := range headers {
				if containsAny(h, probes) {
					colFor[column] = i
					break
				}
			}
		}
		// At minimum a part number and a price identify a submission.
		if _, ok := colFor["Mfg Part Num"]; !ok {
			return true
		}
		if _, ok := colFor["Contract Price"]; !ok {
			return true
		}

		contract := contractFromSubject(messageTag)
		tbl = tabfile.New(contract, standardize.SubmissionTemplateSchema)
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}
			record := make([]string, len(standardize.SubmissionTemplateSchema))
			for i, column := range standardize.SubmissionTemplateSchema {
				if idx, ok := colFor[column]; ok && idx < len(cells) {
					record[i] = cells[idx]
				}
			}
			if record[0] != "" {
				tbl.Append(record)
			}
		})
		return false
	})

	if tbl == nil || tbl.Len() == 0 {
		return "", false, nil
	}

	name := sanitizeFileName(messageTag + "_body.xlsx")
	path := filepath.Join(e.SubmissionsDir, name)
	if err := tabfile.WriteWorkbook(path, []*tabfile.Table{tbl}); err != nil {
		return "", false, err
	}
	return name, true, nil
}

func triagePDF(filename string, content []byte) PDFAttachment {
	att := PDFAttachment{Name: filename}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return att
	}
	att.Pages = r.NumPage()
	return att
}

func containsAny(s string, probes []string) bool {
	for _, p := range probes {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// contractFromSubject pulls a contract-number-looking token out of the
// message tag, falling back to the tag itself. The precheck pass will
// reject it if the reviewer needs to rename the sheet.
func contractFromSubject(tag string) string {
	for _, tok := range strings.Fields(tag) {
		tok = strings.Trim(tok, ".,;:()[]")
		if len(tok) >= 4 && strings.IndexFunc(tok, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0 {
			return strings.ToUpper(tok)
		}
	}
	return strings.ToUpper(sanitizeFileName(tag))
}

func sanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
