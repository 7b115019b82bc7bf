package intake

import "strings"

type DetectResult struct {
	IsSubmission bool
	Score        float64
	Reason       string
}

var detectKeywords = []string{
	"submission", "contract", "price file", "pricing", "renewal",
	"line item", "cross reference", "quote", "catalog",
}

// DetectSubmission scores whether a message looks like a contract-line
// submission. Spreadsheet attachments are the strongest signal; subject
// and body keywords and HTML tables add to it.
func DetectSubmission(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") {
			score += 0.4
			break
		}
	}
	for _, name := range attachmentNames {
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			score += 0.15
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	isSubmission := score >= 0.45
	reason := "rules_negative"
	if isSubmission {
		reason = "rules_positive"
	}

	return DetectResult{IsSubmission: isSubmission, Score: score, Reason: reason}
}
