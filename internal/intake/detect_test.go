package intake

import "testing"

func TestDetectSubmission(t *testing.T) {
	cases := []struct {
		name        string
		subject     string
		text        string
		html        string
		attachments []string
		want        bool
	}{
		{
			name:        "xlsx with pricing subject",
			subject:     "ACME pricing update C100",
			attachments: []string{"c100_lines.xlsx"},
			want:        true,
		},
		{
			name:    "html table with contract keywords",
			subject: "contract renewal",
			html:    `<p>updated line item pricing</p><table><tr><td>x</td></tr></table>`,
			want:    true,
		},
		{
			name:    "plain chatter",
			subject: "lunch on friday?",
			text:    "noon work for you?",
			want:    false,
		},
		{
			name:        "pdf alone is not enough",
			subject:     "fyi",
			attachments: []string{"invoice.pdf"},
			want:        false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectSubmission(tc.subject, tc.text, tc.html, tc.attachments)
			if got.IsSubmission != tc.want {
				t.Fatalf("score=%.2f reason=%s", got.Score, got.Reason)
			}
		})
	}
}
