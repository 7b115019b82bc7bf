package intake

import (
	"fmt"
	"os"

	"clrecon/internal/storage"
)

// Service drives one intake pass: fetch, register, extract.
type Service struct {
	db        *storage.DB
	connector Connector
	store     *Store
	extractor *Extractor
}

type Result struct {
	Fetched   int
	Stored    int
	Workbooks int
	Flagged   int
	Skipped   int
}

func NewService(db *storage.DB, rawMailDir, submissionsDir string, connector Connector) *Service {
	return &Service{
		db:        db,
		connector: connector,
		store:     NewStore(db, rawMailDir),
		extractor: &Extractor{SubmissionsDir: submissionsDir},
	}
}

// FetchAndExtract pulls unseen messages, registers them, and extracts
// submission workbooks from the ones that look like submissions. A
// message with only PDF content registers as flagged so it surfaces for
// manual transcription instead of vanishing.
func (s *Service) FetchAndExtract(label string, max int) (Result, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return Result{}, err
	}

	var result Result
	result.Fetched = len(messages)

	for _, msg := range messages {
		row, err := s.store.Save(msg)
		if err != nil {
			return result, err
		}
		result.Stored++

		extraction, err := s.extractor.Extract(msg.Raw, sanitizeFileName(msg.MessageID))
		if err != nil {
			fmt.Printf("intake: %s: %v\n", msg.MessageID, err)
			_ = s.db.UpdateIntakeStatus(row.ID, "error")
			continue
		}

		detect := DetectSubmission(extraction.Subject, extraction.Text, extraction.HTML, extraction.AttachmentNames)
		switch {
		case len(extraction.SavedWorkbooks) > 0:
			result.Workbooks += len(extraction.SavedWorkbooks)
			_ = s.db.UpdateIntakeStatus(row.ID, "extracted")
		case len(extraction.FlaggedPDFs) > 0 && detect.IsSubmission:
			result.Flagged++
			_ = s.db.UpdateIntakeStatus(row.ID, "flagged")
		default:
			result.Skipped++
			_ = s.db.UpdateIntakeStatus(row.ID, "skipped")
		}
	}

	return result, nil
}

// ReprocessFetched re-runs extraction over registered messages stuck in
// the fetched state, reading raw MIME back from disk.
func (s *Service) ReprocessFetched(limit int) (Result, error) {
	rows, err := s.db.ListIntakeByStatus("fetched", limit)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, row := range rows {
		raw, err := os.ReadFile(row.RawRef)
		if err != nil {
			_ = s.db.UpdateIntakeStatus(row.ID, "error")
			continue
		}
		extraction, err := s.extractor.Extract(raw, sanitizeFileName(row.MessageID))
		if err != nil {
			_ = s.db.UpdateIntakeStatus(row.ID, "error")
			continue
		}
		if len(extraction.SavedWorkbooks) > 0 {
			result.Workbooks += len(extraction.SavedWorkbooks)
			_ = s.db.UpdateIntakeStatus(row.ID, "extracted")
		} else {
			result.Skipped++
			_ = s.db.UpdateIntakeStatus(row.ID, "skipped")
		}
	}
	return result, nil
}
