package certificates

import (
	"strings"
	"time"
)

// IssuedCertificate describes one finalized certificate document.
type IssuedCertificate struct {
	RecipientName string    `json:"recipient_name"`
	EventLabel    string    `json:"event_label"`
	Filename      string    `json:"filename"`
	Digest        string    `json:"digest"`
	ArchiveKey    string    `json:"archive_key,omitempty"`
	ArchiveURL    string    `json:"archive_url,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
}

// SetEventRequest updates the current event label.
type SetEventRequest struct {
	EventLabel string `json:"event_label" binding:"required"`
}

// RosterUploadResponse reports the outcome of a roster import.
type RosterUploadResponse struct {
	Imported    int    `json:"imported"`
	SkippedRows int    `json:"skipped_rows"`
	EventLabel  string `json:"event_label"`
}

// BatchStartedResponse is returned when a bulk email batch is accepted.
type BatchStartedResponse struct {
	BatchID string `json:"batch_id"`
	Total   int    `json:"total"`
}

// DeriveFilename turns a recipient name into an attachment filename by
// replacing whitespace with underscores.
func DeriveFilename(recipientName string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(recipientName)), "_") + ".pdf"
}
