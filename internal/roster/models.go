package roster

// Participant is one roster row: the certificate holder's name and an
// optional email address for delivery.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ImportResult holds the outcome of parsing an uploaded roster file. Row
// order from the source file is preserved.
type ImportResult struct {
	Participants []Participant `json:"participants"`
	SkippedRows  int           `json:"skipped_rows"`
}
