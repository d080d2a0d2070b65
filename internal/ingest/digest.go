package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// digestHeader is the header row of the validation digest.
var digestHeader = []string{"EvidenceNo", "Status", "StatusDate", "IssuedTo", "Errors"}

// ValidationFailure is one row of the validation digest.
type ValidationFailure struct {
	// Errors are the validation messages.
	Errors []string

	// EvidenceNo is the PRN number.
	EvidenceNo string

	// IssuedTo is the name of the receiving organisation.
	IssuedTo string

	// Status is the NPWD status code.
	Status string

	// StatusDate is when the status last changed.
	StatusDate time.Time
}

// digestCSV renders failures as CSV with a header row.
func digestCSV(failures []ValidationFailure) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(digestHeader); err != nil {
		return "", fmt.Errorf("writing digest header: %w", err)
	}

	for _, f := range failures {
		statusDate := ""
		if !f.StatusDate.IsZero() {
			statusDate = f.StatusDate.UTC().Format(time.RFC3339)
		}

		row := []string{f.EvidenceNo, f.Status, statusDate, f.IssuedTo, strings.Join(f.Errors, validationSeparator)}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing digest row for %s: %w", f.EvidenceNo, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing digest: %w", err)
	}

	return buf.String(), nil
}
