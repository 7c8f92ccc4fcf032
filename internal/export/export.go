package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/amitsh06/leadgen/internal/models"
)

// Export wraps a job's results for download. Incomplete marks partial
// results from a failed job so consumers can tell them apart from a
// clean run.
type Export struct {
	JobID      string            `json:"job_id"`
	Query      string            `json:"query"`
	Location   string            `json:"location"`
	Status     models.JobStatus  `json:"status"`
	Incomplete bool              `json:"incomplete"`
	Count      int               `json:"count"`
	ExportedAt time.Time         `json:"exported_at"`
	Results    []models.Business `json:"results"`
}

// maxEmailColumns bounds the per-address CSV columns; the full list is
// always present in the all_emails column.
const maxEmailColumns = 3

// headers returns the flat column set used by CSV and Excel exports
func headers() []string {
	cols := []string{
		"name", "category", "address", "phone", "website",
		"rating", "review_count", "latitude", "longitude",
		"primary_email",
	}
	for i := 1; i <= maxEmailColumns; i++ {
		cols = append(cols, fmt.Sprintf("email_%d", i))
	}
	cols = append(cols, "all_emails", "email_template")
	return cols
}

// flatten converts a business to one spreadsheet row matching headers().
// The template is truncated to maxTemplateLength to keep cells readable.
func flatten(b models.Business, maxTemplateLength int) []string {
	rating := ""
	if b.Rating > 0 {
		rating = strconv.FormatFloat(b.Rating, 'f', 1, 64)
	}
	reviews := ""
	if b.ReviewCount > 0 {
		reviews = strconv.Itoa(b.ReviewCount)
	}

	row := []string{
		b.Name, b.Category, b.Address, b.Phone, b.Website,
		rating, reviews, b.Latitude, b.Longitude,
		b.PrimaryEmail,
	}
	for i := 0; i < maxEmailColumns; i++ {
		if i < len(b.Emails) {
			row = append(row, b.Emails[i])
		} else {
			row = append(row, "")
		}
	}
	row = append(row, strings.Join(b.Emails, "; "), truncate(b.EmailTemplate, maxTemplateLength))
	return row
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// WriteJSON serializes the export envelope with indentation
func WriteJSON(w io.Writer, export *Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return &models.ExportError{Format: "json", Err: err}
	}
	return nil
}

// WriteCSV writes the flattened results with a header row
func WriteCSV(w io.Writer, export *Export, maxTemplateLength int) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(headers()); err != nil {
		return &models.ExportError{Format: "csv", Err: err}
	}
	for _, b := range export.Results {
		if err := cw.Write(flatten(b, maxTemplateLength)); err != nil {
			return &models.ExportError{Format: "csv", Err: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &models.ExportError{Format: "csv", Err: err}
	}
	return nil
}
