package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amitsh06/leadgen/internal/models"
)

func sampleExport() *Export {
	return &Export{
		JobID:      "job_abc",
		Query:      "coffee shops",
		Location:   "Seattle",
		Status:     models.JobStatusCompleted,
		Incomplete: false,
		Count:      2,
		ExportedAt: time.Now(),
		Results: []models.Business{
			{
				Name:          "Blue Bottle Coffee",
				Category:      "Coffee shop",
				Address:       "300 S Broadway, Los Angeles, CA 90013",
				Phone:         "(213) 555-1234",
				Website:       "https://bluebottlecoffee.com/",
				Rating:        4.6,
				ReviewCount:   1234,
				Latitude:      "34.0505",
				Longitude:     "-118.2489",
				Emails:        []string{"hello@bluebottle.test", "press@bluebottle.test"},
				PrimaryEmail:  "hello@bluebottle.test",
				EmailTemplate: "Hi Blue Bottle team, quick question.",
			},
			{
				Name: "Nameless Kiosk",
			},
		},
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleExport()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded Export
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.JobID != "job_abc" || decoded.Count != 2 {
		t.Errorf("envelope = %+v", decoded)
	}
	if len(decoded.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(decoded.Results))
	}
	if decoded.Results[0].PrimaryEmail != "hello@bluebottle.test" {
		t.Errorf("primary email lost: %+v", decoded.Results[0])
	}
}

func TestWriteJSON_IncompleteFlagSurvives(t *testing.T) {
	export := sampleExport()
	export.Status = models.JobStatusFailed
	export.Incomplete = true

	var buf bytes.Buffer
	if err := WriteJSON(&buf, export); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"incomplete": true`) {
		t.Error("incomplete marker missing from JSON output")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleExport(), 1000); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}

	header := records[0]
	if header[0] != "name" || header[len(header)-1] != "email_template" {
		t.Errorf("header = %v", header)
	}

	row := records[1]
	if row[0] != "Blue Bottle Coffee" {
		t.Errorf("name cell = %q", row[0])
	}
	// rating column
	if row[5] != "4.6" {
		t.Errorf("rating cell = %q", row[5])
	}
	// all_emails joins every address even past the per-column cap
	joined := row[len(row)-2]
	if joined != "hello@bluebottle.test; press@bluebottle.test" {
		t.Errorf("all_emails = %q", joined)
	}

	// A business with only a name yields empty cells, not a short row
	if len(records[2]) != len(header) {
		t.Errorf("sparse row has %d cells, want %d", len(records[2]), len(header))
	}
}

func TestWriteCSV_TruncatesTemplate(t *testing.T) {
	export := sampleExport()
	export.Results[0].EmailTemplate = strings.Repeat("x", 50)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, export, 10); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	cell := records[1][len(records[1])-1]
	if cell != strings.Repeat("x", 10)+"..." {
		t.Errorf("template cell = %q, want truncated", cell)
	}
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExcel(&buf, sampleExport(), 1000); err != nil {
		t.Fatalf("WriteExcel failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("workbook re-open failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "name" {
		t.Errorf("header cell = %q", rows[0][0])
	}
	if rows[1][0] != "Blue Bottle Coffee" {
		t.Errorf("name cell = %q", rows[1][0])
	}
}
