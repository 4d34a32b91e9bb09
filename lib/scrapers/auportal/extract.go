package auportal

import (
	"bytes"
	"fmt"
	"strings"

	"auportal-backend/lib/htmlutil"
	"auportal-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// Profile maps normalized field names to values, taken from the first
// two-column table of the post-login page. The field set varies with
// portal content, there is no fixed schema.
type Profile map[string]string

type Record map[string]string

type RecordKind string

const (
	KindExamSchedule  RecordKind = "exam_schedule"
	KindAssessment    RecordKind = "assessment"
	KindExamResult    RecordKind = "exam_result"
	KindInternalMarks RecordKind = "internals"
)

// markers matched (whitespace and case insensitively) against a
// table's header row to decide which kind it belongs to
var recordMarkers = map[RecordKind][]string{
	KindExamSchedule:  {"schedule", "timetable"},
	KindAssessment:    {"assessment"},
	KindExamResult:    {"result", "grade"},
	KindInternalMarks: {"internal"},
}

func ExtractProfile(html []byte) (Profile, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, NoTables
	}

	profile := Profile{}
	tables.First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) < 2 {
			return
		}
		key := textutil.NormalizeField(cells[0])
		if key == "" {
			return
		}
		profile[key] = cells[1]
	})
	return profile, nil
}

// ExtractRecords pulls the table belonging to the given kind out of the
// page. A page without such a table yields an empty result, the portal
// composes pages differently per student category and a missing section
// is normal. A table that matches but cannot be read as header + rows
// reports MalformedTable.
func ExtractRecords(html []byte, kind RecordKind) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := findRecordTable(doc, kind)
	if table == nil {
		return nil, nil
	}

	rows := htmlutil.TableRows(table)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s table has no rows", MalformedTable, kind)
	}

	keys := make([]string, len(rows[0]))
	usable := false
	for i, cell := range rows[0] {
		keys[i] = textutil.NormalizeField(cell)
		if keys[i] != "" {
			usable = true
		}
	}
	if !usable {
		return nil, fmt.Errorf("%w: %s table has no usable header row", MalformedTable, kind)
	}

	records := []Record{}
	for _, row := range rows[1:] {
		if len(row) != len(keys) {
			return nil, fmt.Errorf(
				"%w: %s row has %d cells, header has %d",
				MalformedTable, kind, len(row), len(keys),
			)
		}
		record := Record{}
		for i, cell := range row {
			if keys[i] == "" {
				continue
			}
			record[keys[i]] = cell
		}
		records = append(records, record)
	}
	return records, nil
}

func findRecordTable(doc *goquery.Document, kind RecordKind) *goquery.Selection {
	markers := recordMarkers[kind]
	var match *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := table.Find("tr").First()
		if textutil.MatchName(header.Text(), markers) {
			match = table
			return false
		}
		return true
	})
	return match
}
