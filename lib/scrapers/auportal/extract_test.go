package auportal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const profileFixture = `
<html><body>
<table>
	<tr><td> Name </td><td>John</td></tr>
	<tr><td>Register No</td><td>123456789</td></tr>
	<tr><td>lone cell</td></tr>
</table>
</body></html>`

func TestExtractProfile(t *testing.T) {
	profile, err := ExtractProfile([]byte(profileFixture))
	require.NoError(t, err)

	expected := Profile{
		"name":        "John",
		"register_no": "123456789",
	}
	if diff := cmp.Diff(expected, profile); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractProfileNoTables(t *testing.T) {
	_, err := ExtractProfile([]byte(`<html><body><p>nothing here</p></body></html>`))
	require.ErrorIs(t, err, NoTables)
}

const recordsFixture = `
<html><body>
<table>
	<tr><td>Name</td><td>John</td></tr>
</table>
<table>
	<tr><th>Exam Schedule</th><th>Date</th><th>Session</th></tr>
	<tr><td>Mathematics</td><td>12-05-2025</td><td>FN</td></tr>
	<tr><td>Physics</td><td>14-05-2025</td><td>AN</td></tr>
</table>
<table>
	<tr><th>Internal Marks</th><th>Total</th></tr>
	<tr><td>Chemistry</td><td>18</td></tr>
</table>
</body></html>`

func TestExtractRecords(t *testing.T) {
	schedule, err := ExtractRecords([]byte(recordsFixture), KindExamSchedule)
	require.NoError(t, err)
	expected := []Record{
		{"exam_schedule": "Mathematics", "date": "12-05-2025", "session": "FN"},
		{"exam_schedule": "Physics", "date": "14-05-2025", "session": "AN"},
	}
	if diff := cmp.Diff(expected, schedule); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}

	internals, err := ExtractRecords([]byte(recordsFixture), KindInternalMarks)
	require.NoError(t, err)
	require.Len(t, internals, 1)
	require.Equal(t, "18", internals[0]["total"])
}

func TestExtractRecordsMissingSection(t *testing.T) {
	records, err := ExtractRecords([]byte(recordsFixture), KindAssessment)
	require.NoError(t, err)
	require.Empty(t, records)
}

const malformedFixture = `
<html><body>
<table>
	<tr><th>Assessment</th><th>Mark</th></tr>
	<tr><td>only one cell</td></tr>
</table>
</body></html>`

func TestExtractRecordsMalformed(t *testing.T) {
	_, err := ExtractRecords([]byte(malformedFixture), KindAssessment)
	require.ErrorIs(t, err, MalformedTable)
}
