package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const fixture = `
<html><body>
<table>
	<tr><th>Subject</th><th>Grade</th></tr>
	<tr><td>Mathematics</td><td> A </td></tr>
	<tr><td>Physics</td><td>B+</td></tr>
</table>
</body></html>`

func TestTableRows(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixture))
	require.NoError(t, err)

	rows := TableRows(doc.Find("table").First())
	require.Equal(t, [][]string{
		{"Subject", "Grade"},
		{"Mathematics", "A"},
		{"Physics", "B+"},
	}, rows)
}

func TestGetText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div>hello <b>world</b></div>`,
	))
	require.NoError(t, err)
	require.Equal(t, "hello world", GetText(doc.Find("div").Nodes[0]))
}
