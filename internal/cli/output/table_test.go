package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sizes is a two-column listing with a right-aligned size and a total.
type sizes [][2]string

func (s sizes) Headers() []string { return []string{"archive_id", "size"} }

func (s sizes) Rows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, r := range s {
		rows = append(rows, []string{r[0], r[1]})
	}
	return rows
}

func (s sizes) Alignments() []Align { return []Align{AlignLeft, AlignRight} }

func (s sizes) Footer() []string { return []string{"total", "1.5 KiB"} }

// plain has neither alignments nor a footer.
type plain struct{}

func (plain) Headers() []string { return []string{"id"} }
func (plain) Rows() [][]string  { return [][]string{{"photos"}} }

// lines returns the non-blank lines of s with surrounding spaces removed.
func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func lineWith(t *testing.T, out []string, substr string) string {
	t.Helper()
	for _, l := range out {
		if strings.Contains(l, substr) {
			return l
		}
	}
	t.Fatalf("no line contains %q in %q", substr, out)
	return ""
}

func TestPrintTable_HeadersVerbatim(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, sizes{{"holiday_2024", "1.0 KiB"}}))

	out := lines(buf.String())
	// Underscores survive in both headers and cells.
	assert.True(t, strings.HasPrefix(out[0], "ARCHIVE_ID"), out[0])
	assert.Contains(t, lineWith(t, out, "holiday_2024"), "1.0 KiB")
}

func TestPrintTable_RightAlignsAndFooter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, sizes{
		{"a", "512 B"},
		{"b", "1.0 KiB"},
	}))

	out := lines(buf.String())
	small := lineWith(t, out, "512 B")
	large := lineWith(t, out, "1.0 KiB")
	assert.True(t, strings.HasSuffix(small, "  512 B"), small)
	assert.Equal(t, len(small), len(large), "sizes end in the same column")
	assert.Contains(t, lineWith(t, out, "total"), "1.5 KiB")
}

func TestPrintTable_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, plain{}))

	out := lines(buf.String())
	assert.Equal(t, []string{"ID", "photos"}, out)
}

func TestFields(t *testing.T) {
	fields := Fields{}.
		Add("Archive root", "/srv/photos").
		Add("Delay", "250ms")
	require.Len(t, fields, 2)
	assert.Equal(t, Field{Label: "Delay", Value: "250ms"}, fields[1])

	var buf bytes.Buffer
	require.NoError(t, fields.Print(&buf))

	out := lines(buf.String())
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "Archive root")
	assert.Contains(t, out[0], "/srv/photos")
	assert.Equal(t, strings.Index(out[0], ":"), strings.Index(out[1], ":"), "values are aligned")
}
