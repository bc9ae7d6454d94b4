package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student", "Email", "Quiz 1", "Essay"},
		Rows: []map[string]string{
			{"Student": "Ana", "Email": "ana@example.com", "Quiz 1": "90", "Essay": "75"},
			{"Student": "Ben", "Email": "ben@example.com", "Quiz 1": "40"},
		},
	}
}

func TestCSVExporterRendersSparseRows(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Email,Quiz 1,Essay", lines[0])
	assert.Equal(t, "Ben,ben@example.com,40,", lines[2])
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRenders(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Gradebook")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterStoresNumbers(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Gradebook")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Student", "Email", "Quiz 1", "Essay"}, rows[0])
	assert.Equal(t, "90", rows[1][2])
	assert.Len(t, rows[2], 3)
}

func TestCertificateRenderer(t *testing.T) {
	r := NewCertificateRenderer()
	out, err := r.Render(Certificate{HolderName: "Ana", CourseTitle: "Go 101", Code: "abc", IssuedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = r.Render(Certificate{HolderName: "Ana"})
	assert.Error(t, err)
}
