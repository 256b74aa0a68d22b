package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/zipline/internal/cli/output"
	"github.com/marmos91/zipline/pkg/archive"
)

func TestArchiveList(t *testing.T) {
	modified := time.Now().Add(-time.Hour)
	list := newArchiveList([]archive.Entry{
		{ID: "holiday", Files: 1200, Size: 3 * 1024 * 1024, ModTime: modified},
		{ID: "empty", ModTime: modified},
	})

	require.Len(t, list, 2)
	assert.Equal(t, "/archive/holiday/", list[0].URL)
	assert.Equal(t, []string{"ID", "Files", "Size", "Modified", "URL"}, list.Headers())

	rows := list.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"holiday", "1,200", "3.0 MiB", "1 hour ago", "/archive/holiday/"}, rows[0])
	assert.Equal(t, "0", rows[1][1])
	assert.Equal(t, "0 B", rows[1][2])

	assert.Equal(t, []string{"2 archives", "1,200", "3.0 MiB", "", ""}, list.Footer())
	assert.Equal(t, output.AlignRight, list.Alignments()[2])
}

func TestArchiveList_Table(t *testing.T) {
	list := newArchiveList([]archive.Entry{{ID: "set_1", Files: 3, Size: 2048}})

	var buf bytes.Buffer
	require.NoError(t, output.NewPrinter(&buf, output.FormatTable).Print(list))

	out := buf.String()
	assert.Contains(t, out, "MODIFIED")
	assert.Contains(t, out, "set_1")
	assert.Contains(t, out, "/archive/set_1/")
	assert.Contains(t, out, "1 archive")
	assert.Contains(t, out, "2.0 KiB")
}

func TestArchiveList_JSON(t *testing.T) {
	list := newArchiveList([]archive.Entry{{ID: "set1", Files: 2, Size: 10}})

	var buf bytes.Buffer
	require.NoError(t, output.NewPrinter(&buf, output.FormatJSON).Print(list))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "set1", decoded[0]["id"])
	assert.Equal(t, "/archive/set1/", decoded[0]["url"])
	assert.EqualValues(t, 2, decoded[0]["files"])
}

func TestRunList(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "photos"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "a.jpg"), []byte("jpeg"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bad name"), 0755))

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	listPath, listOutput = root, "json"
	t.Cleanup(func() { listPath, listOutput = "", "table" })

	var buf bytes.Buffer
	listCmd.SetOut(&buf)
	t.Cleanup(func() { listCmd.SetOut(nil) })
	require.NoError(t, runList(listCmd, nil))

	var decoded []archiveRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "photos", decoded[0].ID)
	assert.Equal(t, 1, decoded[0].Files)
	assert.EqualValues(t, 4, decoded[0].Size)
}
