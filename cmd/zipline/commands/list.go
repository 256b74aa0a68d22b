package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zipline/internal/cli/output"
	"github.com/marmos91/zipline/pkg/archive"
	"github.com/marmos91/zipline/pkg/config"
)

var (
	listOutput string
	listPath   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the archives the server can stream",
	Long: `List every directory under the archive root whose name is a valid
archive identifier, with its file count and uncompressed size.

Examples:
  zipline list
  zipline list --path /srv/photos --output json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
	listCmd.Flags().StringVar(&listPath, "path", "", "Archive root (overrides archive.root)")
}

// archiveRow is the JSON/YAML shape of one listed archive.
type archiveRow struct {
	ID       string    `json:"id" yaml:"id"`
	URL      string    `json:"url" yaml:"url"`
	Files    int       `json:"files" yaml:"files"`
	Size     int64     `json:"size" yaml:"size"`
	Modified time.Time `json:"modified" yaml:"modified"`
}

// archiveList renders as a table or marshals as a list.
type archiveList []archiveRow

// Headers implements output.TableRenderer.
func (l archiveList) Headers() []string {
	return []string{"ID", "Files", "Size", "Modified", "URL"}
}

// Rows implements output.TableRenderer.
func (l archiveList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		rows = append(rows, []string{
			a.ID,
			output.Count(int64(a.Files)),
			output.Size(a.Size),
			output.Ago(a.Modified),
			a.URL,
		})
	}
	return rows
}

// Alignments implements output.ColumnAligner.
func (l archiveList) Alignments() []output.Align {
	return []output.Align{output.AlignLeft, output.AlignRight, output.AlignRight}
}

// Footer implements output.Footer with the totals of the listing.
func (l archiveList) Footer() []string {
	var files, size int64
	for _, a := range l {
		files += int64(a.Files)
		size += a.Size
	}
	noun := "archives"
	if len(l) == 1 {
		noun = "archive"
	}
	return []string{fmt.Sprintf("%d %s", len(l), noun), output.Count(files), output.Size(size), "", ""}
}

func newArchiveList(entries []archive.Entry) archiveList {
	list := make(archiveList, 0, len(entries))
	for _, e := range entries {
		list = append(list, archiveRow{
			ID:       e.ID,
			URL:      "/archive/" + e.ID + "/",
			Files:    e.Files,
			Size:     e.Size,
			Modified: e.ModTime,
		})
	}
	return list
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	root := cfg.Archive.Root
	if listPath != "" {
		root = listPath
	}

	locator, err := archive.NewLocator(root)
	if err != nil {
		return err
	}
	entries, err := locator.List()
	if err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format)
	if len(entries) == 0 && format == output.FormatTable {
		printer.Warning("No archives found in " + locator.Root())
		return nil
	}
	return printer.Print(newArchiveList(entries))
}
