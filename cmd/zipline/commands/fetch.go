package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zipline/internal/cli/output"
	"github.com/marmos91/zipline/pkg/apiclient"
)

var (
	fetchURL    string
	fetchOutput string
	fetchForce  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Download an archive from a running server",
	Long: `Download GET /archive/<id>/ from a running zipline server into a file.

The archive is written to a temporary file next to the destination and
renamed once the transfer completes, so an interrupted download never
leaves a truncated archive behind.

Examples:
  zipline fetch holiday
  zipline fetch holiday -O /tmp/holiday.zip --url http://photos.internal:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "Server base URL")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output-file", "O", "", "Destination file (default: <id>.zip)")
	fetchCmd.Flags().BoolVarP(&fetchForce, "force", "f", false, "Overwrite an existing destination file")
}

func runFetch(cmd *cobra.Command, args []string) error {
	id := args[0]

	baseURL, err := serverURL(fetchURL)
	if err != nil {
		return err
	}

	dest := fetchOutput
	if dest == "" {
		dest = id + ".zip"
	}
	if _, err := os.Stat(dest); err == nil && !fetchForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	n, err := apiclient.New(baseURL).Download(ctx, id, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if apiclient.IsNotFound(err) {
			return fmt.Errorf("archive %q not found on %s", id, baseURL)
		}
		return err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable)
	printer.Success(fmt.Sprintf("Saved %s (%s in %s)", dest, output.Size(n), time.Since(start).Round(time.Millisecond)))
	return nil
}
