package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zipline/internal/cli/output"
	"github.com/marmos91/zipline/pkg/apiclient"
)

var (
	statusOutput string
	statusURL    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server readiness",
	Long: `Query the readiness endpoint of a running zipline server.

The server address defaults to http://localhost:<server.port>.

Examples:
  zipline status
  zipline status --url http://photos.internal:8080 --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "", "Server base URL")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus is the result of a readiness probe.
type ServerStatus struct {
	URL        string `json:"url" yaml:"url"`
	Running    bool   `json:"running" yaml:"running"`
	Ready      bool   `json:"ready" yaml:"ready"`
	Root       string `json:"root,omitempty" yaml:"root,omitempty"`
	Compressor string `json:"compressor,omitempty" yaml:"compressor,omitempty"`
	Message    string `json:"message" yaml:"message"`
}

// probe asks the server behind client for readiness.
func probe(ctx context.Context, client *apiclient.Client) ServerStatus {
	status := ServerStatus{URL: client.BaseURL(), Message: "Server is not running"}

	resp, err := client.Ready(ctx)
	switch {
	case errors.Is(err, apiclient.ErrInvalidResponse):
		status.Running = true
		status.Message = "Server is running but the health response is invalid"
		return status
	case resp == nil:
		return status
	}

	status.Running = true
	status.Ready = err == nil
	status.Root = resp.Data["root"]
	status.Compressor = resp.Data["compressor"]
	if status.Ready {
		status.Message = "Server is ready"
	} else {
		status.Message = "Server is not ready: " + resp.Error
	}
	return status
}

// Headers implements output.TableRenderer.
func (s ServerStatus) Headers() []string { return []string{"Field", "Value"} }

// Rows implements output.TableRenderer.
func (s ServerStatus) Rows() [][]string {
	return [][]string{
		{"URL", s.URL},
		{"Running", fmt.Sprint(s.Running)},
		{"Ready", fmt.Sprint(s.Ready)},
		{"Root", s.Root},
		{"Compressor", s.Compressor},
		{"Message", s.Message},
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	baseURL, err := serverURL(statusURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()

	status := probe(ctx, apiclient.New(baseURL))
	if err := output.NewPrinter(cmd.OutOrStdout(), format).Print(status); err != nil {
		return err
	}
	if !status.Ready {
		return fmt.Errorf("%s", status.Message)
	}
	return nil
}
