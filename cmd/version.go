package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shawkym/chatpane/internal/version"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version, commit and build date of chatpane.`,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output version information as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !versionJSON {
		fmt.Fprintln(out, version.GetVersionString())
		return nil
	}

	data, err := json.MarshalIndent(version.GetInfo(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode version info: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
