package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shawkym/chatpane/pkg/bridge"
	"github.com/shawkym/chatpane/pkg/config"
	"github.com/shawkym/chatpane/pkg/widget"
)

type SystemCheck struct {
	Name    string `json:"name"`
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Icon    string `json:"icon,omitempty"`
}

type DoctorOutput struct {
	SystemEnvironment []SystemCheck `json:"system_environment"`
	Configuration     []SystemCheck `json:"configuration"`
	Backend           []SystemCheck `json:"backend"`
	Ready             bool          `json:"ready"`
}

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the configuration and the backend",
	Long:  `Doctor validates the configuration and checks that the backend answers.`,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	addBackendFlags(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output results in JSON format")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	output := DoctorOutput{SystemEnvironment: performSystemChecks()}

	cfg, err := loadConfig()
	if err == nil {
		applyFlagOverrides(cmd.Flags(), cfg)
	}
	output.Configuration = performConfigChecks(cfg, err)

	if err == nil && cfg.Validate() == nil {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		output.Backend = performBackendChecks(ctx, newBridgeClient(cfg), cfg.Backend.URL)
	}
	output.Ready = allPassed(output.Configuration) && len(output.Backend) > 0 && allPassed(output.Backend)

	if doctorJSON {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode doctor output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printHumanReadableOutput(cmd.OutOrStdout(), output)
	return nil
}

func printHumanReadableOutput(w io.Writer, output DoctorOutput) {
	fmt.Fprintln(w, "\nChatpane Doctor - System Health Check")
	fmt.Fprintln(w, strings.Repeat("=", 61))

	sections := []struct {
		title  string
		checks []SystemCheck
	}{
		{"SYSTEM ENVIRONMENT", output.SystemEnvironment},
		{"CONFIGURATION", output.Configuration},
		{"BACKEND", output.Backend},
	}
	for _, section := range sections {
		if len(section.checks) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", section.title)
		fmt.Fprintln(w, strings.Repeat("-", 61))
		for _, check := range section.checks {
			fmt.Fprintf(w, "  %s %s: %s\n", check.Icon, check.Name, check.Message)
		}
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 61))
	if output.Ready {
		fmt.Fprintln(w, "✨ Chatpane is ready. Run 'chatpane serve' or 'chatpane chat'.")
	} else {
		fmt.Fprintln(w, "⚠️  Fix the failed checks above before starting chatpane.")
	}
	fmt.Fprintln(w)
}

func performSystemChecks() []SystemCheck {
	return []SystemCheck{{
		Name:    "Go Runtime",
		Status:  true,
		Message: fmt.Sprintf("%s (%s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH),
		Icon:    "✅",
	}}
}

func performConfigChecks(cfg *config.Config, loadErr error) []SystemCheck {
	source := "defaults"
	if cfgFile != "" {
		source = cfgFile
	}
	if loadErr != nil {
		return []SystemCheck{failed("Config File", loadErr.Error())}
	}

	checks := []SystemCheck{passed("Config File", source)}
	if err := cfg.Validate(); err != nil {
		return append(checks, failed("Validation", err.Error()))
	}
	checks = append(checks, passed("Validation", "ok"))

	sanitizer := "trusted markup"
	if cfg.UI.Sanitize {
		sanitizer = "HTML policy"
	}
	return append(checks, passed("Sanitizer", sanitizer))
}

// performBackendChecks calls both backend endpoints the way the fronts do.
// chain_start is not probed: it would post a message.
func performBackendChecks(ctx context.Context, client *bridge.HTTPClient, url string) []SystemCheck {
	if err := client.Ping(ctx); err != nil {
		return []SystemCheck{failed("Reachable", fmt.Sprintf("%s: %v", url, err))}
	}
	checks := []SystemCheck{passed("Reachable", url)}

	raw, err := client.GetNotifications(ctx)
	if err != nil {
		return append(checks, failed("Notifications", err.Error()))
	}
	items, err := widget.NormalizeNotifications(raw)
	if err != nil {
		return append(checks, failed("Notifications", err.Error()))
	}
	return append(checks, passed("Notifications", fmt.Sprintf("%d item(s)", len(items))))
}

func passed(name, msg string) SystemCheck {
	return SystemCheck{Name: name, Status: true, Message: msg, Icon: "✅"}
}

func failed(name, msg string) SystemCheck {
	return SystemCheck{Name: name, Status: false, Message: msg, Icon: "❌"}
}

func allPassed(checks []SystemCheck) bool {
	for _, c := range checks {
		if !c.Status {
			return false
		}
	}
	return true
}
