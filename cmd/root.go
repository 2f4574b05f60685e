package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shawkym/chatpane/internal/version"
	"github.com/shawkym/chatpane/pkg/config"
	"github.com/shawkym/chatpane/pkg/log"
)

const envPrefix = "CHATPANE"

var (
	cfgFile     string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "chatpane",
	Short: "Chat front for an agent backend",
	Long: `Chatpane serves a chat page, or a terminal chat, in front of a backend
that answers chain_start and get_notifications. Replies are routed to chat
bubbles or collapsible video cards, and notifications fill a sidebar.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionString())
			return
		}
		// If no flags, show help
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "Show version information")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding verbose flag: %v\n", err)
	}
}

func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load(".env")

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	level := zerolog.InfoLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	log.InitLogger(os.Stderr, level, true)
}

// loadConfig reads --config when given, otherwise starts from defaults, then
// applies CHATPANE_* environment overrides. The result is not validated yet;
// callers apply their flags first.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		log.WithField("config_path", cfgFile).Debug("loading configuration from file")
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.NewDefaultConfig()
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *config.Config) {
	if viper.IsSet("backend_url") {
		cfg.Backend.URL = viper.GetString("backend_url")
	}
	if viper.IsSet("backend_api_key") {
		cfg.Backend.APIKey = viper.GetString("backend_api_key")
	}
	if viper.IsSet("server_addr") {
		cfg.Server.Addr = viper.GetString("server_addr")
	}
	if viper.IsSet("log_level") {
		cfg.Logging.Level = viper.GetString("log_level")
	}
}

// setupLogging re-initializes the logger from the loaded configuration.
// --verbose still wins over the configured level.
func setupLogging(cfg *config.Config, w io.Writer) {
	level := log.ParseLevel(cfg.Logging.Level)
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	log.InitLogger(w, level, cfg.Logging.Format != "json")
}
