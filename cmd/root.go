package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "ats-reconciler"
)

type Config struct {
	Providers  []*ProviderConfig `mapstructure:"providers"`
	Interviews *ProviderConfig   `mapstructure:"interviews"`
	Timeouts   *TimeoutsConfig   `mapstructure:"timeouts"`
	Scope      *ScopeConfig      `mapstructure:"scope"`
	UserAgent  string            `mapstructure:"user-agent"`
}

type ProviderConfig struct {
	Name      string `mapstructure:"name"`
	BaseURL   string `mapstructure:"base-url"`
	TokenFile string `mapstructure:"token-file"`
	// Shape selects the provider's wire format: bridge, ledger or archive.
	Shape string `mapstructure:"shape"`
	// Scope selects how the provider is queried: requirement, client or bulk.
	Scope string `mapstructure:"scope"`
}

type TimeoutsConfig struct {
	PerCall time.Duration `mapstructure:"per-call"`
	Overall time.Duration `mapstructure:"overall"`
}

type ScopeConfig struct {
	Requirement string   `mapstructure:"requirement"`
	Client      string   `mapstructure:"client"`
	Statuses    []string `mapstructure:"statuses"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ats-reconciler reconciles candidate pipeline statuses across upstream ATS providers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("token-file", "ATS_TOKEN_FILE"); err != nil {
		log.Fatalf("binding ATS_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ats-reconciler.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
