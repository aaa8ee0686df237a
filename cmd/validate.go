package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// validatedConfig mirrors the TOML layout for offline checking.
type validatedConfig struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`
	Device struct {
		Name string `toml:"name"`
	} `toml:"device"`
	LED struct {
		Name string `toml:"name"`
	} `toml:"led"`
	MQTT struct {
		Enabled bool   `toml:"enabled"`
		Broker  string `toml:"broker"`
	} `toml:"mqtt"`
	Bluetooth struct {
		Device string `toml:"device"`
	} `toml:"bluetooth"`
	Broadcast struct {
		Interval string `toml:"interval"`
	} `toml:"broadcast"`
	Health struct {
		Interval string `toml:"interval"`
	} `toml:"health"`
	Logging map[string]string `toml:"logging"`
}

// CreateValidateConfigCmd creates the validate-config command.
func CreateValidateConfigCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Validate a configuration file",
		Long: `Parses the configuration file and checks it for problems that would ` +
			`otherwise only surface at startup, such as an enabled MQTT transport ` +
			`with no broker address.`,
		Run: func(_ *cobra.Command, _ []string) {
			data, err := os.ReadFile(configFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", configFile, err)
				os.Exit(1)
			}

			var cfg validatedConfig
			if err := toml.Unmarshal(data, &cfg); err != nil {
				fmt.Fprintf(os.Stderr, "cannot parse %s: %v\n", configFile, err)
				os.Exit(1)
			}

			problems := checkConfig(&cfg)
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(os.Stderr, "error: %s\n", p)
				}
				os.Exit(1)
			}

			fmt.Printf("%s: OK\n", configFile)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "config.toml", "Path to configuration file")

	return cmd
}

func checkConfig(cfg *validatedConfig) []string {
	var problems []string

	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		problems = append(problems, "mqtt.enabled is true but mqtt.broker is empty")
	}

	for key, value := range map[string]string{
		"broadcast.interval": cfg.Broadcast.Interval,
		"health.interval":    cfg.Health.Interval,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
		} else if d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive", key))
		}
	}

	for key, value := range cfg.Logging {
		if key == "format" {
			if value != "text" && value != "json" {
				problems = append(problems, fmt.Sprintf("logging.format must be text or json, got %q", value))
			}
			continue
		}
		switch value {
		case "debug", "info", "warn", "error":
		default:
			problems = append(problems, fmt.Sprintf("logging.%s: unknown level %q", key, value))
		}
	}

	return problems
}
