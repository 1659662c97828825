package cmd

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaharia-lab/formrelay/internal/config"
)

// NewConfigCmd returns the "config" subcommand, which prints the effective
// configuration with credentials masked and reports validation problems.
func NewConfigCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(envView(cfg.Redacted()))
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			_, _ = cmd.OutOrStdout().Write(out)
			return cfg.Validate()
		},
	}
}

// envView maps every envconfig variable name to its current value.
func envView(c config.AppConfig) map[string]string {
	out := make(map[string]string)
	v := reflect.ValueOf(c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("envconfig")
		if name == "" {
			continue
		}
		out[name] = fmt.Sprint(v.Field(i).Interface())
	}
	return out
}
