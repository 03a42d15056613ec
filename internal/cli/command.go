package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CreateRootCommand creates and configures the root cobra command.
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "translatectl",
		Short: "Product record translation toolkit",
		Long: `translatectl translates ad-hoc text and product record files through
the Intento gateway. Record translations are cached in a local SQLite
store keyed by content fingerprint, so unchanged records are never
re-translated.

Examples:
  translatectl text --to de "Industrial relay"
  translatectl record --to de record.json
  translatectl providers`,
		SilenceUsage: true,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newTextCommand(flags),
		newRecordCommand(flags),
		newProvidersCommand(flags),
		newLanguagesCommand(flags),
		newRoutingCommand(flags),
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	home, _ := os.UserHomeDir()
	defaultStore := filepath.Join(home, ".local", "state", "translatectl", "cache.db")

	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.translatectl.yaml)")
	cmd.PersistentFlags().StringVar(&flags.From, "from", flags.From, "Source locale of the input")
	cmd.PersistentFlags().StringVar(&flags.To, "to", "", "Target locale to translate into")
	cmd.PersistentFlags().BoolVar(&flags.Sync, "sync", flags.Sync, "Ask for an inline result; large requests still poll")
	cmd.PersistentFlags().StringVar(&flags.Provider, "provider", "", "Pin a specific translation provider")
	cmd.PersistentFlags().StringVar(&flags.Routing, "routing", "", "Use a smart-routing profile instead of a provider")
	cmd.PersistentFlags().StringVar(&flags.StorePath, "store", defaultStore, "SQLite cache path for record translations")
	cmd.PersistentFlags().StringVar(&flags.FieldsPath, "fields", "", "Field rules file (JSON); defaults to the built-in policy")

	bindFlagsToViper(cmd.PersistentFlags())
}

func bindFlagsToViper(flags *pflag.FlagSet) {
	viper.BindPFlag("translate.from", flags.Lookup("from"))
	viper.BindPFlag("translate.to", flags.Lookup("to"))
	viper.BindPFlag("translate.sync", flags.Lookup("sync"))
	viper.BindPFlag("translate.provider", flags.Lookup("provider"))
	viper.BindPFlag("translate.routing", flags.Lookup("routing"))
	viper.BindPFlag("store.path", flags.Lookup("store"))
	viper.BindPFlag("fields.path", flags.Lookup("fields"))
}

// InitConfig initializes viper configuration.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".translatectl")
	}

	viper.SetEnvPrefix("TRANSLATECTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetIntentoKey retrieves the Intento API key from environment or config.
func GetIntentoKey() string {
	if key := os.Getenv("INTENTO_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("intento.api_key")
}
