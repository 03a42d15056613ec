package cli

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestCreateRootCommand(t *testing.T) {
	flags := NewFlags()
	cmd := CreateRootCommand(flags)

	if cmd.Use != "translatectl" {
		t.Errorf("Expected Use to be 'translatectl', got %s", cmd.Use)
	}
	if !strings.Contains(cmd.Short, "translation") {
		t.Errorf("Expected Short description to mention translation")
	}

	for _, name := range []string{"config", "from", "to", "sync", "provider", "routing", "store", "fields"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag %s to exist", name)
		}
	}

	subcommands := map[string]bool{}
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}
	for _, name := range []string{"text", "record", "providers", "languages", "routing"} {
		if !subcommands[name] {
			t.Errorf("Expected subcommand %s to be registered", name)
		}
	}
}

func TestSetupFlagDefaults(t *testing.T) {
	cmd := &cobra.Command{}
	flags := NewFlags()

	setupFlags(cmd, flags)

	fromFlag := cmd.PersistentFlags().Lookup("from")
	if fromFlag == nil {
		t.Fatal("from flag not found")
	}
	if fromFlag.DefValue != "en" {
		t.Errorf("Expected default from locale to be en, got %s", fromFlag.DefValue)
	}

	syncFlag := cmd.PersistentFlags().Lookup("sync")
	if syncFlag == nil {
		t.Fatal("sync flag not found")
	}
	if syncFlag.DefValue != "true" {
		t.Errorf("Expected sync to default to true, got %s", syncFlag.DefValue)
	}

	storeFlag := cmd.PersistentFlags().Lookup("store")
	if storeFlag == nil {
		t.Fatal("store flag not found")
	}
	if !strings.Contains(storeFlag.DefValue, "translatectl") {
		t.Errorf("Expected default store path under the translatectl state dir, got %s", storeFlag.DefValue)
	}
}

func TestBindFlagsToViper(t *testing.T) {
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	viper.Reset()
	cmd := &cobra.Command{}
	flags := NewFlags()
	setupFlags(cmd, flags)

	cmd.PersistentFlags().Set("to", "de")
	cmd.PersistentFlags().Set("provider", "ai.text.translate.deepl.api.translate")

	if viper.GetString("translate.to") != "de" {
		t.Errorf("Expected translate.to to be de, got %s", viper.GetString("translate.to"))
	}
	if viper.GetString("translate.provider") != "ai.text.translate.deepl.api.translate" {
		t.Errorf("Expected translate.provider to follow the flag, got %s", viper.GetString("translate.provider"))
	}
	if !viper.GetBool("translate.sync") {
		t.Errorf("Expected translate.sync to default to true")
	}
}

func TestInitConfigEnvPrefix(t *testing.T) {
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	viper.Reset()
	InitConfig("")

	os.Setenv("TRANSLATECTL_TRANSLATE_TO", "de")
	defer os.Unsetenv("TRANSLATECTL_TRANSLATE_TO")

	if viper.GetString("translate.to") != "de" {
		t.Error("Environment variable not properly loaded")
	}
}

func TestGetIntentoKey(t *testing.T) {
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	tests := []struct {
		name      string
		envKey    string
		configKey string
		expected  string
	}{
		{name: "from environment", envKey: "env-test-key", configKey: "config-test-key", expected: "env-test-key"},
		{name: "from config when no env", envKey: "", configKey: "config-test-key", expected: "config-test-key"},
		{name: "empty when neither set", envKey: "", configKey: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()

			if tt.envKey != "" {
				os.Setenv("INTENTO_API_KEY", tt.envKey)
				defer os.Unsetenv("INTENTO_API_KEY")
			} else {
				os.Unsetenv("INTENTO_API_KEY")
			}

			if tt.configKey != "" {
				viper.Set("intento.api_key", tt.configKey)
			}

			got := GetIntentoKey()
			if got != tt.expected {
				t.Errorf("GetIntentoKey() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResolveTarget(t *testing.T) {
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	viper.Reset()
	flags := NewFlags()

	if got := resolveTarget(flags); got != "" {
		t.Errorf("resolveTarget() = %q, want empty", got)
	}

	viper.Set("translate.to", "fr")
	if got := resolveTarget(flags); got != "fr" {
		t.Errorf("resolveTarget() = %q, want fr", got)
	}

	flags.To = "de"
	if got := resolveTarget(flags); got != "de" {
		t.Errorf("resolveTarget() = %q, want de (flag wins)", got)
	}
}
