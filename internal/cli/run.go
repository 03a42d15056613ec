package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"prodtrans/internal/adapter/sqlite"
	"prodtrans/internal/domain"
	"prodtrans/internal/fields"
	"prodtrans/internal/providers/intento"
	"prodtrans/internal/translate"
)

func newTextCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "text [text...]",
		Short: "Translate ad-hoc text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runText(cmd, args, flags)
		},
	}
}

func newRecordCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "record [file...]",
		Short: "Translate product record JSON files through the local cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, args, flags)
		},
	}
}

func newProvidersCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available translation providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProviders(cmd, flags)
		},
	}
}

func newLanguagesCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguages(cmd, flags)
		},
	}
}

func newRoutingCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "routing",
		Short: "List smart-routing profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRouting(cmd, flags)
		},
	}
}

// newGateway builds the provider client shared by the subcommands.
func newGateway(flags *Flags) (*intento.Client, error) {
	return intento.NewClient(intento.Options{
		APIKey:        GetIntentoKey(),
		BaseURL:       viper.GetString("intento.base_url"),
		OperationsURL: viper.GetString("intento.operations_url"),
		RoutingURL:    viper.GetString("intento.routing_url"),
		Provider:      flags.Provider,
	})
}

// resolveTarget returns the target locale from the flag, falling back to the
// config/env binding.
func resolveTarget(flags *Flags) string {
	if flags.To != "" {
		return flags.To
	}
	return viper.GetString("translate.to")
}

func requireCredentials(gateway *intento.Client) error {
	if !gateway.HasCredentials() {
		return fmt.Errorf("no Intento API key configured (set INTENTO_API_KEY)")
	}
	return nil
}

func runText(cmd *cobra.Command, args []string, flags *Flags) error {
	to := resolveTarget(flags)
	if to == "" {
		return fmt.Errorf("target locale is required (--to)")
	}

	gateway, err := newGateway(flags)
	if err != nil {
		return err
	}
	if err := requireCredentials(gateway); err != nil {
		return err
	}

	runner := translate.NewRunner(gateway, translate.RunnerConfig{}, nil)
	res, err := runner.Run(cmd.Context(), translate.Request{
		Text:     args,
		From:     flags.From,
		To:       to,
		Sync:     flags.Sync,
		Provider: flags.Provider,
		Routing:  flags.Routing,
	})
	if err != nil {
		return err
	}

	for _, line := range res.Results {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if res.Provider.Vendor != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "provider: %s\n", res.Provider.Vendor)
	}
	return nil
}

func runRecord(cmd *cobra.Command, args []string, flags *Flags) error {
	to := resolveTarget(flags)
	if to == "" {
		return fmt.Errorf("target locale is required (--to)")
	}

	policy := fields.Default()
	if flags.FieldsPath != "" {
		loaded, err := fields.Load(flags.FieldsPath)
		if err != nil {
			return err
		}
		policy = loaded
	}
	if flags.From != "" {
		policy.Source = flags.From
	}

	gateway, err := newGateway(flags)
	if err != nil {
		return err
	}
	if err := requireCredentials(gateway); err != nil {
		return err
	}

	db, err := sqlite.Init(flags.StorePath)
	if err != nil {
		return err
	}
	defer db.Close()
	cache := sqlite.NewTranslationRepo(db)

	runner := translate.NewRunner(gateway, translate.RunnerConfig{}, nil)
	svc := translate.NewService(cache, runner, policy, translate.ServiceConfig{
		TargetLocale: to,
		Sync:         flags.Sync,
		Provider:     flags.Provider,
		Routing:      flags.Routing,
	}, nil)

	for _, path := range args {
		record, err := readRecord(path)
		if err != nil {
			return err
		}
		res, err := svc.TranslateRecord(cmd.Context(), translate.RecordRequest{Record: record})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out, err := json.MarshalIndent(res.Record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		if res.CacheHit {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: served from cache (%s)\n", path, res.Fingerprint)
		}
	}
	return nil
}

func readRecord(path string) (domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	var record domain.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%s: decode record: %w", path, err)
	}
	return record, nil
}

func runProviders(cmd *cobra.Command, flags *Flags) error {
	gateway, err := newGateway(flags)
	if err != nil {
		return err
	}
	if err := requireCredentials(gateway); err != nil {
		return err
	}

	listings, err := gateway.Providers(cmd.Context())
	if err != nil {
		return err
	}
	for _, p := range listings {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Name)
	}
	return nil
}

func runLanguages(cmd *cobra.Command, flags *Flags) error {
	gateway, err := newGateway(flags)
	if err != nil {
		return err
	}
	if err := requireCredentials(gateway); err != nil {
		return err
	}

	raw, err := gateway.Languages(cmd.Context())
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("decode languages: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

func runRouting(cmd *cobra.Command, flags *Flags) error {
	gateway, err := newGateway(flags)
	if err != nil {
		return err
	}
	if err := requireCredentials(gateway); err != nil {
		return err
	}

	profiles, err := gateway.RoutingProfiles(cmd.Context())
	if err != nil {
		return err
	}
	for _, p := range profiles {
		state := "inactive"
		if p.IsActive {
			state = "active"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.Name, state, p.Description)
	}
	return nil
}
