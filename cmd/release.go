package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/harborlight-fund/grantflow/internal/notify"
	"github.com/harborlight-fund/grantflow/internal/release"
)

var releaseActor string

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release decided LOIs to applicants",
}

var releaseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List LOIs pending release",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := initRelease(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		pending, err := svc.ListPending(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(pending)
	},
}

var releaseAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Release every pending decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := initRelease(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		results, err := svc.ReleaseAll(cmd.Context(), releaseActor)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var releaseSendCmd = &cobra.Command{
	Use:   "send <loi-id>...",
	Short: "Release specific decisions by LOI id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := initRelease(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		results, err := svc.ReleaseSelected(cmd.Context(), args, releaseActor)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

func initRelease(cmd *cobra.Command) (*release.Service, func(), error) {
	if err := cfg.Validate("release"); err != nil {
		return nil, nil, err
	}
	st, err := openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	notifier := notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.RatePerSec)
	return release.New(st, notifier), func() { st.Close() }, nil //nolint:errcheck
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	releaseCmd.PersistentFlags().StringVar(&releaseActor, "actor", "cli", "actor name recorded in the status ledger")
	releaseCmd.AddCommand(releaseListCmd, releaseAllCmd, releaseSendCmd)
	rootCmd.AddCommand(releaseCmd)
}
