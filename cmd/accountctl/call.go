package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qs3c/aipara_account_server/internal/client"
	"github.com/qs3c/aipara_account_server/internal/pkg/jwt"
)

var (
	callServer  string
	callToken   string
	callUID     string
	callPayload string
)

var callCmd = &cobra.Command{
	Use:   "call <action>",
	Short: "Invoke a profile-service action.",
	Long: `Invoke a profile-service action against a running server.
Without --token a short-lived token is signed for --uid with the configured secret.`,
	Example: `  accountctl call wallet.recharge --uid uid_123
  accountctl call profile.updateMeta --uid uid_123 --payload '{"meta":{"name":"小明"}}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload map[string]any
		if callPayload != "" {
			if err := json.Unmarshal([]byte(callPayload), &payload); err != nil {
				return fmt.Errorf("invalid --payload: %w", err)
			}
		}

		token := callToken
		if token == "" {
			if callUID == "" {
				return errors.New("either --token or --uid is required")
			}
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			if token, err = jwt.GenerateToken(callUID, e.cfg.JWT.Secret, 1); err != nil {
				return err
			}
		}

		var out json.RawMessage
		if err := client.New(callServer, token).Call(cmd.Context(), args[0], payload, &out); err != nil {
			return err
		}
		if len(out) == 0 {
			out = json.RawMessage("{}")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callServer, "server", "http://127.0.0.1:8080", "server base URL")
	callCmd.Flags().StringVar(&callToken, "token", "", "access token")
	callCmd.Flags().StringVar(&callUID, "uid", "", "sign a token for this uid")
	callCmd.Flags().StringVarP(&callPayload, "payload", "p", "", "action payload as JSON")
	rootCmd.AddCommand(callCmd)
}
