package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user",
	Long:  `Sign an access token carrying the given user id with the configured JWT secret. Identity lives outside this service; the command is for local testing and service accounts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.Security.JWTSecret == "" {
			return fmt.Errorf("security.jwt_secret is not set")
		}

		token, err := newAuthService(cfg.Security).IssueToken(tokenUser)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "user id to put in the token")
	_ = tokenCmd.MarkFlagRequired("user")
}
