package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/auth"
	"github.com/vibealong/vibealong/internal/models"
)

var (
	tokenSubject string
	tokenEmail   string
	tokenRole    string
	tokenTTL     time.Duration
)

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject (default: a new UUID)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleRequester), "role claim: requester or provider")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development dashboard token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			return &PreflightError{
				Message:  err.Error(),
				Hint:     "Set auth.jwt_secret in the config or VIBEALONG_AUTH_JWT_SECRET",
				NextStep: "VIBEALONG_AUTH_JWT_SECRET=dev-secret vibealong token --role provider",
			}
		}

		role := models.Role(tokenRole)
		if role != models.RoleRequester && role != models.RoleProvider {
			return fmt.Errorf("invalid role %q: expected requester or provider", tokenRole)
		}
		subject := tokenSubject
		if subject == "" {
			subject = uuid.NewString()
		}

		token, err := verifier.Issue(subject, tokenEmail, role, tokenTTL)
		if err != nil {
			return err
		}
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, map[string]string{"token": token, "subject": subject, "role": string(role)})
		}
		fmt.Println(token)
		return nil
	},
}
