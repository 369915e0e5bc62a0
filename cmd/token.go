package cmd

import (
	"fmt"
	"time"

	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/jwt"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Token mints a credential the gateway accepts, for local testing only.
func Token(c *cobra.Command) error {
	configFile, _ := c.Flags().GetString("config")
	subject, _ := c.Flags().GetString("user")

	cfg, err := config.Load(viper.New(), configFile)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return fmt.Errorf("uuid.Parse: %w", err)
	}

	signer, err := jwt.NewSigner([]byte(cfg.Auth.Secret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("jwt.NewSigner: %w", err)
	}

	token, expiresAt, err := signer.Sign(userID)
	if err != nil {
		return fmt.Errorf("signer.Sign: %w", err)
	}

	fmt.Fprintln(c.OutOrStdout(), token)
	fmt.Fprintf(c.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))

	return nil
}
