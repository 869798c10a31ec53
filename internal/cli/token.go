package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/middleware"
)

func newTokenCmd(flags *globalFlags) *cobra.Command {
	var (
		user  string
		email string
		role  string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != domain.RoleUser && role != domain.RoleAdmin {
				return fmt.Errorf("role must be %q or %q", domain.RoleUser, domain.RoleAdmin)
			}

			cfg, _ := loadConfig(flags)
			token, err := middleware.IssueToken(domain.UserContext{
				UserID: user,
				Email:  email,
				Role:   role,
			}, middleware.JWTConfig{
				Secret:    cfg.JWTSecret,
				Issuer:    cfg.JWTIssuer,
				ExpiresIn: time.Duration(cfg.JWTExpiration) * time.Hour,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "admin", "subject (user id) of the token")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", domain.RoleUser, "role claim (user or admin)")

	return cmd
}
