package main

import (
	"fmt"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/inputval"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cookieRequest struct {
	ID     string `validate:"required,objectid" label:"--id"`
	Name   string `validate:"required" label:"--name"`
	Email  string `validate:"omitempty,email" label:"--email"`
	Gender string `validate:"required,gender" label:"--gender"`
	Role   string `validate:"required,role" label:"--role"`
}

func sessionCookieCommand(cfg cliConfig) *cobra.Command {
	var req cookieRequest
	var sessionKey, sessionName string

	cmd := &cobra.Command{
		Use:   "session-cookie",
		Short: "Print a signed session cookie for calling the API from scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if res := inputval.Validate(req); res.HasErrors() {
				return fmt.Errorf("invalid flags: %v", res.All())
			}
			gender, _ := models.ParseGender(req.Gender)

			sm, err := auth.NewSessionManager(sessionKey, sessionName, "", time.Hour, false, zap.NewNop())
			if err != nil {
				return err
			}
			value, err := sm.EncodeCookie(auth.SessionUser{
				ID:     req.ID,
				Name:   req.Name,
				Email:  req.Email,
				Gender: string(gender),
				Role:   req.Role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", sm.Name(), value)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&sessionKey, "session-key", cfg.SessionKey, "session signing key, must match the server")
	f.StringVar(&sessionName, "session-name", cfg.SessionName, "session cookie name")
	f.StringVar(&req.ID, "id", "", "committee member id")
	f.StringVar(&req.Name, "name", "", "display name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Gender, "gender", "", "male or female")
	f.StringVar(&req.Role, "role", models.RoleCommitteeMember, "committee role")
	return cmd
}
