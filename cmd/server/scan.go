package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/config"
	"github.com/stanstork/sponsordesk-api/internal/repository"
)

var scanEmail string

// scanCmd runs one derivation pass in process, regardless of derivation.mode.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one notification scan for every campaign owner, or one owner with --email",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := bootstrap()
		db := openDB(cfg, logger)
		defer db.Close()

		cfg.Derivation.Mode = config.DerivationModeLocal
		app := newApplication(cfg, db, logger)
		defer app.close()

		ctx := context.Background()
		if scanEmail == "" {
			ok := app.scheduler.ScanAll(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d owners\n", ok)
			return nil
		}

		user, err := repository.NewUserRepository(db).GetUserByEmail(ctx, scanEmail)
		if err != nil {
			return fmt.Errorf("look up %s: %w", scanEmail, err)
		}
		res, err := app.engine.Scan(ctx, authz.Identity{UserID: user.ID, Email: user.Email})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d campaigns, %d due, %d created, %d failed\n",
			user.Email, res.Campaigns, res.Candidates, res.Created, res.Failed)
		return nil
	},
}
