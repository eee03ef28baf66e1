package activities

import (
	"context"

	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/derivation"
	"github.com/stanstork/sponsordesk-api/internal/temporal"
	"go.temporal.io/sdk/activity"
)

// Scanner runs one owner scan.
type Scanner interface {
	Scan(ctx context.Context, id authz.Identity) (derivation.ScanResult, error)
}

type Activities struct {
	Scanner Scanner
}

func (a *Activities) DeriveNotificationsActivity(ctx context.Context, params temporal.DerivationParams) (temporal.DerivationResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Deriving notifications", "UserID", params.UserID, "Reason", params.Reason)

	res, err := a.Scanner.Scan(ctx, authz.Identity{UserID: params.UserID, Email: params.Email})
	if err != nil {
		logger.Error("Notification scan failed", "UserID", params.UserID, "error", err)
		return temporal.DerivationResult{}, err
	}
	return temporal.DerivationResult{
		Campaigns:  res.Campaigns,
		Candidates: res.Candidates,
		Created:    res.Created,
		Failed:     res.Failed,
	}, nil
}
