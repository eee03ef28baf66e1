package temporal

import "time"

// DefaultTaskQueue is used when no task queue is configured.
const DefaultTaskQueue = "sponsordesk-derivation"

// DerivationWorkflowIDPrefix prefixes every derivation workflow ID.
const DerivationWorkflowIDPrefix = "sponsordesk-derive-"

// DefaultActivityTimeout bounds a single owner scan.
const DefaultActivityTimeout = 2 * time.Minute

// DerivationParams is the workflow input: the owner to scan and why.
type DerivationParams struct {
	UserID string
	Email  string
	Reason string
}

// DerivationResult mirrors the scan summary so it is visible in workflow history.
type DerivationResult struct {
	Campaigns  int
	Candidates int
	Created    int
	Failed     int
}
