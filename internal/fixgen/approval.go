package fixgen

import (
	"context"

	"sentryd/internal/model"
)

// Prompter is the interactive approval UI contract (spec §4.9): a single
// decision per proposal, plus a batch-apply shortcut for everything already
// classified auto_safe.
type Prompter interface {
	// Decide asks the user to accept/reject/skip one non-auto-safe
	// proposal, or abort the whole session.
	Decide(ctx context.Context, proposal model.FixProposal) (model.ApprovalDecision, error)
}

// AutoAcceptAutoSafe checks each proposal with IsEligibleForAutoSafe; auto_safe
// proposals are accepted without prompting, everything else is routed
// through prompter. Every decision — prompted or automatic — is returned
// so the caller can record it via RecordApproval.
func AutoAcceptAutoSafe(ctx context.Context, prompter Prompter, proposals []model.FixProposal) ([]model.ApprovalDecision, error) {
	decisions := make([]model.ApprovalDecision, len(proposals))
	for i, p := range proposals {
		if p.IsEligibleForAutoSafe() {
			decisions[i] = model.DecisionAccept
			continue
		}
		decision, err := prompter.Decide(ctx, p)
		if err != nil {
			return decisions, err
		}
		decisions[i] = decision
		if decision == model.DecisionAbortSession {
			return decisions[:i+1], nil
		}
	}
	return decisions, nil
}
