// Package service implements role reconciliation: keeping externally
// visible level roles in sync with the ledger, without mistaking the
// engine's own grants for manual overrides.
package service

import (
	"context"
	"fmt"

	apperrors "forum-xp-backend/internal/common/errors"
	"forum-xp-backend/internal/common/logger"
	"forum-xp-backend/internal/features/audit"
	"forum-xp-backend/internal/features/progression/models"
	progression "forum-xp-backend/internal/features/progression/service"
	"forum-xp-backend/internal/platform/chat"
)

// Reconciler computes and executes role deltas for level transitions.
// The ledger is always the source of truth: platform failures here are
// logged and left for the next reconciliation opportunity, they never
// roll back committed XP state.
type Reconciler struct {
	adapter chat.Adapter
	ledger  *progression.Ledger
	binding *models.RoleBinding
	pending *PendingSelfAssignments
	audit   *audit.Notifier
}

func NewReconciler(adapter chat.Adapter, ledger *progression.Ledger, binding *models.RoleBinding, notifier *audit.Notifier) *Reconciler {
	return &Reconciler{
		adapter: adapter,
		ledger:  ledger,
		binding: binding,
		pending: NewPendingSelfAssignments(),
		audit:   notifier,
	}
}

// Pending exposes the suppression set, mainly for tests.
func (r *Reconciler) Pending() *PendingSelfAssignments {
	return r.pending
}

// HandleLevelUp swaps the old level's role for the new level's role
// after the ledger has already committed the transition.
func (r *Reconciler) HandleLevelUp(ctx context.Context, guildID, userID string, oldLevel, newLevel int) error {
	newRoleID, ok := r.binding.RoleFor(newLevel)
	if !ok {
		return nil
	}

	member, err := r.adapter.FetchMember(ctx, guildID, userID)
	if err != nil {
		return apperrors.NewPlatformAPIError(fmt.Sprintf("fetch member %s", userID), err)
	}

	if oldRoleID, ok := r.binding.RoleFor(oldLevel); ok && member.HasRole(oldRoleID) {
		if err := r.adapter.RevokeRole(ctx, guildID, userID, oldRoleID); err != nil {
			return apperrors.NewPlatformAPIError(fmt.Sprintf("revoke role %s from %s", oldRoleID, userID), err)
		}
		logger.Debug().Str("user_id", userID).Str("role_id", oldRoleID).Msg("Removed previous level role")
	}

	// Recorded before the grant so the echo notification is recognized
	// as our own write.
	r.pending.Add(userID, newRoleID)
	if err := r.adapter.GrantRole(ctx, guildID, userID, newRoleID); err != nil {
		return apperrors.NewPlatformAPIError(fmt.Sprintf("grant role %s to %s", newRoleID, userID), err)
	}

	logger.Info().
		Str("user_id", userID).
		Str("role_id", newRoleID).
		Int("level", newLevel).
		Msg("Assigned level role")
	return nil
}

// HandleManualRoleChange processes a member-update notification. The
// first added role bound to a level wins; later ones in the same batch
// are ignored. A match against the pending set is the engine's own
// grant echoing back and triggers no ledger mutation.
func (r *Reconciler) HandleManualRoleChange(ctx context.Context, guildID, userID, userName string, oldRoleIDs, newRoleIDs []string) error {
	added := diffAdded(oldRoleIDs, newRoleIDs)

	for _, roleID := range added {
		level, ok := r.binding.LevelFor(roleID)
		if !ok {
			continue
		}

		if r.pending.Consume(userID, roleID) {
			logger.Debug().Str("user_id", userID).Str("role_id", roleID).Msg("Ignoring self-assigned role echo")
			return nil
		}

		grant, err := r.ledger.SetLevel(ctx, userID, level)
		if err != nil {
			return fmt.Errorf("set level %d for %s: %w", level, userID, err)
		}

		var xp int64
		if grant != nil {
			xp = grant.XP
		}
		logger.Info().
			Str("user_id", userID).
			Str("user_name", userName).
			Int("level", level).
			Int64("xp", xp).
			Msg("Manual role assignment pinned user level")
		r.audit.Sendf(ctx, "🔄 **%s** manually assigned a level role → set to Level %d with %d XP", userName, level, xp)

		r.removeLowerRoles(ctx, guildID, userID, level, newRoleIDs)
		break
	}

	return nil
}

// removeLowerRoles strips every held role bound to a level below the
// authoritative one. Per-role failures are logged and skipped.
func (r *Reconciler) removeLowerRoles(ctx context.Context, guildID, userID string, level int, heldRoleIDs []string) {
	held := make(map[string]bool, len(heldRoleIDs))
	for _, id := range heldRoleIDs {
		held[id] = true
	}

	for _, lower := range r.binding.Levels() {
		if lower >= level {
			break
		}
		roleID, ok := r.binding.RoleFor(lower)
		if !ok || !held[roleID] {
			continue
		}
		if err := r.adapter.RevokeRole(ctx, guildID, userID, roleID); err != nil {
			logger.Error().
				Err(err).
				Str("user_id", userID).
				Str("role_id", roleID).
				Int("level", lower).
				Msg("Failed to remove lower level role")
			continue
		}
		logger.Debug().Str("user_id", userID).Str("role_id", roleID).Int("level", lower).Msg("Removed lower level role")
	}
}

// ApplyAdminSetXP runs the administrative path: overwrite XP, then
// rebuild role state from scratch (strip every bound role, grant the
// role for the resulting level). Role failures do not fail the request;
// the committed ledger state is what counts.
func (r *Reconciler) ApplyAdminSetXP(ctx context.Context, guildID, userID string, amount int64) (*models.SetResult, error) {
	result, err := r.ledger.SetXP(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	member, err := r.adapter.FetchMember(ctx, guildID, userID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch member for role sync")
		return result, nil
	}

	for _, level := range r.binding.Levels() {
		roleID, ok := r.binding.RoleFor(level)
		if !ok || !member.HasRole(roleID) {
			continue
		}
		if err := r.adapter.RevokeRole(ctx, guildID, userID, roleID); err != nil {
			logger.Error().
				Err(err).
				Str("user_id", userID).
				Str("role_id", roleID).
				Int("level", level).
				Msg("Failed to strip level role")
		}
	}

	if roleID, ok := r.binding.RoleFor(result.NewLevel); ok {
		r.pending.Add(userID, roleID)
		if err := r.adapter.GrantRole(ctx, guildID, userID, roleID); err != nil {
			logger.Error().
				Err(err).
				Str("user_id", userID).
				Str("role_id", roleID).
				Int("level", result.NewLevel).
				Msg("Failed to grant level role")
		}
	}

	return result, nil
}

func diffAdded(oldIDs, newIDs []string) []string {
	old := make(map[string]bool, len(oldIDs))
	for _, id := range oldIDs {
		old[id] = true
	}
	var added []string
	for _, id := range newIDs {
		if !old[id] {
			added = append(added, id)
		}
	}
	return added
}
