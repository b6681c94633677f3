// Package router dispatches platform notifications to the XP ledger
// and role reconciler with the guards each activity source requires.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"forum-xp-backend/internal/common/config"
	"forum-xp-backend/internal/common/logger"
	"forum-xp-backend/internal/features/audit"
	progression "forum-xp-backend/internal/features/progression/service"
	roles "forum-xp-backend/internal/features/roles/service"
	"forum-xp-backend/internal/platform/chat"
)

type Router struct {
	cfg        *config.Config
	adapter    chat.Adapter
	ledger     *progression.Ledger
	reconciler *roles.Reconciler
	audit      *audit.Notifier

	// replyDelay paces the auto-reply behind the platform's own
	// post-creation message.
	replyDelay time.Duration
}

func New(cfg *config.Config, adapter chat.Adapter, ledger *progression.Ledger, reconciler *roles.Reconciler, notifier *audit.Notifier) *Router {
	return &Router{
		cfg:        cfg,
		adapter:    adapter,
		ledger:     ledger,
		reconciler: reconciler,
		audit:      notifier,
		replyDelay: cfg.Forum.AutoReplyDelay,
	}
}

// Run consumes the notification stream until the context is canceled
// or the adapter shuts down. Notifications are handled one at a time;
// a failure in one never aborts the handling of the next.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-r.adapter.Notifications():
			if !ok {
				return
			}
			r.Dispatch(ctx, n)
		}
	}
}

// Dispatch routes a single notification.
func (r *Router) Dispatch(ctx context.Context, n chat.Notification) {
	switch v := n.(type) {
	case chat.ReactionAdded:
		r.handleReactionAdded(ctx, v)
	case chat.ReactionRemoved:
		r.handleReactionRemoved(ctx, v)
	case chat.ThreadCreated:
		r.handleThreadCreated(ctx, v)
	case chat.MemberRolesChanged:
		r.handleMemberRolesChanged(ctx, v)
	case chat.MessageCreated:
		r.handleMessageCreated(ctx, v)
	case chat.CommandInvoked:
		r.handleCommand(ctx, v)
	default:
		logger.Debug().Str("notification_id", n.NotificationID()).Msg("Ignoring unhandled notification kind")
	}
}

// isPinOnRootPost guards the reaction paths: the marker emoji, on the
// root message of a thread under the monitored forum, from a real user.
func (r *Router) isPinOnRootPost(emoji, messageID, channelID, parentID string, isThread, userBot bool) bool {
	if userBot {
		return false
	}
	if emoji != r.cfg.Forum.PinEmoji {
		return false
	}
	if !isThread || parentID != r.cfg.Forum.ChannelID {
		return false
	}
	// The starter message of a forum thread shares the thread's ID.
	return messageID == channelID
}

func (r *Router) handleReactionAdded(ctx context.Context, n chat.ReactionAdded) {
	if !r.isPinOnRootPost(n.Emoji, n.MessageID, n.ChannelID, n.ParentID, n.ChannelIsThread, n.UserBot) {
		return
	}

	result, err := r.ledger.AddXP(ctx, n.UserID, r.cfg.Forum.XPPerPin)
	if err != nil {
		logger.Error().Err(err).Str("user_id", n.UserID).Str("notification_id", n.ID).Msg("Failed to add pin XP")
		return
	}

	logger.Info().
		Str("user_id", n.UserID).
		Str("user_name", n.UserName).
		Str("thread", n.ChannelName).
		Int64("xp", result.NewXP).
		Int("level", result.Level).
		Msg("Pin reaction awarded XP")
	r.audit.Sendf(ctx, "📌 **%s** pinned a post in %q → +%d XP (Total: %d XP, Level %d)",
		n.UserName, n.ChannelName, r.cfg.Forum.XPPerPin, result.NewXP, result.Level)

	if result.LeveledUp {
		r.announceLevelUp(ctx, n.GuildID, n.UserID, n.UserName, result.OldLevel, result.Level)
	}
}

func (r *Router) handleReactionRemoved(ctx context.Context, n chat.ReactionRemoved) {
	if !r.isPinOnRootPost(n.Emoji, n.MessageID, n.ChannelID, n.ParentID, n.ChannelIsThread, n.UserBot) {
		return
	}

	result, err := r.ledger.RemoveXP(ctx, n.UserID, r.cfg.Forum.XPPerPin)
	if errors.Is(err, progression.ErrUserNotFound) {
		logger.Debug().Str("user_id", n.UserID).Msg("Pin removed for user with no XP record")
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("user_id", n.UserID).Str("notification_id", n.ID).Msg("Failed to remove pin XP")
		return
	}

	logger.Info().
		Str("user_id", n.UserID).
		Str("user_name", n.UserName).
		Str("thread", n.ChannelName).
		Int64("xp", result.NewXP).
		Int("level", result.Level).
		Msg("Pin removal deducted XP")
	r.audit.Sendf(ctx, "📌 **%s** removed pin from %q → -%d XP (Total: %d XP, Level %d)",
		n.UserName, n.ChannelName, r.cfg.Forum.XPPerPin, result.NewXP, result.Level)
}

func (r *Router) handleThreadCreated(ctx context.Context, n chat.ThreadCreated) {
	if !n.NewlyCreated {
		return
	}
	if n.Thread.ParentID != r.cfg.Forum.ChannelID {
		return
	}
	ownerID := n.Thread.OwnerID
	if ownerID == "" {
		return
	}

	owner, err := r.adapter.FetchMember(ctx, n.GuildID, ownerID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", ownerID).Msg("Failed to fetch thread owner")
		return
	}
	if owner.Bot {
		return
	}

	logger.Info().Str("user_id", ownerID).Str("user_name", owner.Name).Str("thread", n.Thread.Name).Msg("New forum post")
	r.audit.Sendf(ctx, "📝 **%s** created new forum post: %q", owner.Name, n.Thread.Name)

	if r.cfg.Forum.AutoReplyMessage != "" {
		r.scheduleAutoReply(n.Thread.ID, n.Thread.Name, ownerID)
	}

	result, err := r.ledger.AddXP(ctx, ownerID, r.cfg.Forum.XPPerPost)
	if err != nil {
		logger.Error().Err(err).Str("user_id", ownerID).Str("notification_id", n.ID).Msg("Failed to add post XP")
		return
	}

	logger.Info().
		Str("user_id", ownerID).
		Int64("xp", result.NewXP).
		Int("level", result.Level).
		Msg("Post creation awarded XP")

	if result.LeveledUp {
		r.announceLevelUp(ctx, n.GuildID, ownerID, owner.Name, result.OldLevel, result.Level)
	}
}

// scheduleAutoReply sends the configured template after a short delay.
// Fire and forget: if the thread disappears in the interim the send
// simply fails and is logged.
func (r *Router) scheduleAutoReply(threadID, threadName, ownerID string) {
	text := strings.ReplaceAll(r.cfg.Forum.AutoReplyMessage, "{user}", fmt.Sprintf("<@%s>", ownerID))
	go func() {
		time.Sleep(r.replyDelay)
		if err := r.adapter.SendMessage(context.Background(), threadID, text); err != nil {
			logger.Error().Err(err).Str("thread_id", threadID).Str("thread", threadName).Msg("Failed to send auto-reply")
			return
		}
		logger.Debug().Str("thread", threadName).Msg("Auto-reply sent")
	}()
}

func (r *Router) announceLevelUp(ctx context.Context, guildID, userID, userName string, oldLevel, newLevel int) {
	logger.Info().Str("user_id", userID).Str("user_name", userName).Int("level", newLevel).Msg("User leveled up")
	r.audit.Sendf(ctx, "🎉 **%s** leveled up to **Level %d**!", userName, newLevel)

	if err := r.reconciler.HandleLevelUp(ctx, guildID, userID, oldLevel, newLevel); err != nil {
		logger.Error().
			Err(err).
			Str("user_id", userID).
			Int("old_level", oldLevel).
			Int("new_level", newLevel).
			Msg("Role reconciliation failed after level up")
	}
}

func (r *Router) handleMemberRolesChanged(ctx context.Context, n chat.MemberRolesChanged) {
	if err := r.reconciler.HandleManualRoleChange(ctx, n.GuildID, n.UserID, n.UserName, n.OldRoleIDs, n.NewRoleIDs); err != nil {
		logger.Error().Err(err).Str("user_id", n.UserID).Str("notification_id", n.ID).Msg("Manual role change handling failed")
	}
}

func (r *Router) handleMessageCreated(ctx context.Context, n chat.MessageCreated) {
	if n.AuthorBot {
		return
	}
	if len(r.cfg.RolePingTriggers) == 0 {
		return
	}

	mentioned := make(map[string]bool, len(n.MentionedRoleIDs))
	for _, id := range n.MentionedRoleIDs {
		mentioned[id] = true
	}

	for _, trigger := range r.cfg.RolePingTriggers {
		if !mentioned[trigger.TriggerRoleID] {
			continue
		}

		logger.Info().
			Str("trigger", trigger.Name).
			Str("user_name", n.AuthorName).
			Str("channel", n.ChannelName).
			Msg("Role ping trigger mentioned")
		r.audit.Sendf(ctx, "🔔 **%s** triggered **%s** role ping in #%s", n.AuthorName, trigger.Name, n.ChannelName)

		var pings []string
		for _, roleID := range trigger.PingRoleIDs {
			if !looksLikeRoleID(roleID) {
				continue
			}
			pings = append(pings, fmt.Sprintf("<@&%s>", roleID))
		}
		if len(pings) == 0 {
			logger.Debug().Str("trigger", trigger.Name).Msg("No roles configured to ping")
			continue
		}

		header := trigger.Message
		if header == "" {
			header = "Notifying roles:\n\n||"
		}
		text := header + strings.Join(pings, " ") + " ||"
		if err := r.adapter.SendMessage(ctx, n.ChannelID, text); err != nil {
			logger.Error().Err(err).Str("trigger", trigger.Name).Str("channel_id", n.ChannelID).Msg("Failed to send role ping")
		}
	}
}

// looksLikeRoleID filters placeholder entries left in the trigger
// config; real role IDs are 17-20 digit snowflakes.
func looksLikeRoleID(s string) bool {
	if len(s) < 17 || len(s) > 20 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (r *Router) handleCommand(ctx context.Context, n chat.CommandInvoked) {
	switch n.Name {
	case "check-xp":
		r.handleCheckXP(ctx, n)
	case "set-xp":
		r.handleSetXP(ctx, n)
	default:
		logger.Debug().Str("command", n.Name).Msg("Ignoring unknown command")
	}
}

func (r *Router) handleCheckXP(ctx context.Context, n chat.CommandInvoked) {
	if !n.InvokerAdmin {
		r.respond(ctx, n, "❌ You need Administrator permissions to use this command.")
		return
	}

	info, err := r.ledger.GetLevel(ctx, n.TargetUserID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", n.TargetUserID).Msg("check-xp read failed")
		r.respond(ctx, n, "❌ Failed to look up XP.")
		return
	}

	if info.XP == 0 && info.Level == 0 {
		r.respond(ctx, n, fmt.Sprintf("%s hasn't earned any XP yet.", n.TargetName))
		return
	}

	response := fmt.Sprintf("📊 **%s**\nLevel: %d\nXP: %d", n.TargetName, info.Level, info.XP)
	if next, ok := r.ledger.NextThreshold(info.Level); ok {
		response += fmt.Sprintf(" / %d (%d XP until next level)", next, next-info.XP)
	}
	r.respond(ctx, n, response)
}

func (r *Router) handleSetXP(ctx context.Context, n chat.CommandInvoked) {
	if !n.InvokerAdmin {
		r.respond(ctx, n, "❌ You need Administrator permissions to use this command.")
		return
	}
	if !n.AmountSet || n.Amount < 0 {
		r.respond(ctx, n, "❌ XP amount cannot be negative.")
		return
	}

	result, err := r.reconciler.ApplyAdminSetXP(ctx, n.GuildID, n.TargetUserID, n.Amount)
	if err != nil {
		logger.Error().Err(err).Str("user_id", n.TargetUserID).Int64("amount", n.Amount).Msg("set-xp failed")
		r.respond(ctx, n, "❌ Failed to set XP.")
		return
	}

	r.respond(ctx, n, fmt.Sprintf("✅ Set %s's XP to %d. They are now Level %d%s.",
		n.TargetName, result.NewXP, result.NewLevel, r.progressText(result.NewXP, result.NewLevel)))
}

func (r *Router) progressText(xp int64, level int) string {
	if next, ok := r.ledger.NextThreshold(level); ok {
		return fmt.Sprintf(" (%d/%d XP to next level)", xp, next)
	}
	return " (Max level)"
}

func (r *Router) respond(ctx context.Context, n chat.CommandInvoked, text string) {
	if err := r.adapter.Respond(ctx, n.InteractionID, text, true); err != nil {
		logger.Error().Err(err).Str("command", n.Name).Str("interaction_id", n.InteractionID).Msg("Failed to respond to command")
	}
}
