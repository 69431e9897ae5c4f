// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dalemusser/groupshare/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (magic links, refresh, group switching, logout).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for group administration events (group create/delete, membership changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies); first hop wins
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// Fall back to RemoteAddr without the port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) authEvent(r *http.Request, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

func (l *Logger) adminEvent(r *http.Request, eventType string, actorID, groupID primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		GroupID:   &groupID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// --- Authentication Events ---

// LoginLinkSent logs a login link being issued to a member.
func (l *Logger) LoginLinkSent(ctx context.Context, r *http.Request, userID, groupID primitive.ObjectID) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventLoginLinkSent, true)
	e.UserID = &userID
	e.GroupID = &groupID
	l.Log(ctx, e)
}

// LoginLinkRefused logs a login link request that was not honored. The
// caller still receives a generic success response.
func (l *Logger) LoginLinkRefused(ctx context.Context, r *http.Request, groupID primitive.ObjectID, email, reason string) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventLoginLinkRefused, false)
	e.GroupID = &groupID
	e.FailureReason = reason
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// InviteSent logs an invite link issued by an admin.
func (l *Logger) InviteSent(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, email, role string) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventInviteSent, true)
	e.ActorID = &actorID
	e.GroupID = &groupID
	e.Details = map[string]string{"email": email, "role": role}
	l.Log(ctx, e)
}

// MagicLinkUsed logs a successful verification.
func (l *Logger) MagicLinkUsed(ctx context.Context, r *http.Request, userID, groupID primitive.ObjectID, tokenType string, userCreated bool) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventMagicLinkUsed, true)
	e.UserID = &userID
	e.GroupID = &groupID
	e.Details = map[string]string{"token_type": tokenType}
	if userCreated {
		e.Details["user_created"] = "true"
	}
	l.Log(ctx, e)
}

// MagicLinkRejected logs a failed verification.
func (l *Logger) MagicLinkRejected(ctx context.Context, r *http.Request, reason string) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventMagicLinkRejected, false)
	e.FailureReason = reason
	l.Log(ctx, e)
}

// RefreshRejected logs a refresh credential that could not be exchanged.
func (l *Logger) RefreshRejected(ctx context.Context, r *http.Request, reason string) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventRefreshRejected, false)
	e.FailureReason = reason
	l.Log(ctx, e)
}

// GroupSwitched logs an authenticated move from one group to another.
func (l *Logger) GroupSwitched(ctx context.Context, r *http.Request, userID, fromGroupID, toGroupID primitive.ObjectID) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventGroupSwitched, true)
	e.UserID = &userID
	e.GroupID = &toGroupID
	e.Details = map[string]string{"from_group_id": fromGroupID.Hex()}
	l.Log(ctx, e)
}

// GroupSelected logs a group chosen at landing.
func (l *Logger) GroupSelected(ctx context.Context, r *http.Request, userID, groupID primitive.ObjectID) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventGroupSelected, true)
	e.UserID = &userID
	e.GroupID = &groupID
	l.Log(ctx, e)
}

// Logout logs a logout. userID may be nil when the access credential had
// already expired.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID *primitive.ObjectID) {
	if l == nil {
		return
	}
	e := l.authEvent(r, audit.EventLogout, true)
	e.UserID = userID
	l.Log(ctx, e)
}

// --- Admin Events ---

// GroupCreated logs a new group.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name string) {
	if l == nil {
		return
	}
	e := l.adminEvent(r, audit.EventGroupCreated, actorID, groupID)
	e.Details = map[string]string{"name": name}
	l.Log(ctx, e)
}

// GroupDeleted logs a group deletion and its cascade counts.
func (l *Logger) GroupDeleted(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, details map[string]string) {
	if l == nil {
		return
	}
	e := l.adminEvent(r, audit.EventGroupDeleted, actorID, groupID)
	e.Details = details
	l.Log(ctx, e)
}

// MemberAddedToGroup logs a membership created by accepting an invite.
func (l *Logger) MemberAddedToGroup(ctx context.Context, r *http.Request, userID, groupID primitive.ObjectID, role string) {
	if l == nil {
		return
	}
	e := l.adminEvent(r, audit.EventMemberAddedToGroup, userID, groupID)
	e.UserID = &userID
	e.Details = map[string]string{"role": role}
	l.Log(ctx, e)
}

// MemberRoleChanged logs a role change.
func (l *Logger) MemberRoleChanged(ctx context.Context, r *http.Request, actorID, userID, groupID primitive.ObjectID, newRole string) {
	if l == nil {
		return
	}
	e := l.adminEvent(r, audit.EventMemberRoleChanged, actorID, groupID)
	e.UserID = &userID
	e.Details = map[string]string{"role": newRole}
	l.Log(ctx, e)
}

// MemberRemovedFromGroup logs a member removal.
func (l *Logger) MemberRemovedFromGroup(ctx context.Context, r *http.Request, actorID, userID, groupID primitive.ObjectID) {
	if l == nil {
		return
	}
	e := l.adminEvent(r, audit.EventMemberRemovedFromGroup, actorID, groupID)
	e.UserID = &userID
	l.Log(ctx, e)
}

// AdminChangeRefused logs a role change or removal rejected by a group
// invariant (owner immutability, last admin).
func (l *Logger) AdminChangeRefused(ctx context.Context, r *http.Request, actorID, userID, groupID primitive.ObjectID, reason string) {
	if l == nil {
		return
	}
	e := l.adminEvent(r, audit.EventAdminChangeRefused, actorID, groupID)
	e.UserID = &userID
	e.Success = false
	e.FailureReason = reason
	l.Log(ctx, e)
}
