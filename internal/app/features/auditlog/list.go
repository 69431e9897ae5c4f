// internal/app/features/auditlog/list.go
package auditlog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/groupshare/internal/app/store/audit"
	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /groups/{groupID}/audit. Only events recorded
// against the caller's active group are visible.
//
// Query parameters: category, event_type, start_date, end_date
// (YYYY-MM-DD) and page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFrom(r)
	if !ok {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	eventType := strings.TrimSpace(q.Get("event_type"))

	if category != "" && eventTypesForCategory(category) == nil {
		httpjson.Error(w, h.Log, fmt.Errorf("category %q: %w", category, apperr.ErrBadRequest))
		return
	}
	if eventType != "" && !knownEventType(category, eventType) {
		httpjson.Error(w, h.Log, fmt.Errorf("event type %q: %w", eventType, apperr.ErrBadRequest))
		return
	}

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	groupID := scope.GroupID
	filter := audit.QueryFilter{
		GroupID:   &groupID,
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if t, err := time.Parse("2006-01-02", q.Get("start_date")); err == nil {
		filter.StartTime = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("end_date")); err == nil {
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("query audit events: %w", err))
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("count audit events: %w", err))
		return
	}

	// Batch fetch user names
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0, len(events))
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id == nil {
				continue
			}
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) > 0 {
		users, err := h.Users.GetMany(ctx, ids)
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for id, u := range users {
			names[id] = u.Name
		}
	}
	nameOf := func(id *primitive.ObjectID) string {
		if id == nil {
			return ""
		}
		if n, ok := names[*id]; ok {
			return n
		}
		return id.Hex()
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:         e.ID.Hex(),
			Timestamp:  e.Timestamp,
			Category:   e.Category,
			EventType:  e.EventType,
			ActorName:  nameOf(e.ActorID),
			TargetName: nameOf(e.UserID),
			Success:    e.Success,
			Reason:     e.FailureReason,
			Details:    e.Details,
		})
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	httpjson.Write(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}
