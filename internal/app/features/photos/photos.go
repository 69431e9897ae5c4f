// internal/app/features/photos/photos.go
package photos

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	photostore "github.com/dalemusser/groupshare/internal/app/store/photos"
	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/htmlsanitize"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type createRequest struct {
	Caption    string `json:"caption"`
	StorageKey string `json:"storageKey"`
}

type listResponse struct {
	Photos []models.Photo `json:"photos"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// ServeList handles GET /photos?limit=N.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	scope, _ := auth.ScopeFrom(r)

	limit := int64(defaultListLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			httpjson.Error(w, h.Log, apperr.ErrBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list photos")
	defer cancel()

	list, err := h.Photos.ListByGroup(ctx, scope.GroupID, limit)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, listResponse{Photos: list})
}

// HandleCreate handles POST /photos. The photo always lands in the active
// group; a group id in the body would be ignored.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	scope, _ := auth.ScopeFrom(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	key := strings.TrimSpace(req.StorageKey)
	if key == "" {
		httpjson.Error(w, h.Log, apperr.ErrBadRequest)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create photo")
	defer cancel()

	p, err := h.Photos.Create(ctx, models.Photo{
		GroupID:    scope.GroupID,
		UploaderID: scope.UserID,
		Caption:    htmlsanitize.Text(req.Caption),
		StorageKey: key,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Log.Info("photo created",
		zap.String("photo_id", p.ID.Hex()),
		zap.String("group_id", p.GroupID.Hex()),
		zap.String("user_id", p.UploaderID.Hex()))
	httpjson.Write(w, http.StatusCreated, p)
}

// ServePhoto handles GET /photos/{photoID}. A photo from another group is
// indistinguishable from a missing one.
func (h *Handler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	scope, _ := auth.ScopeFrom(r)
	photoID, ok := h.photoParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get photo")
	defer cancel()

	p, err := h.Photos.GetInGroup(ctx, scope.GroupID, photoID)
	if err != nil {
		httpjson.Error(w, h.Log, notFound(err))
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /photos/{photoID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	scope, _ := auth.ScopeFrom(r)
	photoID, ok := h.photoParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete photo")
	defer cancel()

	if err := h.Photos.DeleteInGroup(ctx, scope.GroupID, photoID); err != nil {
		httpjson.Error(w, h.Log, notFound(err))
		return
	}
	h.Log.Info("photo deleted",
		zap.String("photo_id", photoID.Hex()),
		zap.String("group_id", scope.GroupID.Hex()),
		zap.String("user_id", scope.UserID.Hex()))
	httpjson.Write(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) photoParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "photoID"))
	if err != nil {
		httpjson.Error(w, h.Log, apperr.ErrNotFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

func notFound(err error) error {
	if errors.Is(err, photostore.ErrNotFound) {
		return apperr.ErrNotFound
	}
	return err
}
