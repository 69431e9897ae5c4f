package photos_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/groupshare/internal/app/features/photos"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/dalemusser/groupshare/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	fx     *testutil.Fixtures
	tokens *auth.Tokens
	router chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	tokens := auth.NewTokens(securecookie.GenerateRandomKey(32), 0)

	r := chi.NewRouter()
	r.Mount("/photos", photos.Routes(photos.NewHandler(db, logger), auth.NewGuard(tokens, logger)))
	return &env{fx: testutil.NewFixtures(t, db), tokens: tokens, router: r}
}

func (e *env) as(t *testing.T, userID, groupID primitive.ObjectID, role authz.Role) string {
	t.Helper()
	tok, _, err := e.tokens.Mint(auth.Scope{UserID: userID, GroupID: groupID, Role: role})
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	return tok
}

func (e *env) do(method, path, bearer string, body any) *testutil.ResponseRecorder {
	req := testutil.NewJSONRequest(method, path, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndList(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateUser(ctx, "Owner", "o@example.com")
	g := e.fx.CreateGroup(ctx, "G", owner.ID)
	tok := e.as(t, owner.ID, g.ID, authz.RoleOwner)

	rec := e.do("POST", "/photos", tok, map[string]string{
		"caption":    "<b>Summit</b> day",
		"storageKey": "bucket/summit.jpg",
	})
	rec.AssertStatus(t, http.StatusCreated)
	var created models.Photo
	rec.DecodeJSON(t, &created)
	if created.GroupID != g.ID || created.UploaderID != owner.ID {
		t.Errorf("photo not scoped to caller: %+v", created)
	}
	if created.Caption != "Summit day" {
		t.Errorf("Caption = %q, want sanitized", created.Caption)
	}

	rec = e.do("GET", "/photos", tok, nil)
	rec.AssertStatus(t, http.StatusOK)
	var list struct {
		Photos []models.Photo `json:"photos"`
	}
	rec.DecodeJSON(t, &list)
	if len(list.Photos) != 1 || list.Photos[0].ID != created.ID {
		t.Errorf("list: %+v", list.Photos)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateUser(ctx, "Owner", "o@example.com")
	m := e.fx.CreateUser(ctx, "M", "m@example.com")
	g := e.fx.CreateGroup(ctx, "G", owner.ID)
	e.fx.CreateMember(ctx, m.ID, g.ID)

	rec := e.do("POST", "/photos", e.as(t, owner.ID, g.ID, authz.RoleOwner), map[string]string{"caption": "no key"})
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.do("POST", "/photos", e.as(t, m.ID, g.ID, authz.RoleMember), map[string]string{"storageKey": "k"})
	rec.AssertStatus(t, http.StatusForbidden)

	rec = e.do("GET", "/photos?limit=zero", e.as(t, m.ID, g.ID, authz.RoleMember), nil)
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.do("GET", "/photos", "", nil)
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestTenantIsolation(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "A", "a@example.com")
	b := e.fx.CreateUser(ctx, "B", "b@example.com")
	ga := e.fx.CreateGroup(ctx, "A", a.ID)
	gb := e.fx.CreateGroup(ctx, "B", b.ID)
	photo := e.fx.CreatePhoto(ctx, ga.ID, a.ID, "private")

	tokA := e.as(t, a.ID, ga.ID, authz.RoleOwner)
	tokB := e.as(t, b.ID, gb.ID, authz.RoleAdmin)
	path := "/photos/" + photo.ID.Hex()

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"get other group's photo", "GET", path},
		{"delete other group's photo", "DELETE", path},
		{"unknown photo", "GET", "/photos/" + primitive.NewObjectID().Hex()},
		{"malformed id", "GET", "/photos/xyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, tokB, nil)
			rec.AssertStatus(t, http.StatusNotFound)
			rec.AssertErrorCode(t, "not_found")
		})
	}

	rec := e.do("GET", "/photos", tokB, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"photos":[]`)

	rec = e.do("GET", path, tokA, nil)
	rec.AssertStatus(t, http.StatusOK)

	rec = e.do("DELETE", path, tokA, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec = e.do("GET", path, tokA, nil)
	rec.AssertStatus(t, http.StatusNotFound)
}
