package bootstrap

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/groupshare/internal/app/system/mailer"
	"github.com/dalemusser/groupshare/internal/testutil"
	"go.uber.org/zap"
)

func validConfig() AppConfig {
	return AppConfig{
		SessionKey:             strings.Repeat("k", 40),
		BaseURL:                "https://groupshare.test",
		SiteName:               "GroupShare",
		MailMode:               mailer.ModeSMTP,
		MailSMTPHost:           "smtp.test",
		MailFrom:               "noreply@groupshare.test",
		AuditLogAuth:           "all",
		AuditLogAdmin:          "db",
		AccessTokenTTL:         15 * time.Minute,
		RefreshTokenTTL:        720 * time.Hour,
		MagicLinkTTL:           15 * time.Minute,
		CORSAllowedOrigins:     []string{"https://app.groupshare.test"},
		SessionCleanupInterval: time.Hour,
		SessionRetention:       7 * 24 * time.Hour,
	}
}

func TestValidateApp(t *testing.T) {
	tests := []struct {
		name    string
		prod    bool
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", true, func(*AppConfig) {}, false},
		{"empty session key", false, func(c *AppConfig) { c.SessionKey = " " }, true},
		{"short key in dev", false, func(c *AppConfig) { c.SessionKey = "short" }, false},
		{"short key in prod", true, func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"relative base url", false, func(c *AppConfig) { c.BaseURL = "/auth" }, true},
		{"log mail in dev", false, func(c *AppConfig) { c.MailMode = mailer.ModeLog }, false},
		{"log mail in prod", true, func(c *AppConfig) { c.MailMode = mailer.ModeLog }, true},
		{"smtp without host", false, func(c *AppConfig) { c.MailSMTPHost = "" }, true},
		{"unknown mail mode", false, func(c *AppConfig) { c.MailMode = "pigeon" }, true},
		{"bad audit mode", false, func(c *AppConfig) { c.AuditLogAuth = "verbose" }, true},
		{"zero link ttl", false, func(c *AppConfig) { c.MagicLinkTTL = 0 }, true},
		{"access outlives refresh", false, func(c *AppConfig) { c.AccessTokenTTL = 800 * time.Hour }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateApp(tt.prod, cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateApp() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.test, ,https://b.test ,")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("empty input should give nil")
	}
}

func TestRouter_LoginFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mail := &mailer.Recorder{}
	cfg := validConfig()
	s, err := buildServices(cfg, false, db, mail, zap.NewNop())
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	router := newRouter(cfg, db.Client(), db, s, zap.NewNop())

	fx := testutil.NewFixtures(t, db)
	u := fx.CreateUser(ctx, "Ann", "ann@example.com")
	g := fx.CreateGroup(ctx, "Hikers", u.ID)

	serve := func(req *http.Request) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(testutil.NewJSONRequest("POST", "/auth/send-login-link",
		map[string]string{"groupId": g.ID.Hex(), "email": u.Email}))
	rec.AssertStatus(t, http.StatusOK)

	msg, ok := mail.Last()
	if !ok {
		t.Fatal("no login email sent")
	}
	_, after, found := strings.Cut(msg.TextBody, "token=")
	if !found {
		t.Fatalf("no token in email body: %q", msg.TextBody)
	}
	token := strings.Fields(after)[0]

	rec = serve(testutil.NewJSONRequest("POST", "/auth/verify-magic-link", map[string]string{"token": token}))
	rec.AssertStatus(t, http.StatusOK)
	var landing struct {
		AccessToken string `json:"accessToken"`
	}
	rec.DecodeJSON(t, &landing)
	if landing.AccessToken == "" {
		t.Fatal("verify returned no access credential")
	}

	req := testutil.NewRequest("GET", "/photos")
	req.Header.Set("Authorization", "Bearer "+landing.AccessToken)
	serve(req).AssertStatus(t, http.StatusOK)

	rec = serve(testutil.NewRequest("GET", "/metrics"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "groupshare_magic_links_issued_total")
}

func TestRouter_Fallbacks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := validConfig()
	s, err := buildServices(cfg, false, db, &mailer.Recorder{}, zap.NewNop())
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	router := newRouter(cfg, db.Client(), db, s, zap.NewNop())

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/nowhere", http.StatusNotFound},
		{"GET", "/photos", http.StatusUnauthorized},
		{"GET", "/auth/logout", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.NewRequest(tt.method, tt.path))
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestBuildServices_EmptyKey(t *testing.T) {
	cfg := validConfig()
	cfg.SessionKey = ""
	if _, err := buildServices(cfg, false, nil, &mailer.Recorder{}, zap.NewNop()); err == nil {
		t.Error("expected an error for an empty session key")
	}
}
