package magiclink_test

import (
	"net/url"
	"testing"

	"github.com/dalemusser/groupshare/internal/app/store/refreshsessions"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/magiclink"
	"github.com/dalemusser/groupshare/internal/app/system/mailer"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/app/system/metrics"
	"github.com/dalemusser/groupshare/internal/app/system/session"
	"github.com/dalemusser/groupshare/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type harness struct {
	db       *mongo.Database
	fx       *testutil.Fixtures
	mail     *mailer.Recorder
	tokens   *auth.Tokens
	sessions *session.Manager
	issuer   *magiclink.Issuer
	verifier *magiclink.Verifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	m := metrics.New()
	dir := membership.NewResolver(db)
	tokens := auth.NewTokens([]byte("magiclink-test-key-0123456789abcdef"), 0)
	sessions := session.NewManager(tokens, refreshsessions.New(db), dir, m, logger, 0)
	rec := &mailer.Recorder{}

	return &harness{
		db:       db,
		fx:       testutil.NewFixtures(t, db),
		mail:     rec,
		tokens:   tokens,
		sessions: sessions,
		issuer: magiclink.NewIssuer(db, rec, magiclink.IssuerConfig{
			BaseURL:  "https://groupshare.test/",
			SiteName: "GroupShare",
		}, m, logger),
		verifier: magiclink.NewVerifier(db, sessions, dir, m, logger),
	}
}

// tokenFromLink extracts the raw token from an emailed link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("bad link %q: %v", link, err)
	}
	tok := u.Query().Get("token")
	if tok == "" {
		t.Fatalf("link %q has no token", link)
	}
	return tok
}
