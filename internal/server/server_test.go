// internal/server/server_test.go
//
// Handler tests: httptest requests against the real router and store, with
// the database replaced by sqlmock.

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/dogcfg/internal/store"
)

var (
	qGuild  = regexp.QuoteMeta(`SELECT id, name, created_at FROM guild WHERE id = ?`)
	qConfig = regexp.QuoteMeta(`SELECT body FROM guild_config WHERE guild_id = ?`)
	qWrite  = regexp.QuoteMeta(`INSERT INTO guild_config (guild_id, body, updated_at)`)
)

func newTestServer(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
		db.Close()
	})
	st := store.New(sqlx.NewDb(db, "sqlmock"), 8)
	return New(st, WithLogger(zap.NewNop())).Routes(), mock
}

func expectGuild(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery(qGuild).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).
			AddRow(id, "Dogs", time.Unix(0, 0)))
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestStatus(t *testing.T) {
	h, mock := newTestServer(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM guild`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	rec := do(h, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	if out["ready"] != true || out["guilds"] != float64(2) {
		t.Fatalf("unexpected body: %v", out)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestUnknownGuild(t *testing.T) {
	h, mock := newTestServer(t)
	mock.ExpectQuery(qGuild).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	for _, target := range []string{"/api/guild/9/config", "/api/guild/not-a-number/config"} {
		rec := do(h, http.MethodGet, target, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", target, rec.Code)
		}
		out := decode(t, rec)
		if out["code"] != CodeUnknownGuild || out["message"] != "Unknown guild." {
			t.Fatalf("%s: unexpected body %v", target, out)
		}
	}
}

func TestGuild(t *testing.T) {
	h, mock := newTestServer(t)
	expectGuild(mock, 1234567890123456789)

	out := decode(t, do(h, http.MethodGet, "/api/guild/1234567890123456789", ""))
	if out["id"] != "1234567890123456789" || out["name"] != "Dogs" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestConfigGET(t *testing.T) {
	h, mock := newTestServer(t)

	expectGuild(mock, 42)
	mock.ExpectQuery(qConfig).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))
	out := decode(t, do(h, http.MethodGet, "/api/guild/42/config", ""))
	if out["config"] != nil || out["guild_id"] != float64(42) {
		t.Fatalf("missing config should be null: %v", out)
	}

	expectGuild(mock, 42)
	mock.ExpectQuery(qConfig).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow("quiet: true\n"))
	out = decode(t, do(h, http.MethodGet, "/api/guild/42/config", ""))
	if out["config"] != "quiet: true\n" {
		t.Fatalf("unexpected config: %v", out)
	}
}

func TestConfigPATCH_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		code   string
		msg    string
	}{
		{"malformed", "gatekeeper: [", http.StatusBadRequest, CodeInvalidYAML, "Invalid YAML ("},
		{"scalar", "just a string", http.StatusBadRequest, CodeInvalidConfig, "Configuration is not a dictionary (mapping)."},
		{"violations", "gatekeeper:\n  enabled: true\n  bogus: 1\n", http.StatusUnprocessableEntity, CodeInvalidConfig, "gatekeeper.bogus"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, mock := newTestServer(t)
			expectGuild(mock, 42)

			rec := do(h, http.MethodPatch, "/api/guild/42/config", c.body)
			if rec.Code != c.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, c.status, rec.Body.String())
			}
			out := decode(t, rec)
			if out["error"] != true || out["code"] != c.code {
				t.Fatalf("unexpected body: %v", out)
			}
			if msg, _ := out["message"].(string); !strings.Contains(msg, c.msg) {
				t.Fatalf("message = %q, want to contain %q", msg, c.msg)
			}
		})
	}
}

func TestConfigPATCH_ViolationsListed(t *testing.T) {
	h, mock := newTestServer(t)
	expectGuild(mock, 42)

	rec := do(h, http.MethodPatch, "/api/guild/42/config", "disabled_cogs: [Mod, Nope]\n")
	out := decode(t, rec)
	vs, _ := out["violations"].([]any)
	if len(vs) != 1 {
		t.Fatalf("violations = %v", out["violations"])
	}
	v := vs[0].(map[string]any)
	if v["path"] != "disabled_cogs[1]" || v["kind"] != "disallowed_value" {
		t.Fatalf("unexpected violation: %v", v)
	}
}

func TestConfigPATCH_Writes(t *testing.T) {
	h, mock := newTestServer(t)
	expectGuild(mock, 42)
	body := "gatekeeper:\n  enabled: true\n"
	mock.ExpectExec(qWrite).WithArgs(int64(42), body).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := do(h, http.MethodPatch, "/api/guild/42/config", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out := decode(t, rec); out["success"] != true {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestConfigPATCH_BlankBodyIsEmptyDocument(t *testing.T) {
	h, mock := newTestServer(t)
	expectGuild(mock, 42)
	mock.ExpectExec(qWrite).WithArgs(int64(42), "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if rec := do(h, http.MethodPatch, "/api/guild/42/config", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConfigCheck(t *testing.T) {
	h, mock := newTestServer(t)

	expectGuild(mock, 42)
	mock.ExpectQuery(qConfig).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow("publish_quotes: maybe\n"))
	out := decode(t, do(h, http.MethodGet, "/api/guild/42/config/check", ""))
	if out["valid"] != false {
		t.Fatalf("unexpected body: %v", out)
	}
	vs := out["violations"].([]any)
	if len(vs) != 1 || vs[0].(map[string]any)["path"] != "publish_quotes" {
		t.Fatalf("violations = %v", vs)
	}

	expectGuild(mock, 42)
	mock.ExpectQuery(qConfig).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow("gatekeeper: ["))
	out = decode(t, do(h, http.MethodGet, "/api/guild/42/config/check", ""))
	vs = out["violations"].([]any)
	if out["valid"] != false || len(vs) != 1 || vs[0].(map[string]any)["kind"] != "malformed" {
		t.Fatalf("stored malformed body: %v", out)
	}
}

func TestConfigCheck_NoConfig(t *testing.T) {
	h, mock := newTestServer(t)
	expectGuild(mock, 42)
	mock.ExpectQuery(qConfig).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	out := decode(t, do(h, http.MethodGet, "/api/guild/42/config/check", ""))
	if out["valid"] != true || len(out["violations"].([]any)) != 0 {
		t.Fatalf("unexpected body: %v", out)
	}
}
