package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/afrimobile/go-smileid/core"
	smileidmigrations "github.com/afrimobile/go-smileid/migrations"
	sqlstore "github.com/afrimobile/go-smileid/store/sql"
	"github.com/afrimobile/go-smileid/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-smileid-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"smileid_links", "smileid_verification_outcomes"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestLinkStore_RecordGetAndList(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.LinkStore()

	singleUse := true
	expiry := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	req := core.LinkRequest{
		Name:          "Personal Link - 2026-02-13",
		CallbackURL:   "https://example.com/webhook/smileid",
		SingleUse:     &singleUse,
		UserID:        "user-1",
		PartnerParams: map[string]any{"user_id": "user-1", "source": "test"},
		ExpiresAt:     &expiry,
	}
	for _, linkID := range []string{"lnk_1", "lnk_2"} {
		result := core.LinkResult{
			Success:         true,
			LinkID:          linkID,
			PersonalLinkURL: "https://links.sandbox.usesmileid.com/1234/" + linkID,
			UserID:          "user-1",
			ExpiresAt:       core.FormatTimestamp(expiry),
		}
		if err := store.RecordLink(ctx, result, req); err != nil {
			t.Fatalf("record link %s: %v", linkID, err)
		}
	}

	if err := store.RecordLink(ctx, core.LinkResult{Success: true, UserID: "user-1"}, req); err != nil {
		t.Fatalf("record link without id: %v", err)
	}

	got, err := store.Get(ctx, "lnk_1")
	if err != nil {
		t.Fatalf("get link: %v", err)
	}
	if got.UserID != "user-1" || !got.SingleUse || got.PartnerParams["source"] != "test" {
		t.Fatalf("unexpected stored link: %#v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expiry) {
		t.Fatalf("expected expiry %v, got %v", expiry, got.ExpiresAt)
	}

	links, err := store.ListByUser(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links (id-less result skipped), got %d", len(links))
	}

	if _, err := store.Get(ctx, "lnk_missing"); core.HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOutcomeStore_UpsertsByJobID(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.OutcomeStore()

	receivedAt := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	first := core.VerificationRecord{
		UserID:        "user-1",
		JobID:         "job-1",
		ResultCode:    "2815",
		ResultText:    "Document expired",
		Confidence:    42.5,
		PartnerParams: map[string]any{"user_id": "user-1"},
		Actions:       map[string]any{"Liveness_Check": "Failed"},
		Outcome:       core.OutcomeFailure,
		ReceivedAt:    receivedAt,
		Raw:           map[string]any{"job_id": "job-1"},
	}
	if err := webhooks.Dispatch(ctx, store, first); err != nil {
		t.Fatalf("save failure: %v", err)
	}

	second := first
	second.ResultCode = "2814"
	second.ResultText = "Enroll User"
	second.Outcome = core.OutcomeSuccess
	second.ReceivedAt = receivedAt.Add(time.Minute)
	if err := webhooks.Dispatch(ctx, store, second); err != nil {
		t.Fatalf("save success: %v", err)
	}

	got, err := store.GetOutcome(ctx, "job-1")
	if err != nil {
		t.Fatalf("get outcome: %v", err)
	}
	if got.Outcome != core.OutcomeSuccess || got.ResultCode != "2814" {
		t.Fatalf("expected latest delivery to win, got %#v", got)
	}
	if got.Confidence != 42.5 {
		t.Fatalf("expected numeric confidence, got %#v", got.Confidence)
	}
	if got.Actions["Liveness_Check"] != "Failed" {
		t.Fatalf("expected actions to round trip, got %#v", got.Actions)
	}

	count, err := store.DeliveryCount(ctx, "job-1")
	if err != nil {
		t.Fatalf("delivery count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deliveries, got %d", count)
	}

	listed, err := store.ListOutcomesByUser(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one outcome row per job, got %d", len(listed))
	}

	if _, err := store.GetOutcome(ctx, "job-404"); core.HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOutcomeStore_AsProcessorSink(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewOutcomeStore(client.DB())
	if err != nil {
		t.Fatalf("new outcome store: %v", err)
	}
	processor := webhooks.NewProcessor(nil, store)
	result, err := processor.Handle(ctx, core.InboundRequest{
		Body: []byte(`{"job_id":"job-7","user_id":"user-7","result_code":"1020","ResultText":"Pending"}`),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", result.StatusCode)
	}
	got, err := store.GetOutcome(ctx, "job-7")
	if err != nil {
		t.Fatalf("get outcome: %v", err)
	}
	if got.Outcome != core.OutcomeOther || got.ResultText != "Pending" {
		t.Fatalf("unexpected stored outcome: %#v", got)
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:smileid-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	if err := smileidmigrations.Apply(context.Background(), client, smileidmigrations.DialectSQLite); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
