package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// recordingConn is a driver stub: it records every statement and reports a
// configurable affected-row count, which is all the guarded updates consult.
type recordingConn struct {
	queries      []string
	rowsAffected int64
}

func (c *recordingConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *recordingConn) Close() error                        { return nil }
func (c *recordingConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *recordingConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.queries = append(c.queries, query)
	return driver.RowsAffected(c.rowsAffected), nil
}

type stubDriver struct {
	conn *recordingConn
}

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConnector struct {
	conn *recordingConn
}

func (s stubConnector) Connect(context.Context) (driver.Conn, error) { return s.conn, nil }
func (s stubConnector) Driver() driver.Driver                        { return stubDriver{conn: s.conn} }

func newRecordingStore() (*PostgresStore, *recordingConn) {
	conn := &recordingConn{rowsAffected: 1}
	db := sql.OpenDB(stubConnector{conn: conn})
	return NewPostgresStore(db), conn
}

func lastQuery(t *testing.T, conn *recordingConn) string {
	t.Helper()
	if len(conn.queries) == 0 {
		t.Fatal("no statement executed")
	}
	return conn.queries[len(conn.queries)-1]
}

func TestSaveDraftUpsertsOnlyDrafts(t *testing.T) {
	store, conn := newRecordingStore()
	ctx := context.Background()

	saved, err := store.SaveDraft(ctx, "app_1", "usr_1", Profile{Name: "Asha Kumar"})
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if !saved {
		t.Fatal("draft row update should report saved")
	}

	query := lastQuery(t, conn)
	if !strings.Contains(query, "ON CONFLICT (user_id) DO UPDATE") {
		t.Fatalf("save draft is not an upsert:\n%s", query)
	}
	if !strings.Contains(query, "applications.status = 'draft'") {
		t.Fatalf("save draft upsert is not guarded on draft status:\n%s", query)
	}

	// A submitted row matches zero rows; the caller turns that into a 409.
	conn.rowsAffected = 0
	saved, err = store.SaveDraft(ctx, "app_1", "usr_1", Profile{})
	if err != nil {
		t.Fatalf("SaveDraft on frozen row: %v", err)
	}
	if saved {
		t.Fatal("frozen application must not report saved")
	}
}

func TestDecideSubmissionGuardedOnPending(t *testing.T) {
	store, conn := newRecordingStore()
	ctx := context.Background()

	applied, err := store.DecideSubmission(ctx, "app_1", StatusApproved, "usr_admin")
	if err != nil {
		t.Fatalf("DecideSubmission: %v", err)
	}
	if !applied {
		t.Fatal("pending decision should report applied")
	}
	if query := lastQuery(t, conn); !strings.Contains(query, "status = 'pending'") {
		t.Fatalf("decision update is not guarded on pending:\n%s", query)
	}

	// Racing or repeated decisions match zero rows; the service re-reads and
	// resolves idempotent-vs-conflict from the stored status.
	conn.rowsAffected = 0
	applied, err = store.DecideSubmission(ctx, "app_1", StatusRejected, "usr_admin")
	if err != nil {
		t.Fatalf("DecideSubmission on decided row: %v", err)
	}
	if applied {
		t.Fatal("decided application must not report applied")
	}
}

type fakeRow struct {
	vals []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		if r.vals[i] == nil {
			continue
		}
		switch target := d.(type) {
		case *string:
			*target = r.vals[i].(string)
		case *[]byte:
			*target = r.vals[i].([]byte)
		case **time.Time:
			v := r.vals[i].(time.Time)
			*target = &v
		case *time.Time:
			*target = r.vals[i].(time.Time)
		}
	}
	return nil
}

func TestScanApplicationDecodesProfile(t *testing.T) {
	payload, err := json.Marshal(Profile{Name: "Asha Kumar", NationalID: "123456789012"})
	if err != nil {
		t.Fatalf("marshal profile: %v", err)
	}
	submitted := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	app, err := scanApplication(fakeRow{vals: []any{
		"app_1", "usr_1", payload, StatusPending, submitted, "", nil, submitted,
	}})
	if err != nil {
		t.Fatalf("scanApplication: %v", err)
	}
	if app.Profile.Name != "Asha Kumar" || app.Profile.NationalID != "123456789012" {
		t.Fatalf("profile = %+v", app.Profile)
	}
	if app.SubmittedAt == nil || !app.SubmittedAt.Equal(submitted) {
		t.Fatalf("submittedAt = %v", app.SubmittedAt)
	}
	if app.DecidedAt != nil {
		t.Fatalf("decidedAt = %v, want nil", app.DecidedAt)
	}

	_, err = scanApplication(fakeRow{vals: []any{
		"app_1", "usr_1", []byte("{not json"), StatusPending, submitted, "", nil, submitted,
	}})
	if err == nil || !strings.Contains(err.Error(), "decode profile") {
		t.Fatalf("corrupt payload error = %v", err)
	}
}
