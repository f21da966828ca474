package gateway

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nao1215/loadgate/pkg/event"
	"github.com/nao1215/loadgate/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// createdAtLayout は転送記録の作成日時を保存する書式。
// 固定長にして文字列比較と時刻順を一致させる。
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// ErrForwardLogDisabled は転送ログが無効であることを表す。
var ErrForwardLogDisabled = errors.New("転送ログは無効です")

// ForwardLog は転送記録の保存先。
type ForwardLog interface {
	// Record は転送記録を1件追記する。
	Record(ctx context.Context, f *event.Forward) error
	// Recent は新しい順に最大limit件の転送記録を返す。
	Recent(ctx context.Context, limit int) ([]event.Forward, error)
	// Close は保存先を閉じる。
	Close() error
}

// nopForwardLog は転送ログが無効な場合に使用する何もしない実装。
type nopForwardLog struct{}

func (nopForwardLog) Record(context.Context, *event.Forward) error { return nil }

func (nopForwardLog) Recent(context.Context, int) ([]event.Forward, error) {
	return nil, ErrForwardLogDisabled
}

func (nopForwardLog) Close() error { return nil }

// sqliteForwardLog はSQLiteに転送記録を保存する実装。
type sqliteForwardLog struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// openForwardLog はpathのSQLiteファイルを開いてスキーマを適用する。
// pathが空の場合は何もしない実装を返す。
func openForwardLog(ctx context.Context, path string) (ForwardLog, error) {
	if path == "" {
		return nopForwardLog{}, nil
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	fl, err := newSQLiteForwardLog(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return fl, nil
}

// newSQLiteForwardLog は開いたSQLite接続にスキーマを適用して転送ログを生成する。
func newSQLiteForwardLog(ctx context.Context, db *sql.DB) (*sqliteForwardLog, error) {
	if _, err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &sqliteForwardLog{db: db}, nil
}

// Record は転送記録を1件追記する。
func (l *sqliteForwardLog) Record(ctx context.Context, f *event.Forward) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO forwards (id, request_id, operation, method, upstream_url, status_code, outcome, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.RequestID, string(f.Operation), f.Method, f.UpstreamURL,
		f.StatusCode, string(f.Outcome), f.DurationMS, f.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("転送記録の保存に失敗: %w", err)
	}
	return nil
}

// Recent は新しい順に最大limit件の転送記録を返す。
func (l *sqliteForwardLog) Recent(ctx context.Context, limit int) ([]event.Forward, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, request_id, operation, method, upstream_url, status_code, outcome, duration_ms, created_at
		FROM forwards
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("転送記録の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	forwards := make([]event.Forward, 0, limit)
	for rows.Next() {
		var (
			f         event.Forward
			operation string
			outcome   string
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.RequestID, &operation, &f.Method, &f.UpstreamURL,
			&f.StatusCode, &outcome, &f.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("転送記録の読み取りに失敗: %w", err)
		}
		f.Operation = event.Operation(operation)
		f.Outcome = event.Outcome(outcome)
		if f.CreatedAt, err = time.Parse(createdAtLayout, createdAt); err != nil {
			return nil, fmt.Errorf("作成日時の解析に失敗: %w", err)
		}
		forwards = append(forwards, f)
	}
	return forwards, rows.Err()
}

// Close はデータベース接続を閉じる。
func (l *sqliteForwardLog) Close() error {
	return l.db.Close()
}
