// Package migration はSQLiteのスキーマをバージョン付きのSQLファイルで更新する。
//
// マイグレーションはfs.FS（通常はembed.FS）上の NNNNNN_name.up.sql 形式のファイルで、
// 適用済みのバージョンは schema_migrations テーブルに記録する。
package migration

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"slices"
	"strconv"
	"strings"
)

// upSuffix は適用対象のSQLファイルの拡張子。
const upSuffix = ".up.sql"

// versionTableDDL は適用済みバージョンを記録するテーブルの定義。
const versionTableDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`

// ErrDuplicateVersion は同じバージョン番号のファイルが複数あることを表す。
var ErrDuplicateVersion = errors.New("マイグレーションのバージョンが重複しています")

// step は1つのマイグレーション。
type step struct {
	version int
	name    string
	query   string
}

// Run はdir直下のマイグレーションのうち未適用のものをバージョン順に適用し、
// 今回適用したバージョンを返す。途中で失敗した場合は、それまでに適用したバージョンとエラーを返す。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) ([]int, error) {
	steps, err := loadSteps(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの読み込みに失敗: %w", err)
	}

	if _, err := db.ExecContext(ctx, versionTableDDL); err != nil {
		return nil, fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}
	done, err := appliedSet(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	var applied []int
	for _, s := range steps {
		if _, ok := done[s.version]; ok {
			continue
		}
		if err := s.apply(ctx, db); err != nil {
			return applied, fmt.Errorf("マイグレーション %06d_%s の適用に失敗: %w", s.version, s.name, err)
		}
		log.Printf("[Migration] %06d_%s を適用しました", s.version, s.name)
		applied = append(applied, s.version)
	}
	return applied, nil
}

// loadSteps はdir直下のup.sqlファイルを読み込み、バージョン順に並べて返す。
// 名前が形式に合わないファイルは無視する。
func loadSteps(fsys fs.FS, dir string) ([]step, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var steps []step
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		query, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{version: version, name: name, query: string(query)})
	}

	slices.SortFunc(steps, func(a, b step) int { return cmp.Compare(a.version, b.version) })
	for i := 1; i < len(steps); i++ {
		if steps[i].version == steps[i-1].version {
			return nil, fmt.Errorf("%w: %06d", ErrDuplicateVersion, steps[i].version)
		}
	}
	return steps, nil
}

// parseFileName は "000001_create_forwards.up.sql" をバージョンと名前に分解する。
func parseFileName(fileName string) (int, string, bool) {
	base, ok := strings.CutSuffix(fileName, upSuffix)
	if !ok {
		return 0, "", false
	}
	prefix, name, ok := strings.Cut(base, "_")
	if !ok {
		return 0, "", false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version < 0 {
		return 0, "", false
	}
	return version, name, true
}

// appliedSet は適用済みのバージョンを集合として返す。
func appliedSet(ctx context.Context, db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	set := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		set[v] = struct{}{}
	}
	return set, rows.Err()
}

// apply はSQLの実行とバージョンの記録を同一トランザクションで行う。
func (s step) apply(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, s.query); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", s.version); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
