package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// openPragmas は全接続で有効化するDSNパラメータ。
const openPragmas = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

// Open はSQLiteデータベース接続を開く。
// pathにはDBファイルのパスを指定する（テストでは "file:xxx?mode=memory&cache=shared" も可）。
// 外部キー制約とWAL、busy_timeoutをDSNパラメータで有効化する。
// pathがすでにDSNパラメータを含む場合はそこに連結する。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + openPragmas

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
