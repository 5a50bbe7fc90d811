// Package model はドメインモデルを定義する。
package model

import "time"

// Role はAPIの操作権限を決定するユーザーロール。
type Role string

const (
	// RoleAdmin はシステム管理者。ユーザー管理を含む全操作が可能。
	RoleAdmin Role = "admin"
	// RoleLibrarian は司書。貸出・返却・予測・蔵書管理が可能。
	RoleLibrarian Role = "librarian"
	// RoleMember は一般会員。蔵書カタログの参照のみ可能。
	RoleMember Role = "member"
)

// ParseRole は文字列をRoleに変換する。未知の値はokにfalseを返す。
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return Role(s), true
	}
	return "", false
}

// User はAPIの認証ユーザーを表す。
// パスワードは平文では保持せず、bcryptハッシュのみを保存する。
// 退会・停止はIsActiveによるソフト無効化で表現し、物理削除は行わない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal は検証済みトークンから得られた認証主体を表す。
type Principal struct {
	UserID string
	Role   Role
}

// TokenPair は発行済みトークンとその属性をまとめる。
type TokenPair struct {
	Token     string
	Role      Role
	ExpiresAt time.Time
}
