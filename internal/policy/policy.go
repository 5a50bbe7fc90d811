// Package policy は{ロール, エンドポイント, メソッド}からallow/denyを決定する
// 宣言的なアクセスポリシーを提供する。
//
// ポリシーは純粋関数であり、ネットワークにもDBにも依存しない。
// ルール表に一致しない組み合わせはすべて拒否する（フェイルクローズ）。
package policy

import (
	"strings"

	"github.com/hitoshi/libgate/internal/model"
)

// Rule は1エンドポイントに対する許可ロールの宣言。
// Patternは "/api/loans/{id}/return" のように {param} をワイルドカードとして含む。
type Rule struct {
	Method  string
	Pattern string
	Roles   []model.Role
}

// Policy はルール表によるアクセス判定器。
type Policy struct {
	rules []Rule
}

// New は指定ルール表のPolicyを生成する。
func New(rules []Rule) *Policy {
	return &Policy{rules: rules}
}

// Default は本APIの全認証必須エンドポイントの許可表を返す。
// ここが権限の単一の情報源であり、ハンドラ側ではロールを参照しない。
func Default() *Policy {
	staff := []model.Role{model.RoleAdmin, model.RoleLibrarian}
	everyone := []model.Role{model.RoleAdmin, model.RoleLibrarian, model.RoleMember}

	return New([]Rule{
		// ユーザー管理は管理者のみ
		{Method: "GET", Pattern: "/api/users", Roles: []model.Role{model.RoleAdmin}},
		{Method: "PUT", Pattern: "/api/users/{id}", Roles: []model.Role{model.RoleAdmin}},

		// 予測はスタッフのみ
		{Method: "GET", Pattern: "/api/models", Roles: staff},
		{Method: "POST", Pattern: "/api/predictions/{model_name}", Roles: staff},
		{Method: "POST", Pattern: "/api/predictions/{model_name}/batch", Roles: staff},

		// 蔵書カタログの参照は全ロール、変更はスタッフのみ
		{Method: "GET", Pattern: "/api/books", Roles: everyone},
		{Method: "GET", Pattern: "/api/books/{id}", Roles: everyone},
		{Method: "POST", Pattern: "/api/books", Roles: staff},
		{Method: "PUT", Pattern: "/api/books/{id}", Roles: staff},

		// 会員管理はスタッフのみ
		{Method: "GET", Pattern: "/api/members", Roles: staff},
		{Method: "GET", Pattern: "/api/members/{id}", Roles: staff},
		{Method: "POST", Pattern: "/api/members", Roles: staff},
		{Method: "PUT", Pattern: "/api/members/{id}", Roles: staff},

		// 貸出の参照はスタッフ、貸出・返却の実行は司書のみ
		{Method: "GET", Pattern: "/api/loans", Roles: staff},
		{Method: "POST", Pattern: "/api/loans", Roles: []model.Role{model.RoleLibrarian}},
		{Method: "POST", Pattern: "/api/loans/{id}/return", Roles: []model.Role{model.RoleLibrarian}},

		// トークン検証と本人のパスワード変更は全ロール
		{Method: "GET", Pattern: "/api/auth/verify", Roles: everyone},
		{Method: "POST", Pattern: "/api/auth/password", Roles: everyone},
	})
}

// Authorize はロールがmethod+pathの操作を実行してよいかを判定する。
// どのルールにも一致しない場合、および未知のロールの場合はfalseを返す。
func (p *Policy) Authorize(role model.Role, method, path string) bool {
	if _, ok := model.ParseRole(string(role)); !ok {
		return false
	}

	for _, rule := range p.rules {
		if rule.Method != method {
			continue
		}
		if !matchPattern(rule.Pattern, path) {
			continue
		}
		for _, allowed := range rule.Roles {
			if allowed == role {
				return true
			}
		}
		// パターンに一致した時点で判定は確定する。後続ルールで緩めない。
		return false
	}

	return false
}

// matchPattern はパスがパターンに一致するかをセグメント単位で判定する。
// "{xxx}" セグメントは空でない任意の1セグメントに一致する。
func matchPattern(pattern, path string) bool {
	patternSegs := splitPath(pattern)
	pathSegs := splitPath(path)

	if len(patternSegs) != len(pathSegs) {
		return false
	}

	for i, seg := range patternSegs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if pathSegs[i] == "" {
				return false
			}
			continue
		}
		if seg != pathSegs[i] {
			return false
		}
	}

	return true
}

// splitPath はパスを空セグメントを除いて分割する。
func splitPath(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		return nil
	}
	return parts
}
