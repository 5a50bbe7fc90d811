package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/libgate/internal/model"
	"github.com/hitoshi/libgate/internal/repository"
)

// dummyPasswordHash はユーザー不存在時の比較に使うダミーハッシュ。
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service は認証に関するビジネスロジックを提供する。
// 資格情報ストア（UserRepository）とトークンコーデックを注入して構築する。
type Service struct {
	users repository.UserRepository
	codec *TokenCodec
	now   func() time.Time
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, codec *TokenCodec) *Service {
	return &Service{
		users: users,
		codec: codec,
		now:   time.Now,
	}
}

// Login はユーザー名とパスワードを検証し、セッショントークンを発行する。
// ユーザー不存在・パスワード不一致・アカウント停止のいずれもINVALID_CREDENTIALSを
// 返し、失敗理由を外部に区別させない。
// 成功時は監査イベントとしてロールとタイムスタンプを構造化ログに出力する。
func (s *Service) Login(ctx context.Context, username, password string) (*model.TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		// 存在しないユーザーでも同等の時間を消費させ、応答時間からの
		// ユーザー列挙を防ぐ
		_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(password))
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed",
			slog.String("username", username),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	pair, err := s.codec.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	// 監査イベント。永続化はログシンク側の責務とする。
	slog.Info("login succeeded",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.Time("expires_at", pair.ExpiresAt),
	)

	return pair, nil
}

// Verify はトークンを検証し、認証主体を返す。
// 期限切れはTOKEN_EXPIRED、それ以外の検証失敗はTOKEN_INVALIDに対応付ける。
func (s *Service) Verify(ctx context.Context, tokenStr string) (*model.Principal, error) {
	principal, err := s.codec.Verify(tokenStr)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, model.NewTokenExpiredError()
		}
		return nil, model.NewTokenInvalidError()
	}
	return principal, nil
}

// Register は新規ユーザーを作成する。ロールは常にMemberで作成し、
// 昇格は管理者のUpdateRoleでのみ行う。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || len(password) < 8 {
		return nil, model.NewInvalidRequestError("ユーザー名は必須、パスワードは8文字以上です")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         model.RoleMember,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateError("このユーザー名はすでに使用されています。")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return user, nil
}

// ChangePassword は本人のパスワードを変更する。
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return model.NewInvalidRequestError("パスワードは8文字以上です")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return model.NewInvalidCredentialsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hash), s.now()); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// ListUsers はユーザー一覧を返す（管理者向け）。
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, limit, offset)
}

// UpdateRole は指定ユーザーのロールを変更する（管理者向け）。
func (s *Service) UpdateRole(ctx context.Context, userID string, role model.Role) error {
	if err := s.users.UpdateRole(ctx, userID, role, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("ユーザー")
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	slog.Info("user role updated",
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)
	return nil
}

// SetActive は指定ユーザーを有効化・無効化する（管理者向け）。
// 無効化されたユーザーは以後ログインできないが、発行済みトークンは
// 有効期限までそのまま使える（ステートレストークンのため失効リストを持たない）。
func (s *Service) SetActive(ctx context.Context, userID string, active bool) error {
	if err := s.users.SetActive(ctx, userID, active, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("ユーザー")
		}
		return fmt.Errorf("failed to update active flag: %w", err)
	}

	slog.Info("user active flag updated",
		slog.String("user_id", userID),
		slog.Bool("active", active),
	)
	return nil
}

// HashPassword はbcryptハッシュを生成する。シード投入で使用する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
