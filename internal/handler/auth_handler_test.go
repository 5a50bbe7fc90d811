package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/libgate/internal/middleware"
	"github.com/hitoshi/libgate/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn          func(ctx context.Context, username, password string) (*model.TokenPair, error)
	registerFn       func(ctx context.Context, username, password string) (*model.User, error)
	changePasswordFn func(ctx context.Context, userID, oldPassword, newPassword string) error
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.TokenPair, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	return m.registerFn(ctx, username, password)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return m.changePasswordFn(ctx, userID, oldPassword, newPassword)
}

type fakeLoginRecorder struct {
	results []string
}

func (f *fakeLoginRecorder) RecordLogin(result string) {
	f.results = append(f.results, result)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) middleware.Envelope {
	t.Helper()
	var env middleware.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

// --- ログインテスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	expiresAt := time.Now().Add(24 * time.Hour)
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.TokenPair, error) {
			if username != "admin" || password != "admin123" {
				t.Errorf("credentials = %q/%q, want admin/admin123", username, password)
			}
			return &model.TokenPair{Token: "signed-token", Role: model.RoleAdmin, ExpiresAt: expiresAt}, nil
		},
	}
	recorder := &fakeLoginRecorder{}
	handler := NewAuthHandler(service, recorder)

	body := `{"username": "admin", "password": "admin123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if env.Status != "success" {
		t.Errorf("envelope status = %q, want success", env.Status)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", env.Data)
	}
	if data["token"] != "signed-token" {
		t.Errorf("token = %v, want signed-token", data["token"])
	}
	if data["role"] != "admin" {
		t.Errorf("role = %v, want admin", data["role"])
	}

	if len(recorder.results) != 1 || recorder.results[0] != "success" {
		t.Errorf("recorded results = %v, want [success]", recorder.results)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.TokenPair, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	recorder := &fakeLoginRecorder{}
	handler := NewAuthHandler(service, recorder)

	body := `{"username": "admin", "password": "wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("error = %+v, want code %s", env.Error, model.ErrCodeInvalidCredentials)
	}

	if len(recorder.results) != 1 || recorder.results[0] != "failure" {
		t.Errorf("recorded results = %v, want [failure]", recorder.results)
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.TokenPair, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": "admin"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_Login_MalformedJSON(t *testing.T) {
	handler := NewAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error = %+v, want code %s", env.Error, model.ErrCodeInvalidRequest)
	}
}

// --- 登録テスト ---

func TestAuthHandler_Register_CreatesMember(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, username, password string) (*model.User, error) {
			return &model.User{
				ID:        "new-id",
				Username:  username,
				Role:      model.RoleMember,
				IsActive:  true,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	handler := NewAuthHandler(service, nil)

	body := `{"username": "newuser", "password": "secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", env.Data)
	}
	if data["username"] != "newuser" {
		t.Errorf("username = %v, want newuser", data["username"])
	}
	if data["role"] != "member" {
		t.Errorf("role = %v, want member", data["role"])
	}
	if _, leaked := data["password_hash"]; leaked {
		t.Error("response must not contain password hash")
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, username, password string) (*model.User, error) {
			return nil, model.NewDuplicateError("このユーザー名はすでに使用されています。")
		},
	}
	handler := NewAuthHandler(service, nil)

	body := `{"username": "taken", "password": "secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

// --- トークン検証テスト ---

func TestAuthHandler_Verify_ReturnsPrincipal(t *testing.T) {
	handler := NewAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	ctx := middleware.ContextWithPrincipal(req.Context(), &model.Principal{UserID: "user-1", Role: model.RoleLibrarian})
	rec := httptest.NewRecorder()
	handler.Verify(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", env.Data)
	}
	if data["user_id"] != "user-1" || data["role"] != "librarian" {
		t.Errorf("data = %v, want user-1/librarian", data)
	}
}

func TestAuthHandler_Verify_WithoutPrincipal(t *testing.T) {
	handler := NewAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// --- パスワード変更テスト ---

func TestAuthHandler_ChangePassword(t *testing.T) {
	var gotUserID, gotOld, gotNew string
	service := &mockAuthService{
		changePasswordFn: func(ctx context.Context, userID, oldPassword, newPassword string) error {
			gotUserID, gotOld, gotNew = userID, oldPassword, newPassword
			return nil
		},
	}
	handler := NewAuthHandler(service, nil)

	body := `{"old_password": "old-secret", "new_password": "new-secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/password", strings.NewReader(body))
	ctx := middleware.ContextWithPrincipal(req.Context(), &model.Principal{UserID: "user-1", Role: model.RoleMember})
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "user-1" || gotOld != "old-secret" || gotNew != "new-secret" {
		t.Errorf("service called with %q/%q/%q", gotUserID, gotOld, gotNew)
	}
}
