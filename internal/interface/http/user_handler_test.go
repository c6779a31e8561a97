package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-session/internal/application"
	"github.com/oksasatya/go-user-session/internal/domain/entity"
	"github.com/oksasatya/go-user-session/internal/interface/middleware"
	"github.com/oksasatya/go-user-session/pkg/apperror"
	"github.com/oksasatya/go-user-session/pkg/helpers"
)

type mockUseCase struct{ mock.Mock }

func (m *mockUseCase) Register(ctx context.Context, in application.RegisterInput, avatarPath, coverPath string) (*entity.UserProfile, error) {
	args := m.Called(ctx, in, avatarPath, coverPath)
	p, _ := args.Get(0).(*entity.UserProfile)
	return p, args.Error(1)
}

func (m *mockUseCase) Login(ctx context.Context, in application.LoginInput, meta application.ClientMeta) (*application.LoginResult, error) {
	args := m.Called(ctx, in, meta)
	r, _ := args.Get(0).(*application.LoginResult)
	return r, args.Error(1)
}

func (m *mockUseCase) Logout(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUseCase) Refresh(ctx context.Context, presented string) (application.TokenPair, error) {
	args := m.Called(ctx, presented)
	return args.Get(0).(application.TokenPair), args.Error(1)
}

func (m *mockUseCase) GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*entity.UserProfile)
	return p, args.Error(1)
}

func (m *mockUseCase) SearchUsers(ctx context.Context, q string, size int) ([]entity.UserProfile, error) {
	args := m.Called(ctx, q, size)
	res, _ := args.Get(0).([]entity.UserProfile)
	return res, args.Error(1)
}

func setup(t *testing.T) (*gin.Engine, *mockUseCase, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := new(mockUseCase)
	t.Cleanup(func() { svc.AssertExpectations(t) })
	tmp := t.TempDir()
	h := NewUserHandler(svc, nil, "example.test", tmp, 1<<20)

	r := gin.New()
	asUser := func(c *gin.Context) { c.Set(middleware.CtxUserIDKey, "u1"); c.Next() }
	r.POST("/users/register", h.Register)
	r.POST("/users/login", h.Login)
	r.POST("/users/refresh", h.Refresh)
	r.POST("/users/logout", asUser, h.Logout)
	r.GET("/users/me", asUser, h.Me)
	r.GET("/users/search", asUser, h.Search)
	return r, svc, tmp
}

func samplePair() application.TokenPair {
	now := time.Now()
	return application.TokenPair{
		AccessToken: "A2", AccessTokenExpiry: now.Add(time.Minute),
		RefreshToken: "R2", RefreshTokenExpiry: now.Add(time.Hour),
	}
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range w.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for k, data := range files {
		fw, err := mw.CreateFormFile(k, k+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRegister_SpoolsAvatar(t *testing.T) {
	r, svc, tmp := setup(t)
	fields := map[string]string{"fullName": "Alice", "username": "alice", "email": "alice@x.com", "password": "P@ss1"}
	body, ct := multipartBody(t, fields, map[string][]byte{"avatar": []byte("img")})

	want := application.RegisterInput{FullName: "Alice", Username: "alice", Email: "alice@x.com", Password: "P@ss1"}
	svc.On("Register", mock.Anything, want, mock.MatchedBy(func(p string) bool {
		data, err := os.ReadFile(p)
		return err == nil && string(data) == "img" && strings.HasPrefix(p, tmp)
	}), "").Return(&entity.UserProfile{ID: "u1", Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/users/register", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_MissingAvatar(t *testing.T) {
	r, svc, _ := setup(t)
	body, ct := multipartBody(t, map[string]string{"username": "alice"}, nil)
	svc.On("Register", mock.Anything, mock.Anything, "", "").Return(nil, apperror.MissingAsset("avatar file is required")).Once()

	req := httptest.NewRequest(http.MethodPost, "/users/register", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_ASSET")
}

func TestLogin_SetsSecureCookiesAfterSuccess(t *testing.T) {
	r, svc, _ := setup(t)
	pair := samplePair()
	svc.On("Login", mock.Anything, application.LoginInput{Username: "alice", Password: "P@ss1"}, mock.Anything).
		Return(&application.LoginResult{User: entity.UserProfile{ID: "u1"}, Tokens: pair}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{"username":"alice","password":"P@ss1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := cookiesByName(w)
	for name, value := range map[string]string{helpers.AccessCookie: "A2", helpers.RefreshCookie: "R2"} {
		ck := cookies[name]
		require.NotNil(t, ck, name)
		assert.Equal(t, value, ck.Value)
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
	}
}

func TestLogin_FailureSetsNoCookies(t *testing.T) {
	r, svc, _ := setup(t)
	svc.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperror.Unauthorized("invalid user credentials")).Once()

	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{"email":"alice@x.com","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestRefresh(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		r, svc, _ := setup(t)
		svc.On("Refresh", mock.Anything, "R1").Return(samplePair(), nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/users/refresh", nil)
		req.AddCookie(&http.Cookie{Name: helpers.RefreshCookie, Value: "R1"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "R2", cookiesByName(w)[helpers.RefreshCookie].Value)
	})

	t.Run("body fallback", func(t *testing.T) {
		r, svc, _ := setup(t)
		svc.On("Refresh", mock.Anything, "R1").Return(samplePair(), nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/users/refresh", strings.NewReader(`{"refresh_token":"R1"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data application.TokenPair `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "A2", body.Data.AccessToken)
	})

	t.Run("rejected", func(t *testing.T) {
		r, svc, _ := setup(t)
		svc.On("Refresh", mock.Anything, "").Return(application.TokenPair{}, apperror.Unauthorized("invalid refresh token")).Once()

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users/refresh", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Result().Cookies())
	})
}

func TestLogout_ClearsCookies(t *testing.T) {
	r, svc, _ := setup(t)
	svc.On("Logout", mock.Anything, "u1").Return(nil).Once()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := cookiesByName(w)
	require.Contains(t, cookies, helpers.AccessCookie)
	assert.Empty(t, cookies[helpers.AccessCookie].Value)
	assert.Negative(t, cookies[helpers.RefreshCookie].MaxAge)
}

func TestMeAndSearch(t *testing.T) {
	r, svc, _ := setup(t)
	svc.On("GetProfile", mock.Anything, "u1").Return(&entity.UserProfile{ID: "u1", Username: "alice"}, nil).Once()
	svc.On("SearchUsers", mock.Anything, "ali", 3).Return([]entity.UserProfile{{ID: "u1"}}, nil).Once()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/search?q=ali&size=3", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}
