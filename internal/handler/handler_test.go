package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/handler"
	"github.com/prperemyshlev/account-service/internal/service"
	"github.com/prperemyshlev/account-service/internal/testutil"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const (
	password       = "Secret1!"
	maxAvatarBytes = 4096
	usersPath      = "/api/v1/users"
)

type testServer struct {
	router   *gin.Engine
	users    *testutil.UserStore
	channels *testutil.ChannelStore
	media    *testutil.MediaStore
	limiter  *testutil.Limiter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	s := &testServer{
		users:    testutil.NewUserStore(),
		channels: testutil.NewChannelStore(),
		media:    testutil.NewMediaStore(),
		limiter:  &testutil.Limiter{},
	}

	jwt := utils.NewJWTManager(
		"access-secret-key-that-is-at-least-32-chars",
		"refresh-secret-key-that-is-at-least-32-chars",
		15*time.Minute, 24*time.Hour,
	)
	deps := service.AuthDeps{
		Users:          s.users,
		Channels:       s.channels,
		JWT:            jwt,
		Sessions:       service.NewSessionManager(s.users, jwt, testutil.NewLedger(), nil, logger),
		Hasher:         utils.NewPasswordHasher(bcrypt.MinCost),
		Validator:      utils.NewValidator(),
		Media:          s.media,
		AvatarPrefix:   "avatars",
		MaxAvatarBytes: maxAvatarBytes,
		Logger:         logger,
	}
	authService := service.NewAuthService(deps)
	accountService := service.NewAccountService(deps)

	authHandler := handler.NewAuthHandler(authService, handler.CookieOptions{Secure: true}, maxAvatarBytes, logger)
	accountHandler := handler.NewAccountHandler(accountService, maxAvatarBytes, logger)
	gate := handler.NewGate(authService, logger)
	limit := handler.RateLimitMiddleware(s.limiter, 10, time.Minute, handler.IPBasedKey, logger)

	router := gin.New()
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware([]string{"http://localhost:3000"}, []string{"GET", "POST", "PATCH"}, []string{"Content-Type", "Authorization"}))

	users := router.Group(usersPath)
	users.POST("/register", limit, authHandler.Register)
	users.POST("/login", limit, authHandler.Login)
	users.POST("/refresh-token", authHandler.RefreshToken)
	users.POST("/logout", gate.Protected(authHandler.Logout))
	users.GET("/get-current-user", gate.Protected(accountHandler.CurrentUser))
	users.PATCH("/update-password", gate.Protected(accountHandler.ChangePassword))
	users.PATCH("/update-profile", gate.Protected(accountHandler.UpdateProfile))
	users.PATCH("/update-contact", gate.Protected(accountHandler.UpdateContact))
	users.PATCH("/update-avatar", gate.Protected(accountHandler.UpdateAvatar))
	users.GET("/history", gate.Protected(accountHandler.WatchHistory))
	users.GET("/c/:username", gate.Protected(accountHandler.ChannelProfile))

	s.router = router
	return s
}

type form struct {
	fields map[string]string
	avatar []byte
}

func (f form) encode(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range f.fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if f.avatar != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.avatar)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func registrationForm(username string) form {
	return form{
		fields: map[string]string{
			"firstName": "Alice",
			"lastName":  "Liddell",
			"email":     username + "@example.com",
			"username":  username,
			"password":  password,
		},
		avatar: bytes.Repeat([]byte{1}, 128),
	}
}

func (s *testServer) multipart(t *testing.T, method, path string, f form, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := f.encode(t)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(t *testing.T, method, path string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string) {
	t.Helper()
	rec := s.multipart(t, http.MethodPost, usersPath+"/register", registrationForm(username))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// login returns the token cookies set by a successful login
func (s *testServer) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	rec := s.json(t, http.MethodPost, usersPath+"/login", dto.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func cookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Equal(t, rec.Code, env.StatusCode)
	return env
}

func assertNoSecrets(t *testing.T, body string) {
	t.Helper()

	lower := strings.ToLower(body)
	require.NotContains(t, lower, `"password`)
	require.NotContains(t, lower, `"refreshtokenhash`)
	require.NotContains(t, lower, "$2a$")
}
