package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitpulse/fitpulse-go/internal/client"
	"github.com/fitpulse/fitpulse-go/internal/models"
	"github.com/fitpulse/fitpulse-go/internal/session"
	"github.com/fitpulse/fitpulse-go/internal/store"
)

// fakeAPI is an in-process stand-in for the fitpulse server. It mints real
// JWTs and rejects any bearer token other than the one it issued last.
type fakeAPI struct {
	t  *testing.T
	mu sync.Mutex

	secret   []byte
	username string
	password string
	user     models.User

	accessToken  string
	refreshToken string

	failRefresh  bool
	emptyRefresh bool
	denyStats    bool

	loginCalls   int
	refreshCalls int
	meCalls      int
	updateCalls  int
	statsCalls   int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fakeAPI{
		t:        t,
		secret:   []byte("test-secret"),
		username: "ada",
		password: "correct-horse",
		user: models.User{
			Name:    "Ada",
			Surname: "Lovelace",
			Email:   "ada@example.com",
			Gender:  models.GenderFemale,
			Height:  170,
			Weight:  60,
		},
	}

	router := gin.New()
	router.POST("/api/auth/login", f.handleLogin)
	router.POST("/api/auth/register", f.handleRegister)
	router.POST("/api/auth/refresh", f.handleRefresh)
	router.GET("/api/user/me", f.handleMe)
	router.PUT("/api/user/me", f.handleUpdate)
	router.GET("/api/stats/summary", f.handleStats)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return f, srv
}

// mintTokens issues a fresh pair and invalidates the previous access token.
// Callers must hold f.mu.
func (f *fakeAPI) mintTokens() *models.LoginResponse {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
		"type": "access",
	})
	signed, err := token.SignedString(f.secret)
	require.NoError(f.t, err)

	f.accessToken = signed
	f.refreshToken = uuid.NewString()
	return &models.LoginResponse{
		Token:        signed,
		RefreshToken: f.refreshToken,
		ExpiresIn:    3600,
	}
}

func (f *fakeAPI) currentTokens() *models.LoginResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mintTokens()
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

func (f *fakeAPI) handleLogin(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++

	var creds models.LoginCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request"})
		return
	}
	if creds.Username != f.username || creds.Password != f.password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}

	c.JSON(http.StatusOK, f.mintTokens())
}

func (f *fakeAPI) handleRegister(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var creds models.RegisterCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request"})
		return
	}

	role := creds.Role
	if role == "" {
		role = "USER"
	}
	tokens := f.mintTokens()
	c.JSON(http.StatusOK, models.RegisterResponse{
		Username:     creds.Username,
		Role:         role,
		Token:        tokens.Token,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		Name:         creds.Name,
		Surname:      creds.Surname,
		Email:        creds.Email,
	})
}

func (f *fakeAPI) handleRefresh(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++

	if f.failRefresh {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh denied"})
		return
	}
	if f.emptyRefresh {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.RefreshToken != f.refreshToken {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, f.mintTokens())
}

func (f *fakeAPI) handleMe(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++

	if bearerToken(c) != f.accessToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, f.user)
}

func (f *fakeAPI) handleUpdate(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++

	if bearerToken(c) != f.accessToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var payload models.UpdateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request"})
		return
	}
	if payload.Name != nil {
		f.user.Name = *payload.Name
	}
	if payload.Surname != nil {
		f.user.Surname = *payload.Surname
	}
	if payload.Email != nil {
		f.user.Email = *payload.Email
	}
	if payload.Gender != nil {
		f.user.Gender = *payload.Gender
	}
	if payload.Height != nil {
		f.user.Height = *payload.Height
	}
	if payload.Weight != nil {
		f.user.Weight = *payload.Weight
	}
	c.JSON(http.StatusOK, f.user)
}

func (f *fakeAPI) handleStats(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++

	if f.denyStats || bearerToken(c) != f.accessToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workouts": 42})
}

func (f *fakeAPI) counts() (login, refresh, me, update, stats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, f.meCalls, f.updateCalls, f.statsCalls
}

func newTestClient(baseURL string) (*client.Client, *session.Session) {
	sess := session.NewSession(store.NewMemoryStore(), 0, 0)
	return client.NewClient(baseURL, 5*time.Second, sess), sess
}

func TestLogin_Success(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)

	resp, err := cl.Login(context.Background(), &models.LoginCredentials{
		Username: "ada",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.NotEmpty(t, resp.Token)
	assert.True(t, sess.IsAuthenticated())
	assert.False(t, sess.WillExpireSoon())

	// Login fetches the profile immediately
	user := sess.User()
	require.NotNil(t, user)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)

	_, _, me, _, _ := f.counts()
	assert.Equal(t, 1, me)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)

	_, err := cl.Login(context.Background(), &models.LoginCredentials{
		Username: "ada",
		Password: "wrong",
	})
	require.Error(t, err)

	var authErr *client.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid username or password", authErr.Message)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.False(t, sess.IsAuthenticated())
}

func TestLogin_TransportFailure(t *testing.T) {
	_, srv := newFakeAPI(t)
	cl, _ := newTestClient(srv.URL)
	srv.Close()

	_, err := cl.Login(context.Background(), &models.LoginCredentials{
		Username: "ada",
		Password: "correct-horse",
	})
	require.Error(t, err)

	var authErr *client.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Login failed", authErr.Message)
	assert.NotNil(t, authErr.Unwrap())
}

func TestFetchUser_NotAuthenticated(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, _ := newTestClient(srv.URL)

	_, err := cl.FetchUser(context.Background())
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)

	// Fails fast: no network call happened
	_, _, me, _, _ := f.counts()
	assert.Equal(t, 0, me)
}

func TestUpdateUser_RequiresLoadedProfile(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)

	// Tokens present but no profile loaded yet
	require.NoError(t, sess.SetTokens(context.Background(), f.currentTokens()))

	name := "Grace"
	_, err := cl.UpdateUser(context.Background(), &models.UpdateUserPayload{Name: &name})
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)

	_, _, _, update, _ := f.counts()
	assert.Equal(t, 0, update)
}

func TestUpdateUser_Success(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	_, err := cl.Login(ctx, &models.LoginCredentials{Username: "ada", Password: "correct-horse"})
	require.NoError(t, err)

	height := 172.5
	updated, err := cl.UpdateUser(ctx, &models.UpdateUserPayload{Height: &height})
	require.NoError(t, err)

	assert.Equal(t, 172.5, updated.Height)
	assert.Equal(t, "Ada", updated.Name)
	require.NotNil(t, sess.User())
	assert.Equal(t, 172.5, sess.User().Height)

	_, _, _, update, _ := f.counts()
	assert.Equal(t, 1, update)
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	_, srv := newFakeAPI(t)
	cl, _ := newTestClient(srv.URL)

	_, err := cl.Refresh(context.Background())
	assert.ErrorIs(t, err, client.ErrNoRefreshToken)
}

func TestRefresh_Success(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	old := f.currentTokens()
	require.NoError(t, sess.SetTokens(ctx, old))

	newToken, err := cl.Refresh(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, newToken)
	assert.NotEqual(t, old.Token, newToken)
	assert.Equal(t, newToken, sess.AccessToken())

	_, refresh, _, _, _ := f.counts()
	assert.Equal(t, 1, refresh)
}

func TestRefresh_ServerFailure(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, sess.SetTokens(ctx, f.currentTokens()))
	f.mu.Lock()
	f.failRefresh = true
	f.mu.Unlock()

	_, err := cl.Refresh(ctx)
	assert.ErrorIs(t, err, client.ErrRefreshFailed)
	assert.Equal(t, "Token refresh failed", err.Error())
}

func TestRefresh_EmptyResponse(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, sess.SetTokens(ctx, f.currentTokens()))
	f.mu.Lock()
	f.emptyRefresh = true
	f.mu.Unlock()

	_, err := cl.Refresh(ctx)
	assert.ErrorIs(t, err, client.ErrRefreshFailed)
}

func TestRegister_ProvisionalProfile(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)

	resp, err := cl.Register(context.Background(), &models.RegisterCredentials{
		Name:     "Alan",
		Username: "alan",
		Password: "enigma-machine",
		Email:    "alan@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "alan", resp.Username)
	assert.Equal(t, "USER", resp.Role)
	assert.True(t, sess.IsAuthenticated())

	// Profile comes from the registration response, not a fetch
	user := sess.User()
	require.NotNil(t, user)
	assert.Equal(t, "Alan", user.Name)
	assert.Equal(t, "", user.Surname)
	assert.Equal(t, "alan@example.com", user.Email)
	assert.Equal(t, models.Gender(""), user.Gender)
	assert.Equal(t, 0.0, user.Height)
	assert.Equal(t, 0.0, user.Weight)

	_, _, me, _, _ := f.counts()
	assert.Equal(t, 0, me)
}

func TestDo_AttachesBearer(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, sess.SetTokens(ctx, f.currentTokens()))

	var out struct {
		Workouts int `json:"workouts"`
	}
	require.NoError(t, cl.Do(ctx, http.MethodGet, "/api/stats/summary", nil, &out))

	assert.Equal(t, 42, out.Workouts)
	_, refresh, _, _, stats := f.counts()
	assert.Equal(t, 1, stats)
	assert.Equal(t, 0, refresh)
}

func TestDo_RefreshAndRetryOn401(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	// Valid refresh token, stale access token
	tokens := f.currentTokens()
	require.NoError(t, sess.SetTokens(ctx, &models.LoginResponse{
		Token:        "stale-access-token",
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    3600,
	}))

	var out struct {
		Workouts int `json:"workouts"`
	}
	require.NoError(t, cl.Do(ctx, http.MethodGet, "/api/stats/summary", nil, &out))

	assert.Equal(t, 42, out.Workouts)
	assert.NotEqual(t, "stale-access-token", sess.AccessToken())

	_, refresh, _, _, stats := f.counts()
	assert.Equal(t, 1, refresh, "exactly one refresh attempt")
	assert.Equal(t, 2, stats, "original request plus one retry")
}

func TestDo_SecondUnauthorizedPropagates(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, sess.SetTokens(ctx, f.currentTokens()))
	f.mu.Lock()
	f.denyStats = true
	f.mu.Unlock()

	err := cl.Do(ctx, http.MethodGet, "/api/stats/summary", nil, nil)
	require.Error(t, err)

	var authErr *client.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)

	// One refresh, one retry, no third attempt
	_, refresh, _, _, stats := f.counts()
	assert.Equal(t, 1, refresh)
	assert.Equal(t, 2, stats)
}

func TestDo_RefreshFailureForcesLogout(t *testing.T) {
	f, srv := newFakeAPI(t)
	cl, sess := newTestClient(srv.URL)
	ctx := context.Background()

	tokens := f.currentTokens()
	require.NoError(t, sess.SetTokens(ctx, &models.LoginResponse{
		Token:        "stale-access-token",
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    3600,
	}))
	f.mu.Lock()
	f.failRefresh = true
	f.mu.Unlock()

	err := cl.Do(ctx, http.MethodGet, "/api/stats/summary", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrRefreshFailed))

	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.RefreshToken())
	assert.Nil(t, sess.User())

	_, refresh, _, _, stats := f.counts()
	assert.Equal(t, 1, refresh)
	assert.Equal(t, 1, stats, "no retry after a failed refresh")
}
