package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/validator"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	mockUsecase "passport/internal/mocks/usecase"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestServer wires an Echo instance the way the real server does, minus
// the network listener, so responses go through the same validation and
// error-mapping pipeline.
func newTestServer(t *testing.T) (*echo.Echo, *mockUsecase.MockAccountUsecase) {
	uc := mockUsecase.NewMockAccountUsecase(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = middleware.NewErrorMiddleware(logger).HandleHTTPError

	h := NewAccountHandler(uc, logger)
	e.POST("/accounts", h.Create)
	e.GET("/accounts", h.List)
	e.GET("/accounts/active", h.ListActive)
	e.GET("/accounts/username/:username", h.GetByUsername)
	e.GET("/accounts/:id", h.GetByID)
	e.PATCH("/accounts/:id", h.Update)
	e.DELETE("/accounts/:id", h.Delete)
	e.POST("/accounts/:id/unlock", h.Unlock)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/verify", h.Verify)

	return e, uc
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func TestAccountHandler_Create_Success(t *testing.T) {
	e, uc := newTestServer(t)

	account := &entity.Account{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "hashed",
		Active:       true,
	}
	uc.EXPECT().
		Create(mock.Anything, usecase.CreateAccountInput{Username: "alice", Email: "a@x.com", Password: "long-enough-pw"}).
		Return(account, nil)

	rec := doJSON(e, http.MethodPost, "/accounts",
		`{"username":"alice","email":"a@x.com","password":"long-enough-pw"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"username":"alice"`)
	assert.Contains(t, body, `"active":true`)
	// The stored hash must never appear on the wire.
	assert.NotContains(t, body, "hashed")
	assert.NotContains(t, body, "passwordHash")
}

func TestAccountHandler_Create_RejectsShortPassword(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/accounts",
		`{"username":"alice","email":"a@x.com","password":"short"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestAccountHandler_Create_RejectsInvalidEmail(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/accounts",
		`{"username":"alice","email":"not-an-email","password":"long-enough-pw"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountHandler_Create_DuplicateUsernameMapsTo409(t *testing.T) {
	e, uc := newTestServer(t)

	uc.EXPECT().
		Create(mock.Anything, mock.AnythingOfType("usecase.CreateAccountInput")).
		Return(nil, domainerrors.ErrDuplicateUsername.WrapMessage("username already exists"))

	rec := doJSON(e, http.MethodPost, "/accounts",
		`{"username":"alice","email":"a@x.com","password":"long-enough-pw"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_USERNAME")
}

func TestAccountHandler_GetByID_NotFound(t *testing.T) {
	e, uc := newTestServer(t)
	id := uuid.New()

	uc.EXPECT().GetByID(mock.Anything, id).Return(nil, nil)

	rec := doJSON(e, http.MethodGet, "/accounts/"+id.String(), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACCOUNT_NOT_FOUND")
}

func TestAccountHandler_GetByID_MalformedID(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/accounts/not-a-uuid", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestAccountHandler_GetByUsername_Found(t *testing.T) {
	e, uc := newTestServer(t)

	account := &entity.Account{ID: uuid.New(), Username: "alice", Email: "a@x.com", Active: true}
	uc.EXPECT().GetByUsername(mock.Anything, "alice").Return(account, nil)

	rec := doJSON(e, http.MethodGet, "/accounts/username/alice", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestAccountHandler_List_PassesPagingParams(t *testing.T) {
	e, uc := newTestServer(t)

	uc.EXPECT().ListPaginated(mock.Anything, 2, 5).Return(&usecase.AccountPage{
		Items:         []*entity.Account{},
		TotalElements: 12,
		TotalPages:    3,
	}, nil)

	rec := doJSON(e, http.MethodGet, "/accounts?page=2&size=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalElements":12`)
	assert.Contains(t, rec.Body.String(), `"totalPages":3`)
}

func TestAccountHandler_List_DefaultsPaging(t *testing.T) {
	e, uc := newTestServer(t)

	uc.EXPECT().ListPaginated(mock.Anything, 0, 20).Return(&usecase.AccountPage{
		Items: []*entity.Account{},
	}, nil)

	rec := doJSON(e, http.MethodGet, "/accounts", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandler_List_RejectsNonNumericPage(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/accounts?page=abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountHandler_ListActive_NewestSort(t *testing.T) {
	e, uc := newTestServer(t)

	uc.EXPECT().ListActiveByNewest(mock.Anything).Return([]*entity.Account{}, nil)

	rec := doJSON(e, http.MethodGet, "/accounts/active?sort=newest", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandler_Login_InvalidCredentialsMapTo401(t *testing.T) {
	e, uc := newTestServer(t)

	uc.EXPECT().
		Login(mock.Anything, usecase.CredentialsInput{Username: "alice", Password: "wrong"}).
		Return(nil, domainerrors.ErrInvalidCredentials.WrapMessage("password mismatch"))

	rec := doJSON(e, http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
	// The response must not reveal whether the account exists or is locked.
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestAccountHandler_Login_Success(t *testing.T) {
	e, uc := newTestServer(t)

	account := &entity.Account{ID: uuid.New(), Username: "alice", Email: "a@x.com", Active: true}
	uc.EXPECT().
		Login(mock.Anything, usecase.CredentialsInput{Username: "alice", Password: "secret"}).
		Return(account, nil)

	rec := doJSON(e, http.MethodPost, "/auth/login", `{"username":"alice","password":"secret"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login successful")
}

func TestAccountHandler_Unlock(t *testing.T) {
	e, uc := newTestServer(t)
	id := uuid.New()

	account := &entity.Account{ID: id, Username: "alice", Email: "a@x.com", Active: true}
	uc.EXPECT().Unlock(mock.Anything, id).Return(account, nil)

	rec := doJSON(e, http.MethodPost, "/accounts/"+id.String()+"/unlock", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"locked":false`)
}

func TestAccountHandler_Delete_NoContent(t *testing.T) {
	e, uc := newTestServer(t)
	id := uuid.New()

	uc.EXPECT().Delete(mock.Anything, id).Return(nil)

	rec := doJSON(e, http.MethodDelete, "/accounts/"+id.String(), "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAccountHandler_Update_BadBody(t *testing.T) {
	e, _ := newTestServer(t)
	id := uuid.New()

	rec := doJSON(e, http.MethodPatch, "/accounts/"+id.String(), `{"email":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
