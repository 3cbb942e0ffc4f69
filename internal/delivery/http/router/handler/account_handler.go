// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"passport/internal/delivery/http/response"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		logger: logger,
	}
}

type createAccountRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type updateAccountRequest struct {
	Email    string `json:"email"    validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=72"`
}

// accountResponse is the wire shape of an account. The password hash never
// leaves the service.
type accountResponse struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Active         bool       `json:"active"`
	FailedAttempts int        `json:"failedAttempts"`
	Locked         bool       `json:"locked"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type accountPageResponse struct {
	Items         []*accountResponse `json:"items"`
	TotalElements int64              `json:"totalElements"`
	TotalPages    int                `json:"totalPages"`
}

func toAccountResponse(account *entity.Account) *accountResponse {
	return &accountResponse{
		ID:             account.ID,
		Username:       account.Username,
		Email:          account.Email,
		Active:         account.Active,
		FailedAttempts: account.FailedAttempts,
		Locked:         account.Locked,
		LastLoginAt:    account.LastLoginAt,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      account.UpdatedAt,
	}
}

func toAccountResponses(accounts []*entity.Account) []*accountResponse {
	out := make([]*accountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toAccountResponse(account))
	}

	return out
}

// Create handles the account registration request.
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid account input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	account, err := h.uc.Create(c.Request().Context(), usecase.CreateAccountInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, toAccountResponse(account), "Account created successfully")
}

// GetByID handles lookup of a single account by its id.
func (h *AccountHandler) GetByID(c echo.Context) error {
	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.uc.GetByID(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}
	if account == nil {
		return response.NotFound(c, "ACCOUNT_NOT_FOUND", "account not found")
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "")
}

// GetByUsername handles lookup of a single account by exact username.
func (h *AccountHandler) GetByUsername(c echo.Context) error {
	account, err := h.uc.GetByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return errors.WithStack(err)
	}
	if account == nil {
		return response.NotFound(c, "ACCOUNT_NOT_FOUND", "account not found")
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "")
}

// GetByEmail handles lookup of a single account by exact email.
func (h *AccountHandler) GetByEmail(c echo.Context) error {
	account, err := h.uc.GetByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return errors.WithStack(err)
	}
	if account == nil {
		return response.NotFound(c, "ACCOUNT_NOT_FOUND", "account not found")
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "")
}

// ListActive lists active accounts; ?sort=newest orders by creation time descending.
func (h *AccountHandler) ListActive(c echo.Context) error {
	var (
		accounts []*entity.Account
		err      error
	)
	if c.QueryParam("sort") == "newest" {
		accounts, err = h.uc.ListActiveByNewest(c.Request().Context())
	} else {
		accounts, err = h.uc.ListActive(c.Request().Context())
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponses(accounts), "")
}

// List returns one page of all accounts, active and inactive.
// Query params: page (zero-based, default 0) and size (default 20).
func (h *AccountHandler) List(c echo.Context) error {
	pageIndex, err := queryInt(c, "page", 0)
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "page must be an integer")
	}
	pageSize, err := queryInt(c, "size", 20)
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "size must be an integer")
	}

	page, err := h.uc.ListPaginated(c.Request().Context(), pageIndex, pageSize)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, &accountPageResponse{
		Items:         toAccountResponses(page.Items),
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
	}, "")
}

// Update handles email and/or password changes on an account.
func (h *AccountHandler) Update(c echo.Context) error {
	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid account input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	account, err := h.uc.Update(c.Request().Context(), id, usecase.UpdateAccountInput{
		NewEmail:    req.Email,
		NewPassword: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "Account updated successfully")
}

// Deactivate logically deletes the account.
func (h *AccountHandler) Deactivate(c echo.Context) error {
	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.uc.Deactivate(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "Account deactivated")
}

// Activate restores a deactivated account.
func (h *AccountHandler) Activate(c echo.Context) error {
	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.uc.Activate(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "Account activated")
}

// Unlock resets the failed-attempt counter and clears the lock flag.
func (h *AccountHandler) Unlock(c echo.Context) error {
	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.uc.Unlock(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "Account unlocked")
}

// Delete permanently removes the account.
func (h *AccountHandler) Delete(c echo.Context) error {
	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	if err := h.uc.Delete(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Login handles the interactive login request. Failed attempts count toward
// the lockout threshold.
func (h *AccountHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	account, err := h.uc.Login(c.Request().Context(), usecase.CredentialsInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "Login successful")
}

// Verify handles a one-off credential check without lockout side effects.
func (h *AccountHandler) Verify(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid credentials input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	account, err := h.uc.VerifyCredentials(c.Request().Context(), usecase.CredentialsInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "Credentials verified")
}

// ChangePassword replaces the password after verifying the current one.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password change input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	account, err := h.uc.ChangePassword(c.Request().Context(), id, usecase.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountResponse(account), "Password changed successfully")
}

func parseAccountID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WrapMessage("account id must be a UUID")
	}

	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}

	return strconv.Atoi(raw)
}
