package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
)

// ErrInvalidToken cubre token vencido, desconocido o de un usuario deshabilitado.
var ErrInvalidToken = errors.New("token inválido o expirado")

// Servicio que consulta al microservicio externo de autenticación.
type AuthService struct {
	authURL string
	client  *http.Client
	logger  *zap.Logger
}

type AuthUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Login       string   `json:"login"`
	Enabled     bool     `json:"enabled"`
}

func NewAuthService(authURL string, timeout time.Duration, logger *zap.Logger) *AuthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthService{
		authURL: strings.TrimRight(authURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Verifica si el usuario tiene el permiso indicado.
func (u *AuthUser) Has(permission string) bool {
	return slices.Contains(u.Permissions, permission)
}

// Verifica si el usuario tiene permiso de administrador.
func (a *AuthService) IsAdmin(user *AuthUser) bool {
	return user.Has("admin")
}

// Valida el token consultando a /users/current del microservicio de auth.
func (a *AuthService) ValidateToken(ctx context.Context, token string) (*AuthUser, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/current", a.authURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("auth no disponible", zap.Error(err))
		return nil, &apperr.UpstreamError{Service: "auth", Category: apperr.UpstreamTransport, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, &apperr.UpstreamError{Service: "auth", Category: apperr.CategoryFromStatus(resp.StatusCode), StatusCode: resp.StatusCode}
	}

	var user AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, &apperr.UpstreamError{Service: "auth", Category: apperr.UpstreamDecode, Err: err}
	}
	if !user.Enabled {
		return nil, ErrInvalidToken
	}
	return &user, nil
}
