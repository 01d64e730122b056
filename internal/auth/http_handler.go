package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pawsen/library-org/internal/httpx"
)

type HTTPHandler struct {
	service      *Service
	cookieSecure bool
}

func NewHTTPHandler(service *Service, cookieSecure bool) *HTTPHandler {
	return &HTTPHandler{service: service, cookieSecure: cookieSecure}
}

type LoginReq struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /v1/auth/login
// @Summary Log in
// @Description Check the librarian credentials and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "Login request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 429 {object} httpx.ErrorResponse
// @Router /v1/auth/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	sess, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.JSONSuccess(w, r, sess, nil)
}

// Logout handles POST /v1/auth/logout
// @Summary Log out
// @Description Revoke the current session token and clear the cookie
// @Tags auth
// @Success 204 "No Content"
// @Router /v1/auth/logout [post]
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := httpx.TokenFrom(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not end session", nil)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.JSONSuccessNoContent(w)
}

// Me handles GET /v1/auth/me
// @Summary Current user
// @Tags auth
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/auth/me [get]
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{"username": httpx.UsernameFrom(r)}, nil)
}
