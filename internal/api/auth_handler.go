package api

import (
	"net/http"

	"sparkchat/backend/internal/auth"
)

// AuthHandler handles the login form submission and logout.
type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// HandleLogin godoc
// @Summary      Log in
// @Description  Checks a username/password pair and sets the session cookie.
// @Tags         Auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	// The login form posts url-encoded fields, not JSON.
	if err := r.ParseForm(); err != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
		return
	}

	token, _, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		respondWithError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.SessionTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleLogout godoc
// @Summary      Log out
// @Description  Destroys the current session and clears the cookie.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /v1/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := h.auth.DestroySession(r.Context(), cookie.Value); err != nil {
			respondWithError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
