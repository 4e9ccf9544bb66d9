package httpapi

import (
	"net/http"
	"strings"

	"aulavirtual.org/internal/audit"
	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	UserCode        string   `json:"userCode"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	MaternalSurname string   `json:"maternalSurname"`
	Phone           string   `json:"phone"`
	Roles           []string `json:"roles"`
}

// jwtResponse mirrors the token payload clients already consume.
type jwtResponse struct {
	Token     string   `json:"token"`
	Type      string   `json:"type"`
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
}

func newJWTResponse(token string, principal auth.Principal) jwtResponse {
	return jwtResponse{
		Token:     token,
		Type:      "Bearer",
		ID:        principal.ID,
		Username:  principal.Username,
		Email:     principal.Email,
		FirstName: principal.FirstName,
		LastName:  principal.LastName,
		Roles:     principal.AuthorityList(),
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := make(map[string]string)
	if strings.TrimSpace(req.Username) == "" {
		fields["username"] = "username is required"
	}
	if req.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	token, principal, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		obs.ObserveLogin("denied")
		writeServiceError(w, r, err)
		return
	}
	obs.ObserveLogin("ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"username": principal.Username,
	})
	writeSuccess(w, http.StatusOK, "Login successful", newJWTResponse(token, principal))
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, principal, err := a.auth.Register(r.Context(), auth.Registration{
		UserCode:        req.UserCode,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		MaternalSurname: req.MaternalSurname,
		Phone:           req.Phone,
		Roles:           req.Roles,
	})
	if err != nil {
		obs.ObserveRegistration("denied")
		writeServiceError(w, r, err)
		return
	}
	obs.ObserveRegistration("ok")
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"username": principal.Username,
		"roles":    principal.AuthorityList(),
	})
	writeSuccess(w, http.StatusOK, "User registered successfully", newJWTResponse(token, principal))
}

// handleLogout is a stateless no-op: tokens are not persisted server-side, so
// invalidation is the client discarding its copy.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}
