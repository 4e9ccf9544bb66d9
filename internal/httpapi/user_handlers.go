package httpapi

import (
	"net/http"
	"strings"
	"time"

	"aulavirtual.org/internal/audit"
	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/users"
)

type roleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type userResponse struct {
	ID              string         `json:"id"`
	UserCode        string         `json:"userCode"`
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	MaternalSurname string         `json:"maternalSurname,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	ProfilePicture  string         `json:"profilePicture,omitempty"`
	Status          string         `json:"status"`
	Roles           []roleResponse `json:"roles"`
	CreatedAt       time.Time      `json:"createdAt"`
	LastLogin       *time.Time     `json:"lastLogin,omitempty"`
}

type updateUserRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	MaternalSurname *string `json:"maternalSurname"`
	Phone           *string `json:"phone"`
}

func newUserResponse(user *auth.User) userResponse {
	roles := make([]roleResponse, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, roleResponse{
			ID:          role.ID,
			Name:        string(role.Name),
			Description: role.Description,
		})
	}
	return userResponse{
		ID:              user.ID,
		UserCode:        user.UserCode,
		Username:        user.Username,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		MaternalSurname: user.MaternalSurname,
		Phone:           user.Phone,
		ProfilePicture:  user.ProfilePicture,
		Status:          string(user.Status),
		Roles:           roles,
		CreatedAt:       user.CreatedAt,
		LastLogin:       user.LastLogin,
	}
}

func newUserResponses(list []*auth.User) []userResponse {
	out := make([]userResponse, 0, len(list))
	for _, user := range list {
		out = append(out, newUserResponse(user))
	}
	return out
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := a.users.List(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "Users retrieved successfully", newUserResponses(list))
	case http.MethodPost:
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.users.Create(r.Context(), auth.Registration{
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
			writeServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "users.create", map[string]any{
			"target": user.ID, "username": user.Username,
		})
		writeSuccess(w, http.StatusOK, "User created successfully", newUserResponse(user))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if path == "" {
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1 && parts[0] == "search":
		a.handleUserSearch(w, r)
	case len(parts) == 1:
		a.handleUserByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status":
		a.handleUserStatus(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Resource not found")
	}
}

func (a *API) handleUserSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	list, err := a.users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Search completed successfully", newUserResponses(list))
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		user, err := a.users.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "User retrieved successfully", newUserResponse(user))
	case http.MethodPut:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.users.ApplyUpdate(r.Context(), id, users.Update{
			Username:        req.Username,
			Email:           req.Email,
			Password:        req.Password,
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			MaternalSurname: req.MaternalSurname,
			Phone:           req.Phone,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "users.update", map[string]any{"target": id})
		writeSuccess(w, http.StatusOK, "User updated successfully", newUserResponse(user))
	case http.MethodDelete:
		if err := a.users.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "users.delete", map[string]any{"target": id})
		writeSuccess(w, http.StatusOK, "User deleted successfully", nil)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleUserStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	status := auth.UserStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	user, err := a.users.ChangeStatus(r.Context(), id, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.status", map[string]any{
		"target": id, "status": string(user.Status),
	})
	writeSuccess(w, http.StatusOK, "User status updated successfully", newUserResponse(user))
}
