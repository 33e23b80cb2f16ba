package api

import (
	"net/http"

	"trade-journal/internal/auth"
	"trade-journal/internal/models"
)

func userPayload(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":        u.ID,
		"email":     u.Email,
		"name":      u.Name,
		"createdAt": u.CreatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, "Server error during signup")
		return
	}

	res, err := s.deps.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "Server error during signup")
		return
	}
	created(w, "User created successfully", map[string]interface{}{
		"user":  userPayload(res.User),
		"token": res.Token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, "Server error during login")
		return
	}

	res, err := s.deps.Auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "Server error during login")
		return
	}
	ok(w, "Login successful", map[string]interface{}{
		"user":  userPayload(res.User),
		"token": res.Token,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := s.deps.Auth.Me(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Server error while fetching user")
		return
	}
	ok(w, "", map[string]interface{}{"user": userPayload(user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := s.deps.Auth.Logout(r.Context(), userID, auth.TokenFromContext(r.Context())); err != nil {
		writeError(w, r, err, "Server error during logout")
		return
	}
	ok(w, "Logged out", nil)
}
