package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"taskwell/internal/apperrors"
	"taskwell/internal/model"
	"taskwell/internal/repository"
	"taskwell/internal/service"
)

type userDTO struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Gender         string         `json:"gender"`
	DOB            string         `json:"dob"`
	AuthProvider   string         `json:"auth_provider"`
	Preferences    map[string]any `json:"preferences"`
	TelegramChatID *int64         `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func toUserDTO(u *model.User) userDTO {
	prefs := u.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	return userDTO{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Gender:         u.Gender,
		DOB:            u.DOB,
		AuthProvider:   string(u.AuthProvider),
		Preferences:    prefs,
		TelegramChatID: u.TelegramChatID,
		CreatedAt:      u.CreatedAt,
	}
}

type sessionResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name"`
	Gender          string `json:"gender"`
	DOB             string `json:"dob"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name   string `json:"name"`
	DOB    string `json:"dob"`
	Gender string `json:"gender"`
}

type googleLoginRequest struct {
	IDToken   string          `json:"id_token"`
	ExtraData *profileRequest `json:"extra_data"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.auth.Signup(r.Context(), service.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Profile:         service.ProfileInput{Name: req.Name, Gender: req.Gender, DOB: req.DOB},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: session.Token, User: toUserDTO(session.User)})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: toUserDTO(session.User)})
}

func (h *handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var profile *service.ProfileInput
	if req.ExtraData != nil {
		profile = &service.ProfileInput{Name: req.ExtraData.Name, Gender: req.ExtraData.Gender, DOB: req.ExtraData.DOB}
	}
	session, err := h.auth.GoogleLogin(r.Context(), req.IDToken, profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: toUserDTO(session.User)})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Profile(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// updateProfile accepts name, preferences and a null telegram_chat_id, which
// unlinks the chat. Other keys are ignored; a body with none of them is
// rejected.
func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, r, err)
		return
	}

	var update repository.ProfileUpdate
	if v, ok := raw["name"]; ok {
		var name string
		if err := json.Unmarshal(v, &name); err != nil {
			writeError(w, r, apperrors.Validation("Invalid name"))
			return
		}
		update.Name = &name
	}
	if v, ok := raw["preferences"]; ok {
		var prefs map[string]any
		if err := json.Unmarshal(v, &prefs); err != nil {
			writeError(w, r, apperrors.Validation("Preferences must be a JSON object"))
			return
		}
		update.Preferences = prefs
		update.SetPreferences = true
	}
	if v, ok := raw["telegram_chat_id"]; ok {
		if strings.TrimSpace(string(v)) != "null" {
			writeError(w, r, apperrors.Validation("telegram_chat_id can only be cleared; link a chat with a code from POST /telegram/link"))
			return
		}
		update.ClearTelegramChat = true
	}

	user, err := h.auth.UpdateProfile(r.Context(), UserIDFrom(r.Context()), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully", "user": toUserDTO(user)})
}

type telegramLinkResponse struct {
	Code      string    `json:"code"`
	Command   string    `json:"command"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *handler) telegramLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.auth.TelegramLinkCode(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, telegramLinkResponse{
		Code:      link.Code,
		Command:   "/start " + link.Code,
		ExpiresAt: link.ExpiresAt,
	})
}

func (h *handler) gender(w http.ResponseWriter, r *http.Request) {
	gender, err := h.auth.Gender(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"gender": gender})
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), UserIDFrom(r.Context()), req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, r, err)
		return
	}
	messageJSON(w, http.StatusOK, "Password changed successfully")
}

func (h *handler) setPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.SetPassword(r.Context(), UserIDFrom(r.Context()), req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, r, err)
		return
	}
	messageJSON(w, http.StatusOK, "Password set successfully")
}
