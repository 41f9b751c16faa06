package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta14/image-press/config"
	"github.com/arjunmehta14/image-press/database"
	middleware "github.com/arjunmehta14/image-press/middlewares"
	"github.com/arjunmehta14/image-press/models"
	"github.com/arjunmehta14/image-press/utils"
)

type UserHandler struct {
	Store  *database.Store
	Config *config.Config
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var form models.RegisterForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(form.Username) < 3 || len(form.Username) > 100 {
		utils.RespondValidationError(w, "Username must be between 3 and 100 characters")
		return
	}
	if form.Password == "" {
		utils.RespondValidationError(w, "Password is required")
		return
	}

	passwordHash, err := utils.HashPassword(form.Password)
	if err != nil {
		utils.RespondInternal(w, err, "Could not process password")
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     form.Username,
		PasswordHash: passwordHash,
	}

	_, err = h.Store.Write(func(doc *database.Document) error {
		if _, exists := doc.Users[user.Username]; exists {
			return database.ErrConflict
		}
		doc.Users[user.Username] = user
		return nil
	})
	if errors.Is(err, database.ErrConflict) {
		utils.RespondError(w, http.StatusConflict, "Username already in use")
		return
	}
	if err != nil {
		utils.RespondInternal(w, err, "Unable to create account")
		return
	}

	utils.RespondSuccess(w, http.StatusOK, user.Safe())
}

// Token exchanges form credentials for a bearer token.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		utils.RespondValidationError(w, "Username and password are required")
		return
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to process login")
		return
	}

	user, ok := authenticateUser(doc, username, password)
	if !ok {
		slog.Debug("login attempt failed", "username", username)
		utils.RespondError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	ttl := time.Duration(h.Config.AccessTokenExpireMinutes) * time.Minute
	tokenString, err := utils.CreateToken(user.Username, ttl, []byte(h.Config.AuthSecretKey))
	if err != nil {
		utils.RespondInternal(w, err, "Could not create session")
		return
	}

	utils.RespondSuccess(w, http.StatusOK, models.Token{
		AccessToken: tokenString,
		TokenType:   "bearer",
	})
}

// GetUser serves the caller's own profile, addressed by id or "me".
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := r.PathValue("id")
	if id != "me" && id != user.ID {
		utils.RespondError(w, http.StatusForbidden, "You may only view your own profile")
		return
	}

	utils.RespondSuccess(w, http.StatusOK, user)
}

// authenticateUser verifies credentials against the stored hash and
// returns the user without the password field.
func authenticateUser(doc *database.Document, username, password string) (models.SafeUser, bool) {
	user, ok := doc.User(username)
	if !ok {
		return models.SafeUser{}, false
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return models.SafeUser{}, false
	}
	return user.Safe(), true
}
