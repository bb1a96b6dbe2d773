package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"quickchat/internal/media"
	"quickchat/internal/middleware"
	"quickchat/internal/models"
	"quickchat/internal/store"
	"quickchat/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const minPasswordLength = 6

// Signup handles user registration
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)

	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Missing details")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return fail(c, fiber.StatusBadRequest, "Password must be at least 6 characters")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to hash password")
	}

	user := models.User{
		Email:    strings.ToLower(req.Email),
		FullName: req.FullName,
		Password: hashedPassword,
		Bio:      strings.TrimSpace(req.Bio),
	}

	err = h.Store.CreateUser(c.UserContext(), &user)
	if errors.Is(err, store.ErrEmailTaken) {
		return fail(c, fiber.StatusConflict, "Account already exists")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("create user")
		return fail(c, fiber.StatusInternalServerError, "Failed to create user")
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	resp := user.ToResponse()
	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		Success:  true,
		UserData: &resp,
		Token:    token,
		Message:  "Account created successfully",
	})
}

// Login handles user login
func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	user, err := h.Store.UserByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("load user by email")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	resp := user.ToResponse()
	return c.JSON(models.AuthResponse{
		Success:  true,
		UserData: &resp,
		Token:    token,
		Message:  "Login successful",
	})
}

// CheckAuth returns the authenticated user
func (h *Handler) CheckAuth(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp := user.ToResponse()
	return c.JSON(models.UserEnvelope{Success: true, User: &resp})
}

// UpdateProfile changes name, bio and avatar. The avatar arrives as a data URL.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var update models.ProfileUpdate
	if name := strings.TrimSpace(req.FullName); name != "" {
		update.FullName = &name
	}
	if req.Bio != "" {
		bio := strings.TrimSpace(req.Bio)
		update.Bio = &bio
	}
	if req.ProfilePic != "" {
		url, err := h.Media.SaveDataURL(media.KindAvatars, req.ProfilePic)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid profile picture: "+err.Error())
		}
		update.ProfilePic = &url
	}

	user, err := h.Store.UpdateProfile(c.UserContext(), userID, update)
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Str("user", userID).Msg("update profile")
		return fail(c, fiber.StatusInternalServerError, "Failed to update profile")
	}

	resp := user.ToResponse()
	return c.JSON(models.UserEnvelope{Success: true, User: &resp})
}
