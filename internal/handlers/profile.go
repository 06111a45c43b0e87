package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/services"
)

const maxAvatarSize = 5 << 20

// ProfileHandler manages the identity of the logged-in device user.
type ProfileHandler struct {
	registry *app.Registry
	avatars  *services.AvatarStorage
	validate *validator.Validate
}

// NewProfileHandler constructs ProfileHandler. avatars may be nil when
// object storage is disabled.
func NewProfileHandler(registry *app.Registry, avatars *services.AvatarStorage, validate *validator.Validate) *ProfileHandler {
	return &ProfileHandler{registry: registry, avatars: avatars, validate: validate}
}

// GetProfile returns the session user.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}

	user := d.State.Session.User()
	if user == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "login required")
	}

	return c.JSON(fiber.Map{"success": true, "data": user})
}

type updateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// UpdateProfile merges the provided fields into the session user.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}
	if !d.State.Session.IsAuthenticated() {
		return fiber.NewError(fiber.StatusUnauthorized, "login required")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}

	update := models.ProfileUpdate{Name: req.Name, Email: req.Email, Address: req.Address}
	if update.Empty() {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	if err := d.State.Session.UpdateProfile(update); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "profile updated", "data": d.State.Session.User()})
}

// UploadAvatar stores a profile picture and points the profile at it.
func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}
	if !d.State.Session.IsAuthenticated() {
		return fiber.NewError(fiber.StatusUnauthorized, "login required")
	}
	if h.avatars == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "avatar storage is disabled")
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "avatar file is required")
	}
	if file.Size > maxAvatarSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "avatar is too large")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	url, err := h.avatars.Upload(c.UserContext(), d.ID, file.Header.Get(fiber.HeaderContentType), src, file.Size)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := d.State.Session.UpdateProfile(models.ProfileUpdate{ProfilePicture: &url}); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": d.State.Session.User()})
}
