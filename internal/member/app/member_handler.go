package app

import (
	"errors"
	"time"

	"chat_relay_service/internal/member/domain"
	"chat_relay_service/pkg/encrypt"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/middlewares"
	token "chat_relay_service/pkg/token"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// MemberHandler 會員 HTTP API
type MemberHandler struct {
	Usecase MemberUseCase
}

// NewMemberHandler create MemberHandler
func NewMemberHandler(uc MemberUseCase) *MemberHandler {
	return &MemberHandler{Usecase: uc}
}

// RegisterRoutes mount /member
func (h *MemberHandler) RegisterRoutes(r fiber.Router) {
	g := r.Group("/member")
	g.Post("/register", h.Register)
	g.Post("/login", h.Login)
	g.Post("/logout", middlewares.JWTMiddleware(true), h.Logout)
}

func memberErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmailExists):
		return fiber.StatusConflict
	case errors.Is(err, encrypt.ErrWeakPassword):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, encrypt.ErrPasswordMismatch),
		errors.Is(err, domain.ErrMemberDisabled),
		errors.Is(err, token.ErrInvalidToken):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// Register POST /member/register
func (h *MemberHandler) Register(c *fiber.Ctx) error {
	var req domain.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	member, err := h.Usecase.Register(c.UserContext(), req)
	if err != nil {
		logger.Log.Warn("Register Err", zap.String("email", req.Email), zap.Error(err))
		return c.Status(memberErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"member_id": member.MemberID,
		"email":     member.Email,
		"username":  member.Profile().Username,
	})
}

// Login POST /member/login
func (h *MemberHandler) Login(c *fiber.Ctx) error {
	var req domain.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tok, err := h.Usecase.Login(c.UserContext(), req.Email, req.Password, time.Now())
	if err != nil {
		status := memberErrorStatus(err)
		if status == fiber.StatusUnauthorized {
			// 不透露帳號是否存在
			return c.Status(status).JSON(fiber.Map{"error": "invalid email or password"})
		}
		logger.Log.Error("Login Err", zap.String("email", req.Email), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieToken,
		Value:    tok,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"token": tok})
}

// Logout POST /member/logout
func (h *MemberHandler) Logout(c *fiber.Ctx) error {
	if err := h.Usecase.Logout(c.UserContext(), middlewares.Credentials(c)); err != nil {
		return c.Status(memberErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	c.ClearCookie(middlewares.CookieToken)
	return c.SendStatus(fiber.StatusNoContent)
}
