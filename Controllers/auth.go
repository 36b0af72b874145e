package Controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"TaskManager/Models"
	"TaskManager/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

// AuthController registers users and issues session tokens
type AuthController struct {
	DB     *gorm.DB
	Secret string
	Now    func() time.Time
}

// NewAuthController creates a new AuthController
func NewAuthController(db *gorm.DB, secret string) *AuthController {
	return &AuthController{DB: db, Secret: secret, Now: time.Now}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=128"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates a member account
// POST /api/register
func (c *AuthController) Register(ctx *fiber.Ctx) error {
	var req registerRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal Server Error"})
	}

	user := Models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         "member",
		IsActive:     true,
	}
	db := c.DB.WithContext(ctx.UserContext())
	var existing int64
	if err := db.Model(&Models.User{}).
		Where("username = ? OR email = ?", user.Username, user.Email).
		Count(&existing).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	if existing > 0 {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Username or email already registered"})
	}
	if err := db.Create(&user).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	return ctx.Status(fiber.StatusCreated).JSON(user)
}

// Login checks credentials and returns a signed token, also set as the jwt cookie
// POST /api/login
func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var req loginRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	login := strings.TrimSpace(req.Login)
	var user Models.User
	err := c.DB.WithContext(ctx.UserContext()).
		Where("(username = ? OR email = ?) AND is_active = ?", login, strings.ToLower(login), true).
		Limit(1).Find(&user).Error
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	if user.ID == 0 || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Incorrect username or password"})
	}

	token, expires, err := c.issue(user)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Could not log in"})
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
	})
	ctx.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return ctx.JSON(fiber.Map{
		"message":    "success",
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}

// Logout clears the session cookie
// POST /api/logout
func (c *AuthController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Expires:  c.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return ctx.JSON(fiber.Map{"message": "success"})
}

// User returns the authenticated user
// GET /api/user
func (c *AuthController) User(ctx *fiber.Ctx) error {
	return ctx.JSON(currentUser(ctx))
}

// issue signs a token whose issuer is the user id
func (c *AuthController) issue(user Models.User) (string, time.Time, error) {
	if c.Secret == "" {
		return "", time.Time{}, errors.New("empty signing secret")
	}
	now := c.Now()
	expires := now.Add(tokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.Secret))
	return token, expires, err
}

// IssueToken signs a session token for user
func (c *AuthController) IssueToken(user Models.User) (string, error) {
	token, _, err := c.issue(user)
	return token, err
}
