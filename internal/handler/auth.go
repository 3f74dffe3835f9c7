package handler

import (
    "net/http"
    "time"

    "github.com/google/logger"
    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/ticket-queue/internal/clock"
    "github.com/iliyamo/ticket-queue/internal/utils" // credential check and token issuing
)

// AuthHandler exchanges the shared admin secret for a short-lived admin
// token.  There are no user accounts: whoever knows the secret is staff.
type AuthHandler struct {
    Cred      *utils.AdminCredential
    JWTSecret string
    TTLMin    int
    Clock     clock.Clock
}

func NewAuthHandler(cred *utils.AdminCredential, jwtSecret string, ttlMin int, clk clock.Clock) *AuthHandler {
    return &AuthHandler{Cred: cred, JWTSecret: jwtSecret, TTLMin: ttlMin, Clock: clk}
}

type loginReq struct {
    Secret string `json:"secret"`
    // Name identifies the console in logs and in the token subject.
    Name string `json:"name"`
}

type loginResp struct {
    Token     string    `json:"token"`
    ExpiresAt time.Time `json:"expires_at"`
    Role      string    `json:"role"`
}

// Login handles POST /v1/admin/login.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Secret == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "secret required"})
    }
    if !h.Cred.Verify(req.Secret) {
        logger.Warningf("auth: failed admin login from %s", c.RealIP())
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    subject := req.Name
    if subject == "" {
        subject = "admin"
    }
    tok, err := utils.NewAccessToken(h.JWTSecret, subject, utils.RoleAdmin, h.TTLMin, h.Clock.Now())
    if err != nil {
        logger.Errorf("auth: issuing token failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
    }
    logger.Infof("auth: admin login %q from %s", subject, c.RealIP())
    return c.JSON(http.StatusOK, loginResp{Token: tok.Token, ExpiresAt: tok.Exp, Role: utils.RoleAdmin})
}
