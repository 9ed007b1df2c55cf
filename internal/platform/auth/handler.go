package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/platform/web"
)

type Handler struct {
	auth     *Authenticator
	sessions *Sessions
}

func NewHandler(a *Authenticator, s *Sessions) *Handler {
	return &Handler{auth: a, sessions: s}
}

// RegisterRoutes mounts login on the root and logout plus token management
// on the session-protected group.
func (h *Handler) RegisterRoutes(e *echo.Echo, app *echo.Group) {
	e.GET("/login", h.LoginPage)
	e.POST("/login", h.Login)
	app.POST("/logout", h.Logout)

	admin := RequireTokenType(TokenAdmin)
	app.GET("/settings/tokens", h.TokenPage, admin)
	app.POST("/settings/tokens", h.SetToken, admin)
}

type loginForm struct {
	TokenType string `form:"token_type"`
	Token     string `form:"token"`
	Next      string `form:"next"`
}

type tokenForm struct {
	TokenType string `form:"token_type"`
	Token     string `form:"token"`
	Confirm   string `form:"confirm"`
}

func loginPage(f loginForm, errMsg string) *web.Page {
	if f.TokenType == "" {
		f.TokenType = TokenReception
	}
	return &web.Page{
		Title: "Log in",
		Error: errMsg,
		Form: &web.Form{
			Action: "/login",
			Submit: "Log in",
			Fields: []web.Field{
				{Name: "token_type", Label: "Access", Type: "select", Required: true,
					Options: web.Options([][2]string{{TokenReception, "Reception"}, {TokenAdmin, "Administrator"}}, f.TokenType, "")},
				{Name: "token", Label: "Access token", Type: "password", Required: true},
				{Name: "next", Type: "hidden", Value: f.Next},
			},
		},
	}
}

func (h *Handler) LoginPage(c echo.Context) error {
	return web.OK(c, loginPage(loginForm{Next: safeNext(c.QueryParam("next"))}, ""))
}

func (h *Handler) Login(c echo.Context) error {
	var f loginForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission.")
	}
	f.Next = safeNext(f.Next)

	fp, err := h.auth.Verify(c.Request().Context(), f.TokenType, f.Token)
	if errors.Is(err, ErrInvalidCredentials) {
		zerolog.Ctx(c.Request().Context()).Warn().Str("token_type", f.TokenType).Str("remote_ip", c.RealIP()).Msg("login rejected")
		return web.Render(c, http.StatusUnauthorized, loginPage(f, "Invalid access token."))
	}
	if err != nil {
		return err
	}

	if err := h.sessions.Start(c, f.TokenType, fp); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, f.Next)
}

func (h *Handler) Logout(c echo.Context) error {
	h.sessions.End(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func tokenPage(f tokenForm, errMsg string) *web.Page {
	return &web.Page{
		Title:   "Access tokens",
		Section: "settings",
		Error:   errMsg,
		Form: &web.Form{
			Action: "/settings/tokens",
			Submit: "Replace token",
			Fields: []web.Field{
				{Name: "token_type", Label: "Access", Type: "select", Required: true,
					Options: web.Options([][2]string{{TokenReception, "Reception"}, {TokenAdmin, "Administrator"}}, f.TokenType, "")},
				{Name: "token", Label: "New access token", Type: "password", Required: true,
					Help: "Sessions opened with the previous token end at once; everyone must log in with the new one."},
				{Name: "confirm", Label: "Repeat the token", Type: "password", Required: true},
			},
		},
	}
}

func (h *Handler) TokenPage(c echo.Context) error {
	return web.OK(c, tokenPage(tokenForm{TokenType: TokenReception}, ""))
}

func (h *Handler) SetToken(c echo.Context) error {
	var f tokenForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission.")
	}
	if f.Token != f.Confirm {
		return web.Render(c, http.StatusUnprocessableEntity, tokenPage(f, "The two tokens do not match."))
	}
	if err := h.auth.SetToken(c.Request().Context(), f.TokenType, f.Token); err != nil {
		if status, msg, ok := web.FormError(err); ok {
			return web.Render(c, status, tokenPage(f, msg))
		}
		return err
	}
	zerolog.Ctx(c.Request().Context()).Info().Str("token_type", f.TokenType).Msg("access token replaced")

	// Keep the administrator who rotated their own token logged in.
	if f.TokenType == TokenTypeFromContext(c.Request().Context()) {
		fp, err := h.auth.Fingerprint(c.Request().Context(), f.TokenType)
		if err != nil {
			return err
		}
		if err := h.sessions.Start(c, f.TokenType, fp); err != nil {
			return err
		}
	}
	return web.Redirect(c, "/settings/tokens", "The "+f.TokenType+" access token was replaced.")
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") || strings.HasPrefix(next, "/login") {
		return "/"
	}
	return next
}
