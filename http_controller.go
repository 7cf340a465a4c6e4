package membership

import (
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// SessionFactory builds the per request SessionPort the handlers hand
// to the engine. Implementations typically wrap the transport's cookie
// or session machinery; see NewFiberSessionFactory.
type SessionFactory func(ctx router.Context) SessionPort

// HTTPControllerRoutes holds the mounted paths.
type HTTPControllerRoutes struct {
	Login         string
	Logout        string
	Register      string
	Activate      string
	PasswordReset string
}

// HTTPController exposes the engine over go-router with JSON responses.
// It is caller glue: it owns notification dispatch and cookie handling,
// which the engine deliberately does not.
type HTTPController struct {
	Debug    bool
	Logger   Logger
	Engine   *Engine
	Notifier NotificationPort
	Sessions SessionFactory
	Routes   *HTTPControllerRoutes
}

func NewHTTPController(engine *Engine) *HTTPController {
	return &HTTPController{
		Logger:   defLogger{},
		Engine:   engine,
		Notifier: LogNotifier{},
		Sessions: func(router.Context) SessionPort { return noopSession{} },
		Routes: &HTTPControllerRoutes{
			Login:         "/login",
			Logout:        "/logout",
			Register:      "/register",
			Activate:      "/activate",
			PasswordReset: "/password-reset",
		},
	}
}

func (a *HTTPController) WithNotifier(n NotificationPort) *HTTPController {
	if n != nil {
		a.Notifier = n
	}
	return a
}

func (a *HTTPController) WithSessionFactory(f SessionFactory) *HTTPController {
	if f != nil {
		a.Sessions = f
	}
	return a
}

// RegisterRoutes mounts the credential lifecycle endpoints.
func RegisterRoutes[T any](app router.Router[T], controller *HTTPController) {
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Get(controller.Routes.Logout, controller.LogOut)
	app.Post(controller.Routes.Register, controller.RegistrationCreate)
	app.Post(controller.Routes.Activate, controller.ActivatePost)
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost)
	app.Post(controller.Routes.PasswordReset+"/:code", controller.PasswordResetExecute)
}

type loginPayload struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

func (a *HTTPController) LoginPost(ctx router.Context) error {
	payload := &loginPayload{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid login payload"))
	}

	result, err := a.Engine.Login(ctx.Context(), a.Sessions(ctx), payload.Identity, payload.Password, payload.Remember)
	if err != nil {
		return a.renderError(ctx, err)
	}

	if result.RememberToken != "" {
		ctx.Cookie(&router.Cookie{
			Name:     a.Engine.config.GetRememberCookieName(),
			Value:    result.RememberToken,
			Expires:  time.Now().Add(24 * time.Hour * 30),
			HTTPOnly: true,
			Secure:   true,
			SameSite: "Lax",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"id":       result.User.ID.String(),
		"identity": result.User.Identity,
	})
}

func (a *HTTPController) LogOut(ctx router.Context) error {
	identity := ctx.Query("identity", "")

	cookies := routerCookies{ctx: ctx}
	if err := a.Engine.Logout(ctx.Context(), a.Sessions(ctx), cookies, identity); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"logged_out": true})
}

func (a *HTTPController) RegistrationCreate(ctx router.Context) error {
	payload := &RegisterUserMessage{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid registration payload"))
	}

	result, err := a.Engine.Register(ctx.Context(), *payload)
	if err != nil {
		return a.renderError(ctx, err)
	}

	response := map[string]any{
		"id": result.UserID.String(),
	}

	// Dispatch failure never undoes record creation; the account exists
	// and the caller can request a fresh activation message.
	if result.Activation != nil {
		response["activation_required"] = true
		if err := a.Notifier.Dispatch(ctx.Context(), result.Activation.Notification()); err != nil {
			a.Logger.Error("activation notification dispatch failed: %v", err)
			response["activation_message_delivered"] = false
		} else {
			response["activation_message_delivered"] = true
		}
	}

	return ctx.JSON(http.StatusCreated, response)
}

type activatePayload struct {
	UserID string `json:"id"`
	Code   string `json:"code"`
}

func (a *HTTPController) ActivatePost(ctx router.Context) error {
	payload := &activatePayload{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid activation payload"))
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user id"))
	}

	if err := a.Engine.Activate(ctx.Context(), userID, payload.Code); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"active": true})
}

type passwordResetRequestPayload struct {
	Identity string `json:"identity"`
}

func (a *HTTPController) PasswordResetPost(ctx router.Context) error {
	payload := &passwordResetRequestPayload{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid reset payload"))
	}

	details, err := a.Engine.ForgottenPassword(ctx.Context(), payload.Identity)
	if err != nil {
		return a.renderError(ctx, err)
	}

	delivered := true
	if err := a.Notifier.Dispatch(ctx.Context(), details.Notification()); err != nil {
		a.Logger.Error("reset notification dispatch failed: %v", err)
		delivered = false
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"reset_message_delivered": delivered,
	})
}

type passwordResetExecutePayload struct {
	Password string `json:"password"`
}

func (a *HTTPController) PasswordResetExecute(ctx router.Context) error {
	code := ctx.Param("code", "")

	payload := &passwordResetExecutePayload{}
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid reset payload"))
	}

	user, err := a.Engine.ForgottenPasswordCheck(ctx.Context(), code)
	if err != nil {
		return a.renderError(ctx, err)
	}

	if err := a.Engine.ResetPassword(ctx.Context(), user.ID, payload.Password); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"password_changed": true})
}

func (a *HTTPController) renderError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if a.Debug {
		a.Logger.Error(
			"controller error category=%s text_code=%s details=%s",
			richErr.Category,
			richErr.TextCode,
			print.MaybePrettyJSON(richErr.Metadata),
		)
	}

	status := statusForCategory(richErr.Category)
	return ctx.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// routerCookies adapts a router.Context to the CookiePort the engine
// uses to drop the remember cookie on logout.
type routerCookies struct {
	ctx router.Context
}

var _ CookiePort = routerCookies{}

func (c routerCookies) Delete(name string) {
	c.ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
