package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elbrussoft/webstore/internal/app"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/go-ldap/ldap/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type loginPayload struct {
	Username string `json:"username" form:"username" validate:"required,min=1,max=50"`
	Password string `json:"password" form:"password" validate:"required,min=1,max=128"`
}

func registerAuthRoutes() {
	webserver.ApiPOST("/login", login)
	webserver.ApiGET("/session", sessionInfo)
}

// login verifies operator credentials and issues a bearer token. When LDAP
// auth is enabled the directory bind is tried first, the local password
// hash remains as fallback.
func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	appCtx := GetAppContext(c)

	var operator domain.SysOpr
	err := GetDB(c).
		Where("username = ? and status = ?", payload.Username, common.ENABLED).
		First(&operator).Error
	if err != nil {
		writeOprLog(c, payload.Username, "login", "failed: unknown or disabled account")
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}

	authenticated := false
	if appCtx.GetSettingsBoolValue("auth", "ldap_enabled") {
		authenticated = ldapBind(appCtx, payload.Username, payload.Password)
	}
	if !authenticated {
		hashed := common.Sha256HashWithSalt(payload.Password, common.GetSecretSalt())
		authenticated = hashed == operator.Password
	}
	if !authenticated {
		writeOprLog(c, payload.Username, "login", "failed: bad credentials")
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}

	expireHours := appCtx.Config().Web.JwtExpire
	if expireHours <= 0 {
		expireHours = 24
	}
	expiresAt := time.Now().Add(time.Duration(expireHours) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"usr": operator.Username,
		"lvl": operator.Level,
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(appCtx.Config().Web.Secret))
	if err != nil {
		zap.L().Error("failed to sign token", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}

	GetDB(c).Model(&domain.SysOpr{}).
		Where("id = ?", operator.ID).
		Update("last_login", time.Now())

	writeOprLog(c, operator.Username, "login", "success")

	return ok(c, map[string]interface{}{
		"token":      signed,
		"username":   operator.Username,
		"level":      operator.Level,
		"expires_at": expiresAt.Unix(),
	})
}

// sessionInfo returns the claims of the presented token.
func sessionInfo(c echo.Context) error {
	token, okTok := c.Get("user").(*jwt.Token)
	if !okTok || token == nil {
		return fail(c, http.StatusUnauthorized, "NO_SESSION", "No active session", nil)
	}
	claims, okClaims := token.Claims.(jwt.MapClaims)
	if !okClaims {
		return fail(c, http.StatusUnauthorized, "NO_SESSION", "No active session", nil)
	}
	return ok(c, map[string]interface{}{
		"username": claims["usr"],
		"level":    claims["lvl"],
		"exp":      claims["exp"],
	})
}

// ldapBind authenticates the operator against the configured directory.
func ldapBind(appCtx app.AppContext, username, password string) bool {
	address := appCtx.GetSettingsStringValue("auth", "ldap_address")
	dnFormat := appCtx.GetSettingsStringValue("auth", "ldap_user_dn")
	if address == "" || !strings.Contains(dnFormat, "%s") {
		zap.L().Warn("ldap auth enabled but not configured")
		return false
	}

	conn, err := ldap.DialURL(address)
	if err != nil {
		zap.L().Warn("ldap dial failed", zap.String("address", address), zap.Error(err))
		return false
	}
	defer conn.Close()

	if err := conn.Bind(fmt.Sprintf(dnFormat, username), password); err != nil {
		zap.L().Info("ldap bind rejected", zap.String("username", username))
		return false
	}
	return true
}

// writeOprLog records a console action in the operator audit log.
func writeOprLog(c echo.Context, oprName, action, desc string) {
	log := domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   oprName,
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}
	if err := GetDB(c).Create(&log).Error; err != nil {
		zap.L().Error("failed to write operator log", zap.Error(err))
	}
}
