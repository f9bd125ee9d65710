package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventario-ledger/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "inventario-ledger-test"
	testExpMin    = 60
)

// tokenForRole genera el header Authorization con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// guardedApp expone GET /guarded detrás de AuthMiddleware + RequireRole(roles...).
func guardedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded",
		apphttp.AuthMiddleware(testJWTSecret, testIssuer),
		apphttp.RequireRole(roles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"user_id": apphttp.GetUserID(c), "role": apphttp.GetRole(c)})
		},
	)
	return app
}

func get(t *testing.T, app *fiber.App, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// Matriz de acceso de los grupos de rutas del ledger.
func TestRequireRole_Matriz(t *testing.T) {
	stockWriters := []string{pkgjwt.RoleAdmin, pkgjwt.RoleBodeguero}
	sellers := []string{pkgjwt.RoleAdmin, pkgjwt.RoleVendedor}
	adminOnly := []string{pkgjwt.RoleAdmin}

	cases := []struct {
		name    string
		allowed []string
		role    string
		want    int
	}{
		{"bodeguero registra movimientos", stockWriters, pkgjwt.RoleBodeguero, http.StatusOK},
		{"vendedor no registra movimientos", stockWriters, pkgjwt.RoleVendedor, http.StatusForbidden},
		{"vendedor cobra", sellers, pkgjwt.RoleVendedor, http.StatusOK},
		{"bodeguero no cobra", sellers, pkgjwt.RoleBodeguero, http.StatusForbidden},
		{"admin cobra", sellers, pkgjwt.RoleAdmin, http.StatusOK},
		{"admin ve ganancias", adminOnly, pkgjwt.RoleAdmin, http.StatusOK},
		{"vendedor no ve ganancias", adminOnly, pkgjwt.RoleVendedor, http.StatusForbidden},
		{"rol desconocido", adminOnly, "cajero", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := get(t, guardedApp(tc.allowed...), tokenForRole(t, tc.role))
			assert.Equal(t, tc.want, status, body)
			if tc.want == http.StatusForbidden {
				assert.Contains(t, body, "FORBIDDEN")
			}
		})
	}
}

func TestRequireRole_TokenSinRol(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	status, body := get(t, guardedApp(pkgjwt.RoleAdmin), "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "MISSING_ROLE")
}

func TestAuthMiddleware_Rechazos(t *testing.T) {
	otherIssuer, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, "otro-emisor", testExpMin)
	require.NoError(t, err)
	expired, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)
	otherSecret, err := pkgjwt.Generate("otro-secret", testUserID, pkgjwt.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"sin header", "", "MISSING_TOKEN"},
		{"sin esquema Bearer", "Token abc", "INVALID_TOKEN"},
		{"malformado", "Bearer token.invalido.aqui", "INVALID_TOKEN"},
		{"otro emisor", "Bearer " + otherIssuer, "INVALID_TOKEN"},
		{"expirado", "Bearer " + expired, "INVALID_TOKEN"},
		{"otra firma", "Bearer " + otherSecret, "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := get(t, guardedApp(pkgjwt.RoleAdmin), tc.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Contains(t, body, tc.code)
		})
	}
}

func TestAuthMiddleware_CargaClaims(t *testing.T) {
	status, body := get(t, guardedApp(pkgjwt.RoleBodeguero), tokenForRole(t, pkgjwt.RoleBodeguero))
	require.Equal(t, http.StatusOK, status)

	var claims map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &claims))
	assert.Equal(t, testUserID, claims["user_id"])
	assert.Equal(t, pkgjwt.RoleBodeguero, claims["role"])
}
