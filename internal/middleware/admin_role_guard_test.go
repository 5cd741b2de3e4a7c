package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"shop/internal/domain/model"
	"shop/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoleGuard(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		setRole bool
		status  int
	}{
		{name: "admin passes", role: string(model.RoleAdmin), setRole: true, status: http.StatusOK},
		{name: "user is forbidden", role: string(model.RoleUser), setRole: true, status: http.StatusForbidden},
		{name: "unknown role is forbidden", role: "OWNER", setRole: true, status: http.StatusForbidden},
		{name: "missing role is unauthorized", setRole: false, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPatch, "/admin/products/1/stock", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.setRole {
				c.Set(middleware.CtxUserRoleKey, tt.role)
			}

			next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
			err := middleware.AdminRoleGuard()(next)(c)

			require.NoError(t, err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
