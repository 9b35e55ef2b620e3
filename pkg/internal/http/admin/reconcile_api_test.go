package admin

import (
	"net/http/httptest"
	"testing"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/testutil"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminTriggerReconcile(t *testing.T) {
	testutil.SetupTestDB(t)
	previous := services.Provider
	services.Provider = &testutil.FakeProvider{}
	t.Cleanup(func() {
		services.Provider = previous
		viper.Set("security.admin_key", "")
	})

	account := testutil.CreateTestAccount(t, "1001")
	testutil.CreateTestPoll(t, account, testutil.Ptr("p1"), models.PollStatusActive)

	app := fiber.New(fiber.Config{ErrorHandler: exts.ErrorHandler})
	MapControllers(app, "/admin")

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/admin/reconcile", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	viper.Set("security.admin_key", "secret")

	req := httptest.NewRequest(fiber.MethodPost, "/admin/reconcile", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer wrong")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/admin/reconcile", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer secret")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report map[string]int
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, map[string]int{"tenants": 1, "emitted": 1, "skipped": 0, "failed": 0}, report)
}
