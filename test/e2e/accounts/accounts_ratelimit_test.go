package accounts_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLogin verifies login has strict limits (5 req/min per IP) to
// prevent brute force attacks.
func TestRateLimitLogin(t *testing.T) {
	baseURL, cleanup := setupAccountsContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := accountsdk.NewClient(baseURL)

	for i := range 5 {
		_, err := client.Login(t.Context(), "wronguser", "wrongpass")
		assertCode(t, err, accountsdk.CodeUnauthenticated)
		t.Logf("request %d failed with invalid credentials as expected", i+1)
	}

	_, err := client.Login(t.Context(), "wronguser", "wrongpass")
	var apiErr *accountsdk.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)

	// Health checks have their own budget.
	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}
