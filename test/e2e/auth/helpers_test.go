package auth_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sigilauth/sigil/pkg/authapi"
)

/*
 * Common constants and helper functions for end-to-end tests against a
 * containerized sigil instance. This includes container setup, login
 * helpers, and assertions.
 */

const (
	testImageName = "sigil-test:latest"

	adminUsername      = "admin"
	adminPreferredName = "Administrator"
	adminPassword      = "Admin123!"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building sigil Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up sigil Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image if it doesn't exist.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/sigil/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// baseEnv is the container environment shared by all setups. The admin
// user is seeded on startup from these variables.
func baseEnv() map[string]string {
	return map[string]string{
		"SIGIL_DATABASE_FILE":        "/tmp/sigil.db",
		"SIGIL_PEPPER_FILE":          "/tmp/pepper",
		"SIGIL_ISSUER":               "sigil-e2e",
		"SIGIL_ALGORITHM":            "EdDSA",
		"SIGIL_ADMIN_USERNAME":       adminUsername,
		"SIGIL_ADMIN_PASSWORD":       adminPassword,
		"SIGIL_ADMIN_PREFERRED_NAME": adminPreferredName,
		"ENV":                        "test",
		"LOG_LEVEL":                  "info",
		"LOG_FORMAT":                 "json",
	}
}

// relaxRateLimits raises the limits far above what tests generate so that
// only the dedicated rate limit test observes 429s.
func relaxRateLimits(env map[string]string) {
	env["RATELIMIT_STRICT_REQUESTS"] = "1000"
	env["RATELIMIT_STRICT_WINDOW_SEC"] = "60"
	env["RATELIMIT_STRICT_BURST"] = "1000"
	env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
	env["RATELIMIT_MODERATE_BURST"] = "1000"
}

// startContainer runs the sigil image with the given environment and
// returns the base URL.
func startContainer(t *testing.T, env map[string]string) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// setupAuthContainer starts sigil with relaxed rate limits. Most tests
// should use this; production limits would make rapid test requests flaky.
func setupAuthContainer(t *testing.T) string {
	t.Helper()

	env := baseEnv()
	relaxRateLimits(env)
	return startContainer(t, env)
}

// setupAuthContainerWithDefaultRateLimits starts sigil with DEFAULT rate
// limits. This is specifically for testing that rate limiting works.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) string {
	t.Helper()
	return startContainer(t, baseEnv())
}

// setupPersistentKeyContainer starts sigil in persistent key mode so
// rotation tests exercise the database-backed key path.
func setupPersistentKeyContainer(t *testing.T) string {
	t.Helper()

	env := baseEnv()
	relaxRateLimits(env)
	env["SIGIL_KEY_STORAGE_MODE"] = "persistent"
	return startContainer(t, env)
}

// loginAdmin logs in as the seeded admin and returns the token pair.
func loginAdmin(t *testing.T, client *authapi.Client) *authapi.TokenResponse {
	t.Helper()

	pair, err := client.Login(t.Context(), adminUsername, adminPassword)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}
