//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultPostgresImage = "postgres:16-alpine"

// startPostgresContainer runs a throwaway PostgreSQL through the Docker CLI
// when TEST_DATABASE_URL is not set. Docker picks the host port.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	image := os.Getenv("TEST_POSTGRES_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}
	name := "consultorio-it-" + uuid.NewString()[:8]

	out, err := exec.CommandContext(ctx, "docker", "run", "-d", "--rm",
		"--name", name,
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=consultorio",
		"-e", "POSTGRES_PASSWORD=consultorio",
		"-e", "POSTGRES_DB=consultorio",
		image,
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run %s: %w\n%s", image, err, out)
	}
	cleanup := func() {
		_ = exec.Command("docker", "rm", "-f", name).Run()
	}

	hostPort, err := mappedPort(ctx, name)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	url := fmt.Sprintf("postgres://consultorio:consultorio@%s/consultorio?sslmode=disable", hostPort)
	if err := waitForPostgres(ctx, url, 30*time.Second); err != nil {
		cleanup()
		return "", nil, err
	}
	return url, cleanup, nil
}

// mappedPort asks Docker which host address it bound to the container's 5432.
func mappedPort(ctx context.Context, name string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", "port", name, "5432/tcp").Output()
	if err != nil {
		return "", fmt.Errorf("docker port %s: %w", name, err)
	}
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if line == "" {
		return "", fmt.Errorf("docker port %s: no mapping", name)
	}
	return line, nil
}

// waitForPostgres polls until the server answers a query. The entrypoint
// restarts postgres once after init, so a single successful dial is not
// enough; the query must succeed.
func waitForPostgres(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		conn, err := pgx.Connect(ctx, url)
		if err == nil {
			var one int
			err = conn.QueryRow(ctx, "SELECT 1").Scan(&one)
			_ = conn.Close(ctx)
			if err == nil {
				return nil
			}
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %v", timeout, lastErr)
		case <-ticker.C:
		}
	}
}
