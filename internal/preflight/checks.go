package preflight

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sys/unix"

	"lightbox/internal/archive"
	"lightbox/internal/render"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(problem string) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", path, problem)}
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fail("does not exist")
	}
	if err != nil {
		return fail(fmt.Sprintf("stat: %v", err))
	}
	if !info.IsDir() {
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail(fmt.Sprintf("insufficient permissions: %v", err))
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckPostgres verifies the index database accepts connections.
func CheckPostgres(ctx context.Context, dsn string) Result {
	const name = "Postgres index"

	if strings.TrimSpace(dsn) == "" {
		return Result{Name: name, Detail: "missing dsn"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer db.Close()
	if err := db.PingContext(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("ping failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckDICOMWeb verifies the remote archive answers QIDO-RS study queries.
func CheckDICOMWeb(ctx context.Context, baseURL, authToken string) Result {
	const name = "DICOMweb origin"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/studies?limit=1", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed (%v)", err)}
	}
	req.Header.Set("Accept", "application/dicom+json")
	if token := strings.TrimSpace(authToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return Result{Name: name, Passed: true, Detail: "reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("query failed (%d)", resp.StatusCode)}
	}
}

// CheckSource verifies the archive source can enumerate studies.
func CheckSource(ctx context.Context, source archive.Source) Result {
	const name = "Archive source"

	if source == nil {
		return Result{Name: name, Detail: "not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	studies, err := source.ListStudies(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("list studies failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d studies indexed", len(studies))}
}

// CheckEngine verifies the render engine initializes.
func CheckEngine(ctx context.Context, engine render.Engine) Result {
	const name = "Render engine"

	if engine == nil {
		return Result{Name: name, Detail: "not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := engine.EnsureReady(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("initialization failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "ready"}
}
