package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/repositories"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	tu "github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/testing"
	"github.com/urfave/cli/v3"
)

var fixedNow = time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestRunner returns a runner over a shared in-memory database and its captured output.
func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	output := &bytes.Buffer{}
	config := shared.DefaultConfig()
	config.App.Timezone = "UTC"

	runner := NewRunner(RunnerOpts{
		Config: config,
		DB:     db,
		Output: output,
		Logger: shared.NewLogger(io.Discard),
		Now:    func() time.Time { return fixedNow },
	})
	return runner, output, db
}

// run executes the CLI in-process with args.
func run(r *Runner, args ...string) error {
	app := &cli.Command{
		Name:      "gestio",
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Commands:  r.register(),
	}
	return app.Run(context.Background(), append([]string{"gestio"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			db := setupTestDB(t)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				DB:         db,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.db != db {
				t.Error("expected db to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient sets a timeout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient == nil || runner.httpClient.Timeout == 0 {
				t.Error("expected a client with a timeout")
			}
		})

		t.Run("with nil clock uses time.Now", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.now == nil {
				t.Error("expected a clock")
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("reads the --config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			tu.MustWriteFile(t, path, "[server]\nport = 4000\nsession_cookie = \"s\"\n[database]\npath = \"x.db\"\n[app]\ntimezone = \"UTC\"\n")

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
			var got *shared.Config
			cmd := &cli.Command{
				Name:  "probe",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) (err error) {
					got, err = runner.loadConfig(cmd)
					return err
				},
			}
			if err := cmd.Run(context.Background(), []string{"probe", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.Server.Port != 4000 || got.Database.Path != "x.db" {
				t.Errorf("unexpected config: %+v", got.Server)
			}
		})

		t.Run("rejects an invalid file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			tu.MustWriteFile(t, path, "[server]\nport = 0\n")

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
			cmd := &cli.Command{
				Name:  "probe",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := runner.loadConfig(cmd)
					return err
				},
			}
			err := cmd.Run(context.Background(), []string{"probe", "--config", path})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for i, cmd := range runner.register() {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"serve", "setup", "auth", "users", "routines", "board", "sales", "dishes"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}

func TestUsersCommands(t *testing.T) {
	runner, output, _ := newTestRunner(t)

	if err := run(runner, "users", "add", "--email", "Owner@Example.com", "--role", "admin"); err != nil {
		t.Fatalf("failed to add admin: %v", err)
	}
	if err := run(runner, "users", "add", "--email", "chef@example.com", "--modules", "kitchen, cheffing"); err != nil {
		t.Fatalf("failed to add staff: %v", err)
	}

	t.Run("duplicate email", func(t *testing.T) {
		err := run(runner, "users", "add", "--email", "chef@example.com")
		if !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		err := run(runner, "users", "add", "--email", "x@example.com", "--modules", "bar")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "users", "list"); err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		got := output.String()
		for _, want := range []string{"owner@example.com", "all modules", "chef@example.com", "kitchen,cheffing"} {
			if !strings.Contains(got, want) {
				t.Errorf("expected %q in list:\n%s", want, got)
			}
		}
	})

	t.Run("last admin cannot be removed", func(t *testing.T) {
		err := run(runner, "users", "remove", "--email", "owner@example.com")
		if !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := run(runner, "users", "remove", "--email", "chef@example.com"); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		err := run(runner, "users", "remove", "--email", "chef@example.com")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

const seedYAML = `users:
  - email: owner@example.com
    name: Owner
    role: admin
  - email: chef@example.com
    modules: [kitchen, cheffing]
routines:
  - area: kitchen
    title: Clean fryer
    start_day: 1
    end_day: 2
    priority: high
  - area: kitchen
    title: Defrost freezer
    start_day: 5
  - area: kitchen
    title: Retired routine
    start_day: 3
    inactive: true
  - area: maintenance
    title: Check extinguishers
    start_day: 1
    end_day: 5
`

func TestSetupSeed(t *testing.T) {
	runner, output, db := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	tu.MustWriteFile(t, path, seedYAML)

	var first, second SeedResult
	if err := run(runner, "setup", "seed", "--file", path, "--json"); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	if err := json.Unmarshal(output.Bytes(), &first); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}

	output.Reset()
	if err := run(runner, "setup", "seed", "--file", path, "--json"); err != nil {
		t.Fatalf("failed to reseed: %v", err)
	}
	if err := json.Unmarshal(output.Bytes(), &second); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}

	if first != (SeedResult{UsersCreated: 2, RoutinesCreated: 4}) {
		t.Errorf("unexpected first run: %+v", first)
	}
	if second != (SeedResult{UsersSkipped: 2, RoutinesSkipped: 4}) {
		t.Errorf("unexpected second run: %+v", second)
	}

	chef, err := repositories.NewAllowlistRepository(db).GetByEmail(context.Background(), "chef@example.com")
	if err != nil {
		t.Fatalf("failed to load chef: %v", err)
	}
	if chef.Role != models.RoleStaff || !chef.Permissions.Kitchen || !chef.Permissions.Cheffing || chef.Permissions.Admin {
		t.Errorf("unexpected chef: %+v", chef)
	}

	t.Run("invalid yaml", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		tu.MustWriteFile(t, bad, "users: [\n")
		err := run(runner, "setup", "seed", "--file", bad)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("unknown area", func(t *testing.T) {
		_, err := applySeed(context.Background(),
			repositories.NewAllowlistRepository(db), repositories.NewRoutineRepository(db),
			&seedFile{Routines: []seedRoutine{{Area: "bar", Title: "Polish glasses", StartDay: 1}}})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestRoutinesAndBoard(t *testing.T) {
	runner, output, _ := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	tu.MustWriteFile(t, path, seedYAML)
	if err := run(runner, "setup", "seed", "--file", path); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	output.Reset()
	if err := run(runner, "routines", "generate", "--area", "kitchen", "--week", "2026-07-15"); err != nil {
		t.Fatalf("failed to generate: %v", err)
	}
	got := output.String()
	for _, want := range []string{"week of 2026-07-13", "Created: 2", "Clean fryer (2026-07-13 to 2026-07-14)", "Defrost freezer (2026-07-17 to 2026-07-17)"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}

	t.Run("second run skips", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "routines", "generate", "--area", "kitchen"); err != nil {
			t.Fatalf("failed to generate: %v", err)
		}
		if got := output.String(); !strings.Contains(got, "Created: 0") || !strings.Contains(got, "Already generated: 2") {
			t.Errorf("unexpected output:\n%s", got)
		}
	})

	t.Run("invalid area", func(t *testing.T) {
		if err := run(runner, "routines", "generate", "--area", "bar"); err == nil {
			t.Error("expected an error for an unknown area")
		}
	})

	t.Run("list", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "routines", "list", "--area", "kitchen"); err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		got := output.String()
		if !strings.Contains(got, "Mon-Tue") || !strings.Contains(got, "Retired routine") || !strings.Contains(got, "(inactive)") {
			t.Errorf("unexpected list:\n%s", got)
		}
	})

	t.Run("board print", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "board", "--area", "kitchen", "--print", "--week", "2026-07-13"); err != nil {
			t.Fatalf("failed to print board: %v", err)
		}
		got := output.String()
		if !strings.Contains(got, "Kitchen board: 2026-07-13 to 2026-07-19") || !strings.Contains(got, "Clean fryer") {
			t.Errorf("unexpected board:\n%s", got)
		}
		if strings.Contains(got, "Check extinguishers") {
			t.Errorf("maintenance task on kitchen board:\n%s", got)
		}
	})
}

const salesCSV = `fecha;codigo;producto;cantidad;importe
14/07/2026;B1;PATATAS BRAVAS;3;18,00
15/07/2026;B1;PATATAS BRAVAS;2;12,00
15/07/2026;W9;Vino de la casa;4;14,00
`

func TestSalesAndDishes(t *testing.T) {
	runner, output, db := newTestRunner(t)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	ctx := context.Background()
	dish := models.NewDish("Patatas bravas", 6)
	dish.Category = "tapas"
	if err := repositories.NewDishRepository(db).Create(ctx, dish); err != nil {
		t.Fatalf("failed to create dish: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ventas.csv")
	tu.MustWriteFile(t, path, salesCSV)

	if err := run(runner, "sales", "import", "--file", path); err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	got := output.String()
	for _, want := range []string{"Sales import cli-20260715T100000-ventas.csv", "Sales stored:     3", "Products created: 2", "PATATAS BRAVAS → Patatas bravas", "1 products still unlinked"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}

	t.Run("summary", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "sales", "summary", "--json"); err != nil {
			t.Fatalf("failed to summarise: %v", err)
		}
		var view struct {
			From   string             `json:"from"`
			To     string             `json:"to"`
			Dishes []models.DishSales `json:"dishes"`
		}
		if err := json.Unmarshal(output.Bytes(), &view); err != nil {
			t.Fatalf("failed to decode summary: %v", err)
		}
		if view.From != "2026-07-01" || view.To != "2026-07-15" {
			t.Errorf("unexpected range: %s to %s", view.From, view.To)
		}
		for _, row := range view.Dishes {
			if row.DishID == dish.ID && (row.Units != 5 || row.Revenue != 30) {
				t.Errorf("unexpected bravas row: %+v", row)
			}
		}
	})

	t.Run("summary rejects reversed range", func(t *testing.T) {
		err := run(runner, "sales", "summary", "--from", "2026-07-10", "--to", "2026-07-01")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("export by name", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "dishes", "export", "--name", "patatas BRAVAS", "--format", "markdown"); err != nil {
			t.Fatalf("failed to export: %v", err)
		}
		if !strings.Contains(output.String(), "Patatas bravas") {
			t.Errorf("unexpected export:\n%s", output.String())
		}
	})

	t.Run("export to file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "bravas.csv")
		if err := run(runner, "dishes", "export", "--id", dish.ID, "--out", out); err != nil {
			t.Fatalf("failed to export: %v", err)
		}
		tu.AssertFileExists(t, out)
	})

	t.Run("export needs a dish", func(t *testing.T) {
		err := run(runner, "dishes", "export")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "dishes", "list", "--category", "tapas"); err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if !strings.Contains(output.String(), "Patatas bravas") {
			t.Errorf("unexpected list:\n%s", output.String())
		}
	})
}

func TestNewHandler(t *testing.T) {
	runner, _, db := newTestRunner(t)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	admin := models.NewAllowedUser("owner@example.com", "Owner", models.RoleAdmin)
	if err := repositories.NewAllowlistRepository(db).Create(context.Background(), admin); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	provider := tu.NewMockAuthProvider()
	provider.AddSession("owner-token", "owner@example.com")

	handler, err := runner.newHandler(runner.config, db, provider)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	tc := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"health", "/healthz", "", http.StatusOK},
		{"metrics", "/metrics", "", http.StatusOK},
		{"api without session", "/api/me", "", http.StatusUnauthorized},
		{"api with session", "/api/me", "owner-token", http.StatusOK},
		{"unknown route", "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: runner.config.Server.SessionCookie, Value: tt.token})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthCommands(t *testing.T) {
	respond := func(status int, body io.ReadCloser) *http.Client {
		return &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: status,
			Body:       body,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil)}
	}

	newRunner := func(t *testing.T, client *http.Client) (*Runner, *bytes.Buffer) {
		t.Helper()
		runner, output, db := newTestRunner(t)
		runner.httpClient = client
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
		viewer := models.NewAllowedUser("host@example.com", "Host", models.RoleViewer)
		viewer.Permissions.Reservations = true
		if err := repositories.NewAllowlistRepository(db).Create(context.Background(), viewer); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		return runner, output
	}

	t.Run("status", func(t *testing.T) {
		runner, output := newRunner(t, http.DefaultClient)
		if err := run(runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := output.String(); !strings.Contains(got, "/auth/v1/authorize") || !strings.Contains(got, "/auth/login") {
			t.Errorf("unexpected status:\n%s", got)
		}
	})

	t.Run("allowlisted token", func(t *testing.T) {
		body := io.NopCloser(strings.NewReader(`{"id": "u1", "email": "Host@Example.com"}`))
		runner, output := newRunner(t, respond(http.StatusOK, body))

		if err := run(runner, "auth", "check", "--token", "abc"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got := output.String()
		for _, want := range []string{"✓ host@example.com (u1)", "✓ reservations", "✗ kitchen", "read only"} {
			if !strings.Contains(got, want) {
				t.Errorf("expected %q in output:\n%s", want, got)
			}
		}
	})

	t.Run("token not on the allowlist", func(t *testing.T) {
		body := io.NopCloser(strings.NewReader(`{"id": "u2", "email": "stranger@example.com"}`))
		runner, _ := newRunner(t, respond(http.StatusOK, body))

		err := run(runner, "auth", "check", "--token", "abc")
		if !errors.Is(err, shared.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		runner, _ := newRunner(t, respond(http.StatusUnauthorized, io.NopCloser(strings.NewReader(""))))

		err := run(runner, "auth", "check", "--token", "abc")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("unreadable response", func(t *testing.T) {
		runner, _ := newRunner(t, respond(http.StatusOK, &tu.FCloser{}))

		err := run(runner, "auth", "check", "--token", "abc")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
