package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/repositories"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// SetupDatabase creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if r.config == nil {
		if _, err := os.Stat(configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", configPath)
			}
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("✓ Database ready at schema version %d\n", version)
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	before, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}
	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	after, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}

	r.logger.Info("rolled back migration", "from", before, "to", after)
	return r.writePlain("✓ Rolled back schema version %d (now %d)\n", before, after)
}

// seedFile is the YAML layout accepted by "setup seed".
type seedFile struct {
	Users    []seedUser    `yaml:"users"`
	Routines []seedRoutine `yaml:"routines"`
}

type seedUser struct {
	Email   string   `yaml:"email"`
	Name    string   `yaml:"name"`
	Role    string   `yaml:"role"`
	Modules []string `yaml:"modules"`
}

type seedRoutine struct {
	Area        string `yaml:"area"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	StartDay    int    `yaml:"start_day"`
	EndDay      int    `yaml:"end_day"`
	Priority    string `yaml:"priority"`
	Inactive    bool   `yaml:"inactive"`
}

// SeedResult counts what a seed run created and skipped.
type SeedResult struct {
	UsersCreated    int `json:"users_created"`
	UsersSkipped    int `json:"users_skipped"`
	RoutinesCreated int `json:"routines_created"`
	RoutinesSkipped int `json:"routines_skipped"`
}

func parseSeed(data []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse seed file: %v", shared.ErrInvalidInput, err)
	}
	return &seed, nil
}

// parseModules converts module names to permission flags.
func parseModules(names []string) (models.Permissions, error) {
	var p models.Permissions
	for _, name := range names {
		switch models.Module(strings.ToLower(strings.TrimSpace(name))) {
		case models.ModuleReservations:
			p.Reservations = true
		case models.ModuleKitchen:
			p.Kitchen = true
		case models.ModuleMaintenance:
			p.Maintenance = true
		case models.ModuleCheffing:
			p.Cheffing = true
		case models.ModuleAdmin:
			p.Admin = true
		case "":
		default:
			return p, fmt.Errorf("%w: unknown module %q", shared.ErrInvalidArgument, name)
		}
	}
	return p, nil
}

// applySeed creates the seeded users and routines. Existing emails and routines with the same
// area and title are left alone, so a seed file can be applied repeatedly.
func applySeed(ctx context.Context, users *repositories.AllowlistRepository, routines *repositories.RoutineRepository, seed *seedFile) (*SeedResult, error) {
	result := &SeedResult{}

	for _, su := range seed.Users {
		_, err := users.GetByEmail(ctx, su.Email)
		if err == nil {
			result.UsersSkipped++
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return result, err
		}

		perms, err := parseModules(su.Modules)
		if err != nil {
			return result, fmt.Errorf("user %s: %w", su.Email, err)
		}
		role := models.Role(su.Role)
		if role == "" {
			role = models.RoleStaff
		}

		user := models.NewAllowedUser(su.Email, su.Name, role)
		user.Permissions = perms
		if err := users.Create(ctx, user); err != nil {
			return result, fmt.Errorf("user %s: %w", su.Email, err)
		}
		result.UsersCreated++
	}

	if len(seed.Routines) == 0 {
		return result, nil
	}

	list, err := routines.List(ctx, nil)
	if err != nil {
		return result, err
	}
	existing := make(map[string]bool, len(list))
	for _, rt := range list {
		existing[string(rt.Area)+"/"+shared.NormalizeName(rt.Title)] = true
	}

	for _, sr := range seed.Routines {
		area, err := models.ParseArea(sr.Area)
		if err != nil {
			return result, fmt.Errorf("routine %q: %w", sr.Title, err)
		}

		key := string(area) + "/" + shared.NormalizeName(sr.Title)
		if existing[key] {
			result.RoutinesSkipped++
			continue
		}

		priority := models.Priority(sr.Priority)
		if priority == "" {
			priority = models.PriorityNormal
		}
		end := sr.EndDay
		if end == 0 {
			end = sr.StartDay
		}

		routine := &models.Routine{
			Area:        area,
			Title:       sr.Title,
			Description: sr.Description,
			StartDOW:    sr.StartDay,
			EndDOW:      end,
			Priority:    priority,
			Active:      !sr.Inactive,
		}
		if err := routines.Create(ctx, routine); err != nil {
			return result, fmt.Errorf("routine %q: %w", sr.Title, err)
		}
		existing[key] = true
		result.RoutinesCreated++
	}

	return result, nil
}

// SetupSeed loads allowlist users and routines from a YAML file.
func (r *Runner) SetupSeed(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	if path == "" {
		return fmt.Errorf("%w: --file is required", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	seed, err := parseSeed(data)
	if err != nil {
		return err
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := applySeed(ctx, repositories.NewAllowlistRepository(db), repositories.NewRoutineRepository(db), seed)
	if err != nil {
		return fmt.Errorf("failed to apply seed: %w", err)
	}

	r.logger.Info("seed applied", "file", path,
		"users_created", result.UsersCreated, "users_skipped", result.UsersSkipped,
		"routines_created", result.RoutinesCreated, "routines_skipped", result.RoutinesSkipped)

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	r.writePlain("✓ Users: %d created, %d already present\n", result.UsersCreated, result.UsersSkipped)
	r.writePlain("✓ Routines: %d created, %d already present\n", result.RoutinesCreated, result.RoutinesSkipped)
	return nil
}
