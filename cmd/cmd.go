// submodule cmd contains command definitions
package main

import (
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/urfave/cli/v3"
)

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run migrations and start the HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the login page in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database and initial data.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
			{
				Name:  "seed",
				Usage: "Load allowlist users and routines from a YAML file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the seed YAML file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SetupSeed,
			},
		},
	}
}

// authCommand inspects the hosted auth configuration and sessions.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Inspect authentication",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the configured provider and login endpoints",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:  "check",
				Usage: "Validate a session token and show the modules it can open",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "token", Usage: "Session access token", Required: true},
				},
				Action: r.AuthCheck,
			},
		},
	}
}

// usersCommand manages the allowlist from the command line.
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage allowlisted users",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add an email to the allowlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.StringFlag{Name: "role", Usage: "admin, staff or viewer", Value: string(models.RoleStaff)},
					&cli.StringFlag{Name: "modules", Usage: "Comma separated modules (reservations,kitchen,maintenance,cheffing,admin)"},
				},
				Action: r.UsersAdd,
			},
			{
				Name:  "list",
				Usage: "List allowlisted users",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "role", Usage: "Only users with this role"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.UsersList,
			},
			{
				Name:  "remove",
				Usage: "Remove an email from the allowlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
				},
				Action: r.UsersRemove,
			},
		},
	}
}

// routinesCommand handles weekly routine templates.
func routinesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "routines",
		Usage: "Weekly routine templates for the task boards",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Create this week's tasks from the active routines",
				Flags: []cli.Flag{
					configFlag(),
					areaFlag(),
					&cli.StringFlag{Name: "week", Aliases: []string{"w"}, Usage: "Any date (YYYY-MM-DD) in the target week"},
					&cli.StringFlag{Name: "by", Usage: "Recorded as the creator of the tasks", Value: "cli"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.RoutinesGenerate,
			},
			{
				Name:  "list",
				Usage: "List the routines of an area",
				Flags: []cli.Flag{
					configFlag(),
					areaFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.RoutinesList,
			},
		},
	}
}

// boardCommand returns the top-level command for the terminal task board.
func boardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "board",
		Aliases: []string{"tui"},
		Usage:   "Open the kitchen or maintenance board in the terminal",
		Flags: []cli.Flag{
			configFlag(),
			areaFlag(),
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Email recorded when completing tasks", Value: "board"},
			&cli.BoolFlag{Name: "print", Usage: "Print the week instead of opening the interactive board"},
			&cli.StringFlag{Name: "week", Aliases: []string{"w"}, Usage: "Any date (YYYY-MM-DD) in the week to print"},
			&cli.StringFlag{Name: "log", Usage: "Log file for the interactive board", Value: "./tmp/gestio-board.log"},
		},
		Action: r.Board,
	}
}

// salesCommand handles POS sales imports.
func salesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sales",
		Usage: "POS sales import and reporting",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a POS CSV export",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "CSV export, or - for stdin", Required: true},
					&cli.StringFlag{Name: "batch", Usage: "Batch label stored with the sales"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.SalesImport,
			},
			{
				Name:  "link",
				Usage: "Auto-link unlinked POS products to dishes with the same name",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.SalesLink,
			},
			{
				Name:  "summary",
				Usage: "Per dish units, revenue, cost and margin",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "from", Usage: "First day (YYYY-MM-DD), defaults to the first of the month"},
					&cli.StringFlag{Name: "to", Usage: "Last day (YYYY-MM-DD), defaults to today"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.SalesSummary,
			},
		},
	}
}

// dishesCommand handles dish costing from the command line.
func dishesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dishes",
		Usage: "Dish costing",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Print or save a dish costing sheet",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "id", Usage: "Dish ID"},
					&cli.StringFlag{Name: "name", Usage: "Dish name"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv, markdown or text", Value: "csv"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
				},
				Action: r.DishesExport,
			},
			{
				Name:  "list",
				Usage: "List dishes with cost and margin",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "category", Usage: "Only dishes in this category"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.DishesList,
			},
		},
	}
}
