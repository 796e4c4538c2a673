package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/auth"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

const passwordEnv = "WATERLEVELS_PASSWORD"

// UserAddCommand creates a database user
type UserAddCommand struct {
	cfg          *config.Config
	Username     string
	DisplayName  string
	Role         string
	DatabasePath string
}

func NewUserAddCommand(cfg *config.Config) *UserAddCommand {
	return &UserAddCommand{cfg: cfg}
}

func (cmd *UserAddCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("user-add", flag.ExitOnError)
	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.DisplayName, "name", "", "Display name")
	fs.StringVar(&cmd.Role, "role", string(entities.RoleTech), "Role: admin or tech")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s user-add -username <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Add a user. The password is read from %s or prompted for.\n\n", passwordEnv)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	switch entities.UserRole(cmd.Role) {
	case entities.RoleAdmin, entities.RoleTech:
	default:
		return fmt.Errorf("invalid role %q, expected admin or tech", cmd.Role)
	}
	return nil
}

func (cmd *UserAddCommand) Run(ctx context.Context) error {
	password := os.Getenv(passwordEnv)
	if password == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	id, err := auth.Register(ctx, app.Users, entities.User{
		Username:    cmd.Username,
		DisplayName: cmd.DisplayName,
		Role:        entities.UserRole(cmd.Role),
	}, password, cmd.cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %s (id %d, role %s)\n", cmd.Username, id, cmd.Role)
	return nil
}
