package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/storage/gdrive"
)

// DriveAuthCommand performs the OAuth flow for Drive access
type DriveAuthCommand struct {
	cfg             *config.Config
	CredentialsFile string
	TokenFile       string
}

func NewDriveAuthCommand(cfg *config.Config) *DriveAuthCommand {
	return &DriveAuthCommand{cfg: cfg}
}

func (cmd *DriveAuthCommand) ParseFlags(args []string) error {
	settings, err := config.LoadSettings(cmd.cfg.Paths.SettingsPath)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("drive-auth", flag.ExitOnError)
	fs.StringVar(&cmd.CredentialsFile, "credentials", cmd.cfg.CredentialsPath(settings.CredentialsFile), "OAuth client secret JSON")
	fs.StringVar(&cmd.TokenFile, "token", cmd.cfg.CredentialsPath(settings.TokenFile), "Where to store the token")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s drive-auth [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Authorize Google Drive access with an OAuth desktop client.\n")
		fmt.Fprintf(os.Stderr, "Not needed for service-account credentials.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *DriveAuthCommand) Run(ctx context.Context) error {
	fmt.Println("Google Drive OAuth Flow")
	fmt.Println("=======================")

	oauthCfg, err := gdrive.OAuthConfig(cmd.CredentialsFile)
	if err != nil {
		return err
	}

	authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("\nOpen this URL in your browser and authorize access:\n\n%s\n\n", authURL)
	fmt.Print("Paste the authorization code: ")

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := gdrive.SaveToken(cmd.TokenFile, tok); err != nil {
		return err
	}
	fmt.Printf("Token saved to %s\n", cmd.TokenFile)
	return nil
}
