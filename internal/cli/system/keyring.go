package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/keyring"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/transport"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
	Status KeyringStatusCmd `cmd:"" help:"Show which secrets are stored." default:"1"`
}

type KeyringSetCmd struct {
	Secret string `arg:"" enum:"dropbox-token,postgres" help:"Which secret to store (dropbox-token or postgres)."`
	Value  string `arg:"" help:"Token or connection string."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	switch cmd.Secret {
	case "dropbox-token":
		if err := keyring.SetDropboxToken(strings.TrimSpace(cmd.Value)); err != nil {
			return err
		}
		cli.OK("Dropbox token stored in OS keyring")
	case "postgres":
		if _, err := transport.ValidateConnString(cmd.Value); err != nil {
			if !errors.Is(err, transport.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			// The keyring is encrypted, so an embedded password is allowed here.
			cli.Warn("Connection string contains a password; it is stored as-is in the OS keyring.")
		}
		if err := keyring.SetPostgresConnectionString(cmd.Value); err != nil {
			return err
		}
		cli.OK("Connection string stored in OS keyring")
		fmt.Println("  Set transport.kind to postgres to back up there.")
	}
	return nil
}

type KeyringDeleteCmd struct {
	Secret string `arg:"" enum:"dropbox-token,postgres" help:"Which secret to remove (dropbox-token or postgres)."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	var err error
	switch cmd.Secret {
	case "dropbox-token":
		err = keyring.DeleteDropboxToken()
	case "postgres":
		err = keyring.DeletePostgresConnectionString()
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("no %s stored in keyring", cmd.Secret)
	}
	if err != nil {
		return err
	}
	cli.OK("Deleted %s from OS keyring", cmd.Secret)
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		cli.Fail("OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	cli.OK("OS keyring is available")

	report := func(name string, get func() (string, error)) {
		v, err := get()
		switch {
		case err == nil:
			fmt.Printf("  %s: stored (%s)\n", name, mask(v))
		case errors.Is(err, keyring.ErrNotFound):
			fmt.Printf("  %s: not stored\n", name)
		default:
			fmt.Printf("  %s: %v\n", name, err)
		}
	}
	report("Dropbox token", keyring.DropboxToken)
	report("PostgreSQL connection", keyring.PostgresConnectionString)
	return nil
}

// mask keeps only the first and last four characters of a secret.
func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
