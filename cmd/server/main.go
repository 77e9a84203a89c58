package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/cybaware/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Dev          bool                    `help:"Enable development mode (debug logs, console output)." env:"CYBAWARE_DEV"`
		Version      kong.VersionFlag        `help:"Print version and exit."`
		Serve        commands.ServeCmd        `cmd:"" default:"1" help:"Start the API server"`
		Token        commands.TokenCmd        `cmd:"" help:"Issue a bearer token for a user id"`
		HashPassword commands.HashPasswordCmd `cmd:"" name:"hash-password" help:"Print the bcrypt hash of a password"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("cybaware"),
		kong.Description("CybAware multi-tenant API server."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Dev: cli.Dev, Version: version})
	cmd.FatalIfErrorf(err)
}
