package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/wolfeidau/cybaware/internal/auth"
)

// TokenCmd issues a token for an existing user id, for operators and local testing.
// The user is not looked up; the token is only accepted if the user exists and is active.
type TokenCmd struct {
	UserID int64         `arg:"" name:"user-id" help:"user id to use as the token subject"`
	Token  TokenFlags    `embed:"" prefix:"token-"`
	For    time.Duration `help:"token lifetime, defaults to --token-ttl" default:"0"`
}

func (c *TokenCmd) Run(globals *Globals) error {
	if c.UserID <= 0 {
		return fmt.Errorf("user id must be positive")
	}

	codec, err := c.Token.codec()
	if err != nil {
		return fmt.Errorf("invalid token configuration: %w", err)
	}

	var opts []auth.IssueOption
	if c.For > 0 {
		opts = append(opts, auth.WithTTL(c.For))
	}

	token, err := codec.Issue(c.UserID, opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
