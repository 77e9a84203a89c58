package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wolfeidau/cybaware/internal/auth"
)

// HashPasswordCmd prints a bcrypt hash, for seeding users directly in the database.
type HashPasswordCmd struct {
	Cost int `help:"bcrypt cost, 0 uses the library default" default:"0" env:"CYBAWARE_BCRYPT_COST"`
}

func (c *HashPasswordCmd) Run(globals *Globals) error {
	password, err := readPassword(os.Stdin)
	if err != nil {
		return err
	}

	hasher, err := auth.NewBcryptHasher(c.Cost)
	if err != nil {
		return err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, hash)
	return err
}

// readPassword reads the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must be provided on stdin")
	}
	return password, nil
}
