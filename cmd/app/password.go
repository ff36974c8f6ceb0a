package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// passwordFor returns the --password flag or DAYBOOK_PASSWORD, falling back to
// an interactive prompt. confirm asks twice.
func passwordFor(cmd *cli.Command, confirm bool) (string, error) {
	if pw := cmd.String("password"); pw != "" {
		return pw, nil
	}
	pw, err := readPassword("Password: ")
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := readPassword("Repeat password: ")
		if err != nil {
			return "", err
		}
		if again != pw {
			return "", errors.New("passwords do not match")
		}
	}
	if pw == "" {
		return "", errors.New("password cannot be empty")
	}
	return pw, nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot read password: stdin is not a terminal; set DAYBOOK_PASSWORD")
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}
