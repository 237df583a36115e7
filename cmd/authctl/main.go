// Command authctl runs administrative tasks against the auth database using
// the same environment configuration as the service.
//
//	authctl create-admin -username root_admin
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/aussiebroadwan/currex/internal/auth/app"
	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"golang.org/x/term"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: authctl <command> [flags]\n\ncommands:\n")
	fmt.Fprintf(os.Stderr, "  create-admin -username NAME   create an ADMIN user, password read from the terminal\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create-admin":
		err = createAdmin(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("authctl: %v", err)
	}
}

func createAdmin(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	username := fs.String("username", "", "username of the new admin")
	envFile := fs.String("env-file", ".env", "optional .env file")
	_ = fs.Parse(args)

	if *username == "" {
		return errors.New("-username is required")
	}

	password, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := app.LoadConfig(*envFile)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	u, err := a.Users().CreateUser(context.Background(), *username, password, domain.CategoryAdmin)
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		for field, msgs := range verrs {
			for _, m := range msgs {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, m)
			}
		}
		return errors.New("invalid credentials")
	case err != nil:
		return err
	}

	fmt.Printf("created %s user %q with id %d\n", u.Category, u.Username, u.ID)
	return nil
}

// readPassword prompts twice on a terminal. Piped input supplies a single
// line instead.
func readPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
