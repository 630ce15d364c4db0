package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func login(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("login requires no arguments")
	}

	// Command-specific flags
	email := c.String(flagEmail)
	password := c.String(flagPassword)

	reader := bufio.NewReader(c.App.Reader)
	if email == "" {
		fmt.Fprint(c.App.Writer, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return errors.Wrap(err, "error reading email")
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		var err error
		if password, err = readPassword(c, reader); err != nil {
			return err
		}
	}

	store, client, err := getSession(c)
	if err != nil {
		return err
	}

	if _, err := store.Login(c.Context, email, password); err != nil {
		logger.Debugf("Login failed: %v", err)
		return errors.New(api.ErrorMessage(err, "Login failed. Please check your credentials."))
	}

	// The login response only carries tokens; ask who we are for the role
	role := ""
	if user, err := client.CurrentUser(c.Context); err == nil {
		role = " (" + user.UserType.String() + ")"
	} else {
		logger.Warnf("Logged in, but couldn't fetch user details: %v", err)
	}

	fmt.Fprintf(c.App.Writer, "Logged in as %s%s.\n", email, role)
	return nil
}

func register(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("register requires no arguments")
	}

	// Command-specific flags
	output := c.String(flagOutput)
	email := c.String(flagEmail)
	password := c.String(flagPassword)
	userType := api.UserType(c.Int(flagUserType))

	if err := validateOutputFormat(output); err != nil {
		return err
	}
	if userType < api.UserTypeAdmin || userType > api.UserTypeFieldWorker {
		return errors.Errorf("invalid user type %d, valid types are 1 (admin), 2 (clinician) and 3 (field worker)", userType)
	}

	if password == "" {
		var err error
		if password, err = readPassword(c, bufio.NewReader(c.App.Reader)); err != nil {
			return err
		}
	}

	// Registration is open, so no session is needed
	_, client, err := getSession(c)
	if err != nil {
		return err
	}

	user, err := client.Register(c.Context, api.RegisterRequest{
		Email:    email,
		Password: password,
		UserType: userType,
		Phone:    c.String(flagPhone),
	})
	if err != nil {
		return errors.New(api.ErrorMessage(err, err.Error()))
	}

	if strings.ToLower(output) == outputTable {
		fmt.Fprintf(c.App.Writer, "Registered %s (%s). Run `screenctl login` to sign in.\n", user.Email, user.UserType)
		return nil
	}
	return writeOutput(c.App.Writer, output, user, nil)
}

func readPassword(c *cli.Context, reader *bufio.Reader) (string, error) {
	fmt.Fprint(c.App.Writer, "Password: ")
	if f, ok := c.App.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		passwordBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.App.Writer)
		if err != nil {
			return "", errors.Wrap(err, "error reading password")
		}
		return string(passwordBytes), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "error reading password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func logout(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("logout requires no arguments")
	}

	store, _, err := getSession(c)
	if err != nil {
		return err
	}

	if err := store.Logout(c.Context); err != nil {
		return errors.Wrap(err, "error deleting credentials")
	}

	fmt.Fprintln(c.App.Writer, "Logout was successful.")
	return nil
}

func whoami(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("whoami requires no arguments")
	}

	// Command-specific flags
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, identity, err := requireSession(c)
	if err != nil {
		return err
	}

	return writeOutput(
		c.App.Writer,
		output,
		identity,
		func(table *uitable.Table) {
			table.AddRow("EMAIL", "ROLE", "SERVER")
			table.AddRow(identity.Email, identity.UserType, client.Address())
		},
	)
}
