package main

import (
	"os"

	"github.com/labstack/gommon/log"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/session"
	"github.com/lachlan2k/malaria-dash/internal/tokenstore"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var logger = newLogger()

func newLogger() *log.Logger {
	l := log.New("screenctl")
	l.SetOutput(os.Stderr)
	l.SetLevel(log.WARN)
	return l
}

func configureLogging(c *cli.Context) error {
	if c.Bool(flagDebug) {
		logger.SetLevel(log.DEBUG)
	}
	return nil
}

func getStorage(c *cli.Context) (*tokenstore.File, error) {
	path := c.String(flagCredentials)
	if path == "" {
		var err error
		if path, err = tokenstore.DefaultFilePath(); err != nil {
			return nil, err
		}
	}
	return tokenstore.NewFile(path), nil
}

// getSession builds an unresolved session store backed by the credentials
// file, along with a client that authenticates from the same file.
func getSession(c *cli.Context) (*session.Store, *api.Client, error) {
	storage, err := getStorage(c)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error locating credentials")
	}
	logger.Debugf("Using credentials at %s", storage.Path())

	client := api.NewClient(
		api.Config{
			Address:       c.String(flagServer),
			Timeout:       c.Duration(flagTimeout),
			AllowInsecure: c.Bool(flagInsecure),
		},
		tokenstore.TokenSource(storage),
	)
	return session.New(storage, client, logger), client, nil
}

// requireSession restores the persisted session and fails unless it is
// authenticated. Commands that talk to the API call this first.
func requireSession(c *cli.Context) (*api.Client, session.Identity, error) {
	store, client, err := getSession(c)
	if err != nil {
		return nil, session.Identity{}, err
	}

	store.Restore(c.Context)

	identity, ok := store.Snapshot().Identity()
	if !ok {
		return nil, session.Identity{}, errors.Wrap(
			session.ErrNotAuthenticated,
			"please run `screenctl login` to continue",
		)
	}
	logger.Debugf("Restored session for %s", identity.Email)
	return client, identity, nil
}
