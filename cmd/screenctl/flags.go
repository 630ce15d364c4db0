package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

const (
	flagAddress     = "address"
	flagBirthDate   = "birth-date"
	flagCredentials = "credentials"
	flagDebug       = "debug"
	flagEmail       = "email"
	flagFirstName   = "first-name"
	flagGender      = "gender"
	flagInsecure    = "insecure"
	flagLang        = "lang"
	flagLastName    = "last-name"
	flagNotes       = "notes"
	flagOutput      = "output"
	flagPassword    = "password"
	flagPatient     = "patient"
	flagPhone       = "phone"
	flagServer      = "server"
	flagTimeout     = "timeout"
	flagUserType    = "user-type"
)

const defaultTimeout = 30 * time.Second

var (
	cliFlagOutput = &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "Return output in another format. Supported formats: table, yaml, json",
		Value:   "table",
	}
)
