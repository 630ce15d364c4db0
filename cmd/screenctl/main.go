package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "screenctl"
	app.Usage = "Work with the malaria screening service from the command line"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagServer,
			Aliases: []string{"s"},
			Usage:   "Address of the screening API",
			EnvVars: []string{"SCREENCTL_SERVER"},
			Value:   "http://localhost:8000/api",
		},
		&cli.BoolFlag{
			Name:    flagInsecure,
			Aliases: []string{"k"},
			Usage:   "Allow insecure API server connections when using TLS",
		},
		&cli.DurationFlag{
			Name:  flagTimeout,
			Usage: "Timeout for each request to the API",
			Value: defaultTimeout,
		},
		&cli.StringFlag{
			Name:    flagCredentials,
			Usage:   "Where the access token is kept (default: ~/.screenctl/credentials)",
			EnvVars: []string{"SCREENCTL_CREDENTIALS"},
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "Log every request and session change",
		},
	}
	app.Before = configureLogging
	app.Commands = []*cli.Command{
		{
			Name:  "chat",
			Usage: "Talk to the malaria chatbot",
			Subcommands: []*cli.Command{
				{
					Name:      "delete",
					Usage:     "Delete a chat message",
					ArgsUsage: "MESSAGE_ID",
					Action:    chatDelete,
				},
				{
					Name:  "list",
					Usage: "List previous questions and answers",
					Flags: []cli.Flag{
						cliFlagOutput,
					},
					Action: chatList,
				},
				{
					Name:      "send",
					Usage:     "Ask the chatbot a question",
					ArgsUsage: "QUESTION",
					Flags: []cli.Flag{
						cliFlagOutput,
						&cli.StringFlag{
							Name:    flagLang,
							Aliases: []string{"l"},
							Usage:   "Language the answer should be given in",
							Value:   "en",
						},
					},
					Action: chatSend,
				},
			},
		},
		{
			Name:  "login",
			Usage: "Log in to the screening service",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagEmail,
					Aliases: []string{"e"},
					Usage:   "Email address to log in with",
				},
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the password non-interactively",
				},
			},
			Action: login,
		},
		{
			Name:   "logout",
			Usage:  "Log out of the screening service",
			Action: logout,
		},
		{
			Name:  "patient",
			Usage: "Manage patients",
			Subcommands: []*cli.Command{
				{
					Name:  "create",
					Usage: "Register a new patient",
					Flags: []cli.Flag{
						cliFlagOutput,
						&cli.StringFlag{
							Name:     flagFirstName,
							Usage:    "The patient's first name",
							Required: true,
						},
						&cli.StringFlag{
							Name:     flagLastName,
							Usage:    "The patient's last name",
							Required: true,
						},
						&cli.StringFlag{
							Name:  flagGender,
							Usage: "M or F",
						},
						&cli.StringFlag{
							Name:  flagBirthDate,
							Usage: "Date of birth as YYYY-MM-DD",
						},
						&cli.StringFlag{
							Name:  flagAddress,
							Usage: "The patient's address",
						},
						&cli.StringFlag{
							Name:  flagPhone,
							Usage: "The patient's phone number",
						},
					},
					Action: patientCreate,
				},
				{
					Name:      "delete",
					Usage:     "Delete a patient",
					ArgsUsage: "PATIENT_ID",
					Action:    patientDelete,
				},
				{
					Name:      "get",
					Usage:     "Get a patient",
					ArgsUsage: "PATIENT_ID",
					Flags: []cli.Flag{
						cliFlagOutput,
					},
					Action: patientGet,
				},
				{
					Name:  "list",
					Usage: "List patients",
					Flags: []cli.Flag{
						cliFlagOutput,
					},
					Action: patientList,
				},
				{
					Name:      "update",
					Usage:     "Change a patient's details",
					ArgsUsage: "PATIENT_ID",
					Flags: []cli.Flag{
						cliFlagOutput,
						&cli.StringFlag{
							Name:  flagFirstName,
							Usage: "The patient's first name",
						},
						&cli.StringFlag{
							Name:  flagLastName,
							Usage: "The patient's last name",
						},
						&cli.StringFlag{
							Name:  flagGender,
							Usage: "M or F",
						},
						&cli.StringFlag{
							Name:  flagBirthDate,
							Usage: "Date of birth as YYYY-MM-DD",
						},
						&cli.StringFlag{
							Name:  flagAddress,
							Usage: "The patient's address",
						},
						&cli.StringFlag{
							Name:  flagPhone,
							Usage: "The patient's phone number",
						},
					},
					Action: patientUpdate,
				},
			},
		},
		{
			Name:  "register",
			Usage: "Create an account on the screening service",
			Flags: []cli.Flag{
				cliFlagOutput,
				&cli.StringFlag{
					Name:     flagEmail,
					Aliases:  []string{"e"},
					Usage:    "Email address for the new account",
					Required: true,
				},
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the password non-interactively",
				},
				&cli.IntFlag{
					Name:  flagUserType,
					Usage: "1 (admin), 2 (clinician) or 3 (field worker)",
					Value: int(api.UserTypeFieldWorker),
				},
				&cli.StringFlag{
					Name:  flagPhone,
					Usage: "Contact phone number",
				},
			},
			Action: register,
		},
		{
			Name:  "screening",
			Usage: "Manage blood smear screenings",
			Subcommands: []*cli.Command{
				{
					Name:      "delete",
					Usage:     "Delete a screening",
					ArgsUsage: "SCREENING_ID",
					Action:    screeningDelete,
				},
				{
					Name:      "get",
					Usage:     "Get a screening",
					ArgsUsage: "SCREENING_ID",
					Flags: []cli.Flag{
						cliFlagOutput,
					},
					Action: screeningGet,
				},
				{
					Name:  "list",
					Usage: "List screenings",
					Flags: []cli.Flag{
						cliFlagOutput,
						&cli.Int64Flag{
							Name:  flagPatient,
							Usage: "Return screenings only for the specified patient",
						},
					},
					Action: screeningList,
				},
				{
					Name:      "upload",
					Usage:     "Upload a blood smear image for analysis",
					ArgsUsage: "PATIENT_ID IMAGE_FILE",
					Flags: []cli.Flag{
						cliFlagOutput,
						&cli.StringFlag{
							Name:    flagNotes,
							Aliases: []string{"n"},
							Usage:   "Notes to keep with the screening",
						},
					},
					Action: screeningUpload,
				},
			},
		},
		{
			Name:  "stats",
			Usage: "Show today's screening statistics",
			Flags: []cli.Flag{
				cliFlagOutput,
			},
			Action: stats,
		},
		{
			Name:  "whoami",
			Usage: "Show who you are logged in as",
			Flags: []cli.Flag{
				cliFlagOutput,
			},
			Action: whoami,
		},
	}
	return app
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Println()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Printf("\n%s\n\n", err)
		os.Exit(1)
	}
	fmt.Println()
}
