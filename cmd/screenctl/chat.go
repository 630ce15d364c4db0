package main

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func addChatRows(table *uitable.Table, messages ...api.ChatMessage) {
	table.AddRow("ID", "QUESTION", "ANSWER", "ASKED")
	for _, message := range messages {
		table.AddRow(
			message.ID,
			message.Query,
			message.Response,
			formatTime(message.CreatedAt),
		)
	}
}

func chatList(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("chat list requires no arguments")
	}

	// Command-specific flags
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	messages, err := client.ListChatMessages(c.Context)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Fprintln(c.App.Writer, "No messages found.")
		return nil
	}

	return writeOutput(c.App.Writer, output, messages, func(table *uitable.Table) {
		addChatRows(table, messages...)
	})
}

func chatSend(c *cli.Context) error {
	// Args
	if c.Args().Len() == 0 {
		return errors.New("chat send requires one argument-- a question")
	}
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("the question can't be empty")
	}

	// Command-specific flags
	output := c.String(flagOutput)
	lang := c.String(flagLang)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	message, err := client.SendChatMessage(c.Context, query, lang)
	if err != nil {
		return errors.Wrap(err, "error sending message")
	}

	if strings.ToLower(output) == outputTable {
		fmt.Fprintln(c.App.Writer, message.Response)
		for _, u := range message.SearchURLs {
			fmt.Fprintf(c.App.Writer, "  - %s\n", u)
		}
		return nil
	}
	return writeOutput(c.App.Writer, output, message, nil)
}

func chatDelete(c *cli.Context) error {
	id, err := idArg(c, "chat delete", "message")
	if err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	if err := client.DeleteChatMessage(c.Context, id); err != nil {
		return errors.Wrapf(err, "error deleting message %d", id)
	}

	fmt.Fprintf(c.App.Writer, "Message %d deleted.\n", id)
	return nil
}
