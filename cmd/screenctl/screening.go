package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func addScreeningRows(table *uitable.Table, screenings ...api.Screening) {
	table.AddRow("ID", "PATIENT", "RESULT", "CONFIDENCE", "PARASITES", "NOTES", "TAKEN")
	for _, screening := range screenings {
		table.AddRow(
			screening.ID,
			screening.Patient.Name(),
			screening.Result,
			fmt.Sprintf("%.1f%%", screening.Confidence*100),
			screening.ParasiteCount,
			screening.Notes,
			formatTime(screening.CreatedAt),
		)
	}
}

func resultMessage(result api.ScreeningResult) string {
	switch result {
	case api.ResultPositive:
		return "⚠ Malaria Detected (Positive)"
	case api.ResultNegative:
		return "✅ No Malaria Detected (Negative)"
	}
	return "Result unclear, please review."
}

func screeningList(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("screening list requires no arguments")
	}

	// Command-specific flags
	output := c.String(flagOutput)
	patientID := c.Int64(flagPatient)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	var screenings []api.Screening
	if patientID > 0 {
		screenings, err = client.ListPatientScreenings(c.Context, patientID)
	} else {
		screenings, err = client.ListScreenings(c.Context)
	}
	if err != nil {
		return err
	}

	if len(screenings) == 0 {
		fmt.Fprintln(c.App.Writer, "No screenings found.")
		return nil
	}

	return writeOutput(c.App.Writer, output, screenings, func(table *uitable.Table) {
		addScreeningRows(table, screenings...)
	})
}

func screeningGet(c *cli.Context) error {
	id, err := idArg(c, "screening get", "screening")
	if err != nil {
		return err
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

	screening, err := client.GetScreening(c.Context, id)
	if err != nil {
		if api.IsNotFound(err) {
			return errors.Errorf("screening %d was not found", id)
		}
		return err
	}

	return writeOutput(c.App.Writer, output, screening, func(table *uitable.Table) {
		addScreeningRows(table, *screening)
	})
}

func screeningUpload(c *cli.Context) error {
	// Args
	if c.Args().Len() != 2 {
		return errors.New(
			"screening upload requires two arguments-- a patient ID and an image file",
		)
	}
	patientID, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
	if err != nil || patientID <= 0 {
		return errors.Errorf("%q is not a valid patient ID", c.Args().Get(0))
	}
	imagePath := c.Args().Get(1)

	// Command-specific flags
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	image, err := os.Open(imagePath)
	if err != nil {
		return errors.Wrapf(err, "error opening image %s", imagePath)
	}
	defer image.Close()

	screening, err := client.UploadScreening(c.Context, api.UploadRequest{
		PatientID: patientID,
		Notes:     c.String(flagNotes),
		Filename:  filepath.Base(imagePath),
		Image:     image,
	})
	if err != nil {
		return errors.Wrap(err, "error uploading screening")
	}

	return writeOutput(c.App.Writer, output, screening, func(table *uitable.Table) {
		table.AddRow(resultMessage(screening.Result))
		table.AddRow(fmt.Sprintf("Confidence: %.1f%%", screening.Confidence*100))
		table.AddRow("")
		addScreeningRows(table, *screening)
	})
}

func screeningDelete(c *cli.Context) error {
	id, err := idArg(c, "screening delete", "screening")
	if err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	if err := client.DeleteScreening(c.Context, id); err != nil {
		return errors.Wrapf(err, "error deleting screening %d", id)
	}

	fmt.Fprintf(c.App.Writer, "Screening %d deleted.\n", id)
	return nil
}
