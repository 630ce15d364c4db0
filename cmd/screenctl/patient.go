package main

import (
	"fmt"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// idArg parses the single ID argument of a command.
func idArg(c *cli.Context, command string, noun string) (int64, error) {
	if c.Args().Len() != 1 {
		return 0, errors.Errorf("%s requires one argument-- a %s ID", command, noun)
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("%q is not a valid %s ID", c.Args().First(), noun)
	}
	return id, nil
}

func addPatientRows(table *uitable.Table, patients ...api.Patient) {
	table.AddRow("ID", "NAME", "GENDER", "BORN", "PHONE", "REGISTERED")
	for _, patient := range patients {
		table.AddRow(
			patient.ID,
			patient.FullName(),
			patient.Gender,
			patient.BirthDate,
			patient.Phone,
			formatTime(patient.CreatedAt),
		)
	}
}

func patientList(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("patient list requires no arguments")
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

	patients, err := client.ListPatients(c.Context)
	if err != nil {
		return err
	}

	if len(patients) == 0 {
		fmt.Fprintln(c.App.Writer, "No patients found.")
		return nil
	}

	return writeOutput(c.App.Writer, output, patients, func(table *uitable.Table) {
		addPatientRows(table, patients...)
	})
}

func patientGet(c *cli.Context) error {
	id, err := idArg(c, "patient get", "patient")
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

	patient, err := client.GetPatient(c.Context, id)
	if err != nil {
		if api.IsNotFound(err) {
			return errors.Errorf("patient %d was not found", id)
		}
		return err
	}

	return writeOutput(c.App.Writer, output, patient, func(table *uitable.Table) {
		addPatientRows(table, *patient)
	})
}

func patientCreate(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("patient create requires no arguments")
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

	patient, err := client.CreatePatient(c.Context, api.Patient{
		FirstName: c.String(flagFirstName),
		LastName:  c.String(flagLastName),
		Gender:    c.String(flagGender),
		BirthDate: c.String(flagBirthDate),
		Address:   c.String(flagAddress),
		Phone:     c.String(flagPhone),
	})
	if err != nil {
		return errors.Wrap(err, "error creating patient")
	}

	return writeOutput(c.App.Writer, output, patient, func(table *uitable.Table) {
		addPatientRows(table, *patient)
	})
}

func patientDelete(c *cli.Context) error {
	id, err := idArg(c, "patient delete", "patient")
	if err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	if err := client.DeletePatient(c.Context, id); err != nil {
		return errors.Wrapf(err, "error deleting patient %d", id)
	}

	fmt.Fprintf(c.App.Writer, "Patient %d deleted.\n", id)
	return nil
}

func patientUpdate(c *cli.Context) error {
	id, err := idArg(c, "patient update", "patient")
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

	patient, err := client.GetPatient(c.Context, id)
	if err != nil {
		if api.IsNotFound(err) {
			return errors.Errorf("patient %d was not found", id)
		}
		return err
	}

	// Only the flags that were given change, the rest is sent back as is
	for flag, field := range map[string]*string{
		flagFirstName: &patient.FirstName,
		flagLastName:  &patient.LastName,
		flagGender:    &patient.Gender,
		flagBirthDate: &patient.BirthDate,
		flagAddress:   &patient.Address,
		flagPhone:     &patient.Phone,
	} {
		if c.IsSet(flag) {
			*field = c.String(flag)
		}
	}

	updated, err := client.UpdatePatient(c.Context, *patient)
	if err != nil {
		return errors.Wrapf(err, "error updating patient %d", id)
	}

	return writeOutput(c.App.Writer, output, updated, func(table *uitable.Table) {
		addPatientRows(table, *updated)
	})
}
