package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	GenderMale   = "M"
	GenderFemale = "F"
)

type Patient struct {
	ID        int64      `json:"id,omitempty"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Gender    string     `json:"gender"`
	BirthDate string     `json:"birth_date"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone"`
	CreatedBy int64      `json:"created_by,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

func (c *Client) ListPatients(ctx context.Context) ([]Patient, error) {
	patients := []Patient{}
	return patients, c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    "patients/",
			respObj: &patients,
		},
	)
}

func (c *Client) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	patient := &Patient{}
	return patient, c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    fmt.Sprintf("patients/%d/", id),
			respObj: patient,
		},
	)
}

func (c *Client) CreatePatient(ctx context.Context, patient Patient) (*Patient, error) {
	created := &Patient{}
	return created, c.executeRequest(
		ctx,
		outboundRequest{
			method:      http.MethodPost,
			path:        "patients/",
			reqBodyObj:  patient,
			successCode: http.StatusCreated,
			respObj:     created,
		},
	)
}

func (c *Client) UpdatePatient(ctx context.Context, patient Patient) (*Patient, error) {
	updated := &Patient{}
	if err := c.executeRequest(
		ctx,
		outboundRequest{
			method:     http.MethodPut,
			path:       fmt.Sprintf("patients/%d/", patient.ID),
			reqBodyObj: patient,
			respObj:    updated,
		},
	); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) DeletePatient(ctx context.Context, id int64) error {
	return c.executeRequest(
		ctx,
		outboundRequest{
			method: http.MethodDelete,
			path:   fmt.Sprintf("patients/%d/", id),
		},
	)
}
