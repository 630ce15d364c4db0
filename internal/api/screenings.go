package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type ScreeningResult string

const (
	ResultPositive     ScreeningResult = "P"
	ResultNegative     ScreeningResult = "N"
	ResultInconclusive ScreeningResult = "I"
)

func (r ScreeningResult) String() string {
	switch r {
	case ResultPositive:
		return "Positive"
	case ResultNegative:
		return "Negative"
	case ResultInconclusive:
		return "Inconclusive"
	}
	return string(r)
}

// PatientRef is the patient a screening belongs to. The list endpoints embed
// {id, first_name, last_name}; the upload endpoint returns the bare id.
type PatientRef struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (p *PatientRef) UnmarshalJSON(data []byte) error {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		*p = PatientRef{ID: id}
		return nil
	}
	type plain PatientRef
	return json.Unmarshal(data, (*plain)(p))
}

func (p PatientRef) Name() string {
	if p.FirstName == "" && p.LastName == "" {
		return fmt.Sprintf("#%d", p.ID)
	}
	return p.FirstName + " " + p.LastName
}

type Screening struct {
	ID            int64           `json:"id"`
	Patient       PatientRef      `json:"patient"`
	Image         string          `json:"image"`
	Result        ScreeningResult `json:"result"`
	ParasiteCount int             `json:"parasite_count"`
	Confidence    float64         `json:"confidence"`
	Notes         string          `json:"notes"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

type UploadRequest struct {
	PatientID int64
	Notes     string
	Filename  string
	Image     io.Reader
}

func (c *Client) ListScreenings(ctx context.Context) ([]Screening, error) {
	screenings := []Screening{}
	return screenings, c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    "screenings/screenings/",
			respObj: &screenings,
		},
	)
}

func (c *Client) GetScreening(ctx context.Context, id int64) (*Screening, error) {
	screening := &Screening{}
	return screening, c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    fmt.Sprintf("screenings/screenings/%d/", id),
			respObj: screening,
		},
	)
}

func (c *Client) ListPatientScreenings(
	ctx context.Context,
	patientID int64,
) ([]Screening, error) {
	screenings := []Screening{}
	return screenings, c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    fmt.Sprintf("screenings/screenings/patient/%d/", patientID),
			respObj: &screenings,
		},
	)
}

func (c *Client) DeleteScreening(ctx context.Context, id int64) error {
	return c.executeRequest(
		ctx,
		outboundRequest{
			method: http.MethodDelete,
			path:   fmt.Sprintf("screenings/screenings/%d/", id),
		},
	)
}

// UploadScreening submits a blood smear image for classification and returns
// the stored screening with the backend's result.
func (c *Client) UploadScreening(
	ctx context.Context,
	req UploadRequest,
) (*Screening, error) {
	if req.Image == nil {
		return nil, errors.New("an image is required")
	}
	filename := req.Filename
	if filename == "" {
		filename = "smear.png"
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return nil, errors.Wrap(err, "error creating image form part")
	}
	if _, err = io.Copy(part, req.Image); err != nil {
		return nil, errors.Wrap(err, "error reading image")
	}
	if err = form.WriteField("patient", strconv.FormatInt(req.PatientID, 10)); err != nil {
		return nil, errors.Wrap(err, "error writing patient field")
	}
	if err = form.WriteField("notes", req.Notes); err != nil {
		return nil, errors.Wrap(err, "error writing notes field")
	}
	if err = form.Close(); err != nil {
		return nil, errors.Wrap(err, "error closing multipart form")
	}

	screening := &Screening{}
	return screening, c.executeRequest(
		ctx,
		outboundRequest{
			method:      http.MethodPost,
			path:        "screenings/upload/",
			headers:     map[string]string{"Content-Type": form.FormDataContentType()},
			reqBodyObj:  body,
			successCode: http.StatusCreated,
			respObj:     screening,
		},
	)
}
