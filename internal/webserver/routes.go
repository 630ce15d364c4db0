package webserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lachlan2k/malaria-dash/internal/accesscontrol"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/guard"
	"github.com/lachlan2k/malaria-dash/internal/session"
)

const (
	dashboardPath     = "/dashboard"
	loginFailedReason = "Login failed. Please check your credentials."
)

type loginData struct {
	Email string
	Redir string
}

type dashboardData struct {
	Stats *api.DashboardStats
}

type patientForm struct {
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Gender    string `form:"gender"`
	BirthDate string `form:"birth_date"`
	Address   string `form:"address"`
	Phone     string `form:"phone"`
}

func (f patientForm) patient() api.Patient {
	return api.Patient{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Gender:    f.Gender,
		BirthDate: f.BirthDate,
		Address:   strings.TrimSpace(f.Address),
		Phone:     strings.TrimSpace(f.Phone),
	}
}

type patientsData struct {
	Patients    []api.Patient
	Form        patientForm
	FieldErrors map[string]string
}

type uploadResult struct {
	Message   string
	Screening *api.Screening
}

type patientData struct {
	Patient    *api.Patient
	Screenings []api.Screening
	Upload     *uploadResult
}

type screeningsData struct {
	Screenings []api.Screening
}

type chatbotData struct {
	Messages []api.ChatMessage
	Query    string
}

func (w *Webserver) newPage(c echo.Context, title string, active string) page {
	identity := guard.IdentityFromContext(c)
	return page{
		Title:  title,
		Active: active,
		User:   &identity,
	}
}

func (w *Webserver) loginPageHandler(c echo.Context) error {
	store, err := w.storeFor(c)
	if err != nil {
		return err
	}

	redir := c.QueryParam("redir")
	if store.Snapshot().State() == session.Authenticated {
		return c.Redirect(http.StatusFound, accesscontrol.SafeRedirect(redir, dashboardPath))
	}

	return c.Render(http.StatusOK, "login", page{
		Title: "Log in",
		Data:  loginData{Redir: redir},
	})
}

func (w *Webserver) loginSubmitHandler(c echo.Context) error {
	logger := c.Echo().Logger

	store, err := w.storeFor(c)
	if err != nil {
		return err
	}

	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	redir := c.FormValue("redir")

	// Login isn't abandoned if the browser goes away mid-request
	ctx := context.WithoutCancel(c.Request().Context())

	if _, err := store.Login(ctx, email, password); err != nil {
		logger.Infof("Login failed for %s: %v", email, err)
		return c.Render(http.StatusOK, "login", page{
			Title: "Log in",
			Error: api.ErrorMessage(err, loginFailedReason),
			Data:  loginData{Email: email, Redir: redir},
		})
	}

	logger.Infof("%s logged in", email)
	return c.Redirect(http.StatusSeeOther, accesscontrol.SafeRedirect(redir, dashboardPath))
}

func (w *Webserver) logoutHandler(c echo.Context) error {
	store, err := w.storeFor(c)
	if err != nil {
		return err
	}

	if err := store.Logout(c.Request().Context()); err != nil {
		c.Echo().Logger.Errorf("Couldn't log client out: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Couldn't log you out")
	}

	return c.Redirect(http.StatusSeeOther, "/login")
}

func (w *Webserver) dashboardHandler(c echo.Context) error {
	p := w.newPage(c, "Dashboard", "dashboard")

	stats, err := w.apiFor(c).DashboardStats(c.Request().Context())
	if err != nil {
		p.Error = "Failed to load statistics: " + api.ErrorMessage(err, err.Error())
		stats = nil
	}
	p.Data = dashboardData{Stats: stats}

	return c.Render(http.StatusOK, "dashboard", p)
}

func (w *Webserver) patientsHandler(c echo.Context) error {
	return w.renderPatients(c, patientForm{}, nil, "")
}

func (w *Webserver) renderPatients(
	c echo.Context,
	form patientForm,
	fieldErrors map[string]string,
	errMessage string,
) error {
	p := w.newPage(c, "Patients", "patients")
	p.Error = errMessage

	patients, err := w.apiFor(c).ListPatients(c.Request().Context())
	if err != nil && p.Error == "" {
		p.Error = "Failed to load patients: " + api.ErrorMessage(err, err.Error())
	}
	p.Data = patientsData{
		Patients:    patients,
		Form:        form,
		FieldErrors: fieldErrors,
	}

	return c.Render(http.StatusOK, "patients", p)
}

func (w *Webserver) createPatientHandler(c echo.Context) error {
	var form patientForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid patient form")
	}

	_, err := w.apiFor(c).CreatePatient(c.Request().Context(), form.patient())
	if err != nil {
		fieldErrors := map[string]string{}
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			for field := range apiErr.Fields {
				fieldErrors[field] = apiErr.FieldError(field)
			}
		}
		return w.renderPatients(c, form, fieldErrors, api.ErrorMessage(err, "Failed to create patient"))
	}

	return c.Redirect(http.StatusSeeOther, dashboardPath+"/patients")
}

func (w *Webserver) patientHandler(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	return w.renderPatient(c, id, nil, "")
}

func (w *Webserver) renderPatient(c echo.Context, id int64, upload *uploadResult, errMessage string) error {
	client := w.apiFor(c)
	ctx := c.Request().Context()

	patient, err := client.GetPatient(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to load patient: "+api.ErrorMessage(err, err.Error()))
	}

	p := w.newPage(c, patient.FullName(), "patients")
	p.Error = errMessage

	screenings, err := client.ListPatientScreenings(ctx, id)
	if err != nil && p.Error == "" {
		p.Error = "Failed to load screenings: " + api.ErrorMessage(err, err.Error())
	}
	p.Data = patientData{
		Patient:    patient,
		Screenings: screenings,
		Upload:     upload,
	}

	return c.Render(http.StatusOK, "patient", p)
}

func (w *Webserver) deletePatientHandler(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := w.apiFor(c).DeletePatient(c.Request().Context(), id); err != nil {
		return w.renderPatient(c, id, nil, "Failed to delete patient: "+api.ErrorMessage(err, err.Error()))
	}

	return c.Redirect(http.StatusSeeOther, dashboardPath+"/patients")
}

func (w *Webserver) uploadScreeningHandler(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return w.renderPatient(c, id, nil, "Please choose a blood smear image to upload")
	}
	image, err := fileHeader.Open()
	if err != nil {
		return w.renderPatient(c, id, nil, "Couldn't read the uploaded image")
	}
	defer image.Close()

	screening, err := w.apiFor(c).UploadScreening(c.Request().Context(), api.UploadRequest{
		PatientID: id,
		Notes:     c.FormValue("notes"),
		Filename:  fileHeader.Filename,
		Image:     image,
	})
	if err != nil {
		return w.renderPatient(c, id, nil, "Upload failed: "+api.ErrorMessage(err, err.Error()))
	}

	return w.renderPatient(c, id, describeResult(screening), "")
}

func describeResult(screening *api.Screening) *uploadResult {
	result := &uploadResult{Screening: screening}
	switch screening.Result {
	case api.ResultPositive:
		result.Message = "⚠ Malaria Detected (Positive)"
	case api.ResultNegative:
		result.Message = "✅ No Malaria Detected (Negative)"
	default:
		result.Message = "Result unclear, please review."
	}
	return result
}

func (w *Webserver) screeningsHandler(c echo.Context) error {
	p := w.newPage(c, "Screenings", "screenings")

	screenings, err := w.apiFor(c).ListScreenings(c.Request().Context())
	if err != nil {
		p.Error = "Failed to load screenings: " + api.ErrorMessage(err, err.Error())
	}
	p.Data = screeningsData{Screenings: screenings}

	return c.Render(http.StatusOK, "screenings", p)
}

func (w *Webserver) deleteScreeningHandler(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := w.apiFor(c).DeleteScreening(c.Request().Context(), id); err != nil {
		c.Echo().Logger.Warnf("Couldn't delete screening %d: %v", id, err)
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to delete screening: "+api.ErrorMessage(err, err.Error()))
	}

	return c.Redirect(http.StatusSeeOther, dashboardPath+"/screenings")
}

func (w *Webserver) chatbotHandler(c echo.Context) error {
	return w.renderChatbot(c, "", "")
}

func (w *Webserver) renderChatbot(c echo.Context, query string, errMessage string) error {
	p := w.newPage(c, "Malaria Chatbot", "chatbot")
	p.Error = errMessage

	messages, err := w.apiFor(c).ListChatMessages(c.Request().Context())
	if err != nil && p.Error == "" {
		p.Error = "Failed to load messages: " + api.ErrorMessage(err, err.Error())
	}
	p.Data = chatbotData{Messages: messages, Query: query}

	return c.Render(http.StatusOK, "chatbot", p)
}

func (w *Webserver) sendChatHandler(c echo.Context) error {
	query := strings.TrimSpace(c.FormValue("query"))
	if query == "" {
		return c.Redirect(http.StatusSeeOther, dashboardPath+"/chatbot")
	}

	if _, err := w.apiFor(c).SendChatMessage(c.Request().Context(), query, c.FormValue("lang")); err != nil {
		return w.renderChatbot(c, query, "Error: "+api.ErrorMessage(err, err.Error()))
	}

	return c.Redirect(http.StatusSeeOther, dashboardPath+"/chatbot")
}

func (w *Webserver) deleteChatHandler(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := w.apiFor(c).DeleteChatMessage(c.Request().Context(), id); err != nil {
		return w.renderChatbot(c, "", "Failed to delete message.")
	}

	return c.Redirect(http.StatusSeeOther, dashboardPath+"/chatbot")
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	return id, nil
}
