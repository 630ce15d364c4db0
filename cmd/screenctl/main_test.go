package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gosuri/uitable"
	"github.com/lachlan2k/malaria-dash/internal/session"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "worker@clinic.org"
	testPassword = "secret"
	testToken    = "tok123"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authed := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"Given token not valid for any token type"}`)
			return false
		}
		return true
	}

	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"No active account found with the given credentials"}`)
			return
		}
		fmt.Fprintf(w, `{"access":%q,"refresh":"r"}`, testToken)
	})
	mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		if authed(w, r) {
			fmt.Fprintf(w, `{"email":%q,"user_type":3}`, testEmail)
		}
	})
	mux.HandleFunc("/patients/", func(w http.ResponseWriter, r *http.Request) {
		if authed(w, r) {
			fmt.Fprint(w, `[{"id":1,"first_name":"Amina","last_name":"Okafor","gender":"F"}]`)
		}
	})
	mux.HandleFunc("/patients/1/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		patient := `{"id":1,"first_name":"Amina","last_name":"Okafor","gender":"F","birth_date":"1990-04-02","phone":"0700"}`
		if r.Method == http.MethodPut {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			out, err := json.Marshal(body)
			require.NoError(t, err)
			patient = string(out)
		}
		fmt.Fprint(w, patient)
	})
	mux.HandleFunc("/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Empty(t, r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == testEmail {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"email":["user with this email already exists."]}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":4,"email":%q,"user_type":%v,"phone":%q}`, body["email"], body["user_type"], body["phone"])
	})
	mux.HandleFunc("/screenings/upload/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "1", r.FormValue("patient"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":9,"patient":1,"result":"N","confidence":0.88}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type harness struct {
	server      string
	credentials string
	out         *bytes.Buffer
	in          *strings.Reader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		server:      newBackend(t).URL,
		credentials: filepath.Join(t.TempDir(), "credentials"),
		out:         &bytes.Buffer{},
		in:          strings.NewReader(""),
	}
}

func (h *harness) run(args ...string) error {
	app := newApp()
	app.Writer = h.out
	app.ErrWriter = h.out
	app.Reader = h.in
	h.out.Reset()
	full := append(
		[]string{"screenctl", "--server", h.server, "--credentials", h.credentials},
		args...,
	)
	return app.RunContext(context.Background(), full)
}

func TestValidateOutputFormat(t *testing.T) {
	for _, format := range []string{"table", "JSON", "yaml"} {
		require.NoError(t, validateOutputFormat(format))
	}
	require.Error(t, validateOutputFormat("xml"))
}

func TestWriteOutput(t *testing.T) {
	obj := map[string]int{"today_cases": 4}

	out := &bytes.Buffer{}
	require.NoError(t, writeOutput(out, "json", obj, nil))
	require.JSONEq(t, `{"today_cases":4}`, out.String())

	out.Reset()
	require.NoError(t, writeOutput(out, "yaml", obj, nil))
	require.Equal(t, "today_cases: 4\n\n", out.String())

	out.Reset()
	require.NoError(t, writeOutput(out, "table", obj, func(table *uitable.Table) {
		table.AddRow("CASES", 4)
	}))
	require.Contains(t, out.String(), "CASES")
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)

	err := h.run("patient", "list")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	require.Contains(t, err.Error(), "screenctl login")
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("login", "-e", testEmail, "-p", testPassword))
	require.Contains(t, h.out.String(), "Logged in as "+testEmail+" (Field Worker).")

	info, err := os.Stat(h.credentials)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, h.run("whoami", "-o", "json"))
	var identity session.Identity
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &identity))
	require.Equal(t, testEmail, identity.Email)

	require.NoError(t, h.run("patient", "list"))
	require.Contains(t, h.out.String(), "Amina Okafor")

	require.NoError(t, h.run("logout"))
	require.Contains(t, h.out.String(), "Logout was successful.")
	_, err = os.Stat(h.credentials)
	require.True(t, os.IsNotExist(err))

	require.ErrorIs(t, h.run("whoami"), session.ErrNotAuthenticated)
}

func TestLoginPromptsForCredentials(t *testing.T) {
	h := newHarness(t)
	h.in = strings.NewReader(testEmail + "\n" + testPassword + "\n")

	require.NoError(t, h.run("login"))
	require.Contains(t, h.out.String(), "Email: ")
	require.Contains(t, h.out.String(), "Password: ")
	require.Contains(t, h.out.String(), "Logged in as "+testEmail)
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	h := newHarness(t)

	err := h.run("login", "-e", testEmail, "-p", "wrong")
	require.EqualError(t, err, "No active account found with the given credentials")
	_, statErr := os.Stat(h.credentials)
	require.True(t, os.IsNotExist(statErr))
}

func TestRejectedTokenIsCleared(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.credentials, []byte(`{"access_token":"expired"}`), 0600))

	require.ErrorIs(t, h.run("patient", "list"), session.ErrNotAuthenticated)
	_, err := os.Stat(h.credentials)
	require.True(t, os.IsNotExist(err))
}

func TestScreeningUpload(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("login", "-e", testEmail, "-p", testPassword))

	image := filepath.Join(t.TempDir(), "smear.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0600))

	require.NoError(t, h.run("screening", "upload", "-n", "follow-up", "1", image))
	require.Contains(t, h.out.String(), "No Malaria Detected (Negative)")
	require.Contains(t, h.out.String(), "88.0%")

	require.Error(t, h.run("screening", "upload", "abc", image))
}

func TestPatientUpdateChangesOnlyGivenFields(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("login", "-e", testEmail, "-p", testPassword))

	require.NoError(t, h.run("patient", "update", "--phone", "0711", "-o", "json", "1"))
	var patient map[string]interface{}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &patient))
	require.Equal(t, "0711", patient["phone"])
	require.Equal(t, "Amina", patient["first_name"])
	require.Equal(t, "1990-04-02", patient["birth_date"])

	require.Error(t, h.run("patient", "update", "abc"))
}

func TestPatientUpdateRequiresLogin(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.run("patient", "update", "--phone", "0711", "1"), session.ErrNotAuthenticated)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	h.in = strings.NewReader("hunter2\n")

	require.NoError(t, h.run("register", "-e", "new@clinic.org", "--user-type", "2", "--phone", "0700"))
	require.Contains(t, h.out.String(), "Password: ")
	require.Contains(t, h.out.String(), "Registered new@clinic.org (Clinician).")

	// Registering doesn't log in.
	_, err := os.Stat(h.credentials)
	require.True(t, os.IsNotExist(err))
}

func TestRegisterFailures(t *testing.T) {
	h := newHarness(t)

	err := h.run("register", "-e", testEmail, "-p", "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "user with this email already exists.")

	require.Error(t, h.run("register", "-e", "new@clinic.org", "-p", "x", "--user-type", "7"))
}
