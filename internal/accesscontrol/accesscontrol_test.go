package accesscontrol

import (
	"context"
	"errors"
	"testing"

	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/config"
	"github.com/lachlan2k/malaria-dash/internal/session"
	"github.com/stretchr/testify/require"
)

func TestCheckAccessAllowAll(t *testing.T) {
	conf := &config.Config{}
	conf.AccessControl.AllowAllEmails = true
	require.NoError(t, CheckAccess(conf, session.Identity{Email: "anyone@x.com"}))
}

func TestCheckAccessAllowlist(t *testing.T) {
	conf := &config.Config{}
	conf.AccessControl.EmailAllowlist = []string{"*@clinic.org", "boss@hq.org"}

	require.NoError(t, CheckAccess(conf, session.Identity{Email: "nurse@clinic.org"}))
	require.NoError(t, CheckAccess(conf, session.Identity{Email: "boss@hq.org"}))
	require.Error(t, CheckAccess(conf, session.Identity{Email: "someone@else.org"}))
}

func TestCheckAccessUserTypes(t *testing.T) {
	conf := &config.Config{}
	conf.AccessControl.AllowAllEmails = true
	conf.AccessControl.RequiredUserTypes = []int{1, 2}

	require.NoError(t, CheckAccess(conf, session.Identity{Email: "a@b.com", UserType: api.UserTypeClinician}))
	require.Error(t, CheckAccess(conf, session.Identity{Email: "a@b.com", UserType: api.UserTypeFieldWorker}))
	require.Error(t, CheckAccess(conf, session.Identity{Email: "a@b.com"}))
}

func TestCheckAccessLooksUpMissingUserType(t *testing.T) {
	conf := &config.Config{}
	conf.AccessControl.AllowAllEmails = true
	conf.AccessControl.RequiredUserTypes = []int{1}

	lookups := 0
	lookup := func(userType api.UserType, err error) UserTypeLookup {
		return func(context.Context) (api.UserType, error) {
			lookups++
			return userType, err
		}
	}
	fresh := session.Identity{Email: "a@b.com"}

	require.Error(t, CheckAccessWithLookup(context.Background(), conf, fresh, lookup(api.UserTypeClinician, nil)))
	require.NoError(t, CheckAccessWithLookup(context.Background(), conf, fresh, lookup(api.UserTypeAdmin, nil)))
	require.Error(t, CheckAccessWithLookup(context.Background(), conf, fresh, lookup(0, errors.New("backend down"))))
	require.Error(t, CheckAccessWithLookup(context.Background(), conf, fresh, nil))
	require.Equal(t, 3, lookups)
	require.Zero(t, fresh.UserType)

	// A known type is never looked up again.
	known := session.Identity{Email: "a@b.com", UserType: api.UserTypeAdmin}
	require.NoError(t, CheckAccessWithLookup(context.Background(), conf, known, lookup(api.UserTypeClinician, nil)))
	require.Equal(t, 3, lookups)

	// Nor when no user type is required.
	conf.AccessControl.RequiredUserTypes = nil
	require.NoError(t, CheckAccessWithLookup(context.Background(), conf, fresh, lookup(api.UserTypeClinician, nil)))
	require.Equal(t, 3, lookups)
}

func TestSafeRedirect(t *testing.T) {
	require.Equal(t, "/dashboard/patients", SafeRedirect("/dashboard/patients", "/dashboard"))
	require.Equal(t, "/dashboard", SafeRedirect("https://evil.example.org", "/dashboard"))
	require.Equal(t, "/dashboard", SafeRedirect("", "/dashboard"))
}
