package accesscontrol

import (
	"context"
	"fmt"

	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/config"
	"github.com/lachlan2k/malaria-dash/internal/session"
	"github.com/lachlan2k/malaria-dash/internal/utils"
)

func containsInt(s []int, val int) bool {
	for _, v := range s {
		if v == val {
			return true
		}
	}

	return false
}

// CheckAccess decides whether an authenticated backend user may use the
// dashboard. It never changes session state.
func CheckAccess(conf *config.Config, identity session.Identity) error {
	if !conf.AccessControl.AllowAllEmails {
		if !utils.TestStringAgainstSliceMatchers(conf.AccessControl.EmailAllowlist, identity.Email) {
			return fmt.Errorf("user was successfully auth'd (%s), but their email wasn't in the allow list", identity.Email)
		}
	}

	if len(conf.AccessControl.RequiredUserTypes) > 0 {
		if identity.UserType == 0 {
			return fmt.Errorf("user (%s) has no known user type", identity.Email)
		}
		if !containsInt(conf.AccessControl.RequiredUserTypes, int(identity.UserType)) {
			return fmt.Errorf("user (%s) is a %s, which isn't allowed to use the dashboard", identity.Email, identity.UserType)
		}
	}

	return nil
}

// UserTypeLookup asks the backend which kind of user is signed in.
type UserTypeLookup func(ctx context.Context) (api.UserType, error)

// CheckAccessWithLookup is CheckAccess for identities that may not carry a
// user type yet, which is the case straight after login. The type is looked
// up only when the config restricts user types, and the identity passed in is
// left as it was.
func CheckAccessWithLookup(
	ctx context.Context,
	conf *config.Config,
	identity session.Identity,
	lookup UserTypeLookup,
) error {
	if len(conf.AccessControl.RequiredUserTypes) > 0 && identity.UserType == 0 && lookup != nil {
		userType, err := lookup(ctx)
		if err != nil {
			return fmt.Errorf("couldn't look up the user type of %s: %w", identity.Email, err)
		}
		identity.UserType = userType
	}
	return CheckAccess(conf, identity)
}

// SafeRedirect returns target when it is a local path, otherwise fallback
func SafeRedirect(target string, fallback string) string {
	if utils.IsLocalPath(target) {
		return target
	}
	return fallback
}
