package session

import "errors"

var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrEmailInUse        = errors.New("email already in use")
	ErrWeakPassword      = errors.New("password is too weak")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrSignInInProgress  = errors.New("sign-in already in progress")
	ErrInvalidRole       = errors.New("unknown role")
	ErrClosed            = errors.New("session manager is closed")
)

const genericFailure = "An unexpected error occurred. Please try again."

// Describe returns the notice shown to a user for an identity failure.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid email or password. Please check your credentials or sign up."
	case errors.Is(err, ErrEmailInUse):
		return "This email is already in use. Please try logging in."
	case errors.Is(err, ErrWeakPassword):
		return "The password is too weak. Please choose a stronger password."
	case errors.Is(err, ErrNotAuthenticated):
		return "Please log in to continue."
	case errors.Is(err, ErrInvalidRole):
		return "Please choose either the applicant or the recruiter role."
	}
	return genericFailure
}
