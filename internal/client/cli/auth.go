package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the sign-up fields and creates a new account. The
// profile row is materialized server-side; Register waits for it (bounded)
// before returning so the first 'whoami' after sign-up has data.
//
// The password byte slice is securely wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	name, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}

	accountType, err := getSimpleText(a.reader, "Account type (creator/member)", os.Stdout)
	if err != nil {
		return err
	}
	if accountType != "member" {
		accountType = "creator"
	}

	if err := a.session.SignUp(ctx, remote.SignUpInput{
		Email:       email,
		Password:    string(password),
		Name:        name,
		AccountType: accountType,
	}); err != nil {
		return err
	}

	printlnFn("Success!")
	return nil
}

// Login prompts for credentials and signs in. The session state change itself
// arrives through the auth event stream; by the time the next prompt renders
// the status line usually already shows the identity.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.SignIn(ctx, email, string(password)); err != nil {
		return err
	}

	printlnFn("Signed in.")
	return nil
}

// Logout signs out. The local identity is cleared even when the remote call
// fails; the error is still surfaced to the user.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	printlnFn("Signed out.")
	return nil
}
