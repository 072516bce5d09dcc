package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DemoUser is a seeded identity available through the mock login endpoints.
type DemoUser struct {
	Email string
	Name  string
}

// DemoUsers lists the identities seeded into a fresh in-memory deployment.
var DemoUsers = []DemoUser{
	{Email: "jan.novacek@example.sk", Name: "Ján Nováček"},
	{Email: "petra.ambroz@example.sk", Name: "Petra Ambroz"},
	{Email: "andres.elgueta@tekmain.cl", Name: "Andres Elgueta"},
}

const demoPassword = "demo-password-1"

// SeedDemoUsers inserts the demo identities, skipping any that already exist.
// It returns the users keyed by email.
func SeedDemoUsers(ctx context.Context, repo Repository) (map[string]User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("auth: seed hash: %w", err)
	}

	users := make(map[string]User, len(DemoUsers))
	for _, d := range DemoUsers {
		user, err := repo.CreateUser(ctx, CreateUserParams{
			Email:        d.Email,
			Name:         d.Name,
			PasswordHash: string(hash),
		})
		if errors.Is(err, ErrDuplicateEmail) {
			existing, getErr := repo.GetUserByEmail(ctx, d.Email)
			if getErr != nil {
				return nil, getErr
			}
			user = existing
		} else if err != nil {
			return nil, err
		}
		users[user.Email] = user
	}
	return users, nil
}
