package seed

import (
	"context"
	"errors"
	"fmt"

	"debtcrm/internal/store"
	"debtcrm/internal/utils"
	"debtcrm/pkg/types"
)

// This file is the source of truth for the development login accounts.
// IDs are fixed so the debtor seed can reference them.
//
// To generate new IDs: `go run ./cmd/debtcrm nanoid`
var seedUsers = []types.User{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "admin+seed@debtcrm.example.com", FullName: "Seed Admin", Role: types.RoleAdmin},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "grace.agent+seed@debtcrm.example.com", FullName: "Grace Njeri", Role: types.RoleAgent, Phone: utils.StringPtr("+254700100001")},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "daniel.agent+seed@debtcrm.example.com", FullName: "Daniel Kiprop", Role: types.RoleAgent, Phone: utils.StringPtr("+254700100002")},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "lucy.agent+seed@debtcrm.example.com", FullName: "Lucy Achieng", Role: types.RoleAgent, Phone: utils.StringPtr("+254700100003")},
	{ID: "55555555-5555-5555-5555-555555555555", Email: "billing+seed@acmelending.example.com", FullName: "Acme Lending", Role: types.RoleClient},
	{ID: "66666666-6666-6666-6666-666666666666", Email: "accounts+seed@betacredit.example.com", FullName: "Beta Credit", Role: types.RoleClient},
}

func seedAgentIDs() []string {
	ids := make([]string, 0, len(seedUsers))
	for _, user := range seedUsers {
		if user.Role == types.RoleAgent {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

func seedClients() []types.User {
	var clients []types.User
	for _, user := range seedUsers {
		if user.Role == types.RoleClient {
			clients = append(clients, user)
		}
	}
	return clients
}

func SeedUsers(ctx context.Context, userRepo *store.UserRepository) error {
	created := 0
	for _, seedUser := range seedUsers {
		_, err := userRepo.User(ctx, seedUser.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrUserNotFound) {
			return fmt.Errorf("failed to fetch seed user %s: %w", seedUser.ID, err)
		}

		newUser := seedUser
		if err := userRepo.CreateUser(ctx, &newUser); err != nil {
			return fmt.Errorf("failed to create seed user %s: %w", seedUser.ID, err)
		}
		created++
	}

	fmt.Printf("Seed users: %d created, %d already present\n", created, len(seedUsers)-created)
	return nil
}
