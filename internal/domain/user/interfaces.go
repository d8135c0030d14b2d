package user

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListIDsByRole(ctx context.Context, role Role) ([]string, error)
}

// AdminDirectory resolves the identities of all administrators.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]string, error)
}
