package professional

import "context"

// Repository persists operator accounts. Create must fail with ErrEmailTaken
// when the email is already registered.
type Repository interface {
	Create(ctx context.Context, p *Professional) error
	GetByEmail(ctx context.Context, email string) (*Professional, error)
}
