// Package remote holds the per-entity repositories backed by the REST store.
// Every method expects the caller to carry the access token in ctx (the
// session guard does that).
package remote

import (
	"context"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
)

type TableRepository interface {
	List(ctx context.Context) ([]models.Table, error)
	Get(ctx context.Context, id uuid.UUID) (models.Table, error)
	Create(ctx context.Context, t models.NewTable) (models.Table, error)
	Update(ctx context.Context, id uuid.UUID, patch models.TablePatch) (models.Table, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, id uuid.UUID, name string) error
	RemoveMember(ctx context.Context, id uuid.UUID, name string) error
}

type CardRepository interface {
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Card, error)
	Create(ctx context.Context, c models.NewCard) (models.Card, error)
	Update(ctx context.Context, id uuid.UUID, patch models.CardPatch) (models.Card, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CommentRepository interface {
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]models.Comment, error)
	Create(ctx context.Context, c models.NewComment) (models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type NudgeRepository interface {
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Nudge, error)
	Create(ctx context.Context, n models.NewNudge) (models.Nudge, error)
}

type ReflectionRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Reflection, error)
	Create(ctx context.Context, r models.NewReflection) (models.Reflection, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ReflectionPatch) (models.Reflection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ShareRepository interface {
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.TableShare, error)
	Create(ctx context.Context, s models.NewTableShare) (models.TableShare, error)
	Delete(ctx context.Context, tableID, userID uuid.UUID) error
	FindUserByEmail(ctx context.Context, email string) (models.UserLookup, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, id uuid.UUID) (models.Profile, error)
	Create(ctx context.Context, p models.Profile) (models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ProfilePatch) (models.Profile, error)
	Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]models.Profile, error)
}

type NotificationRepository interface {
	ListUnprocessed(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	Insert(ctx context.Context, n models.NewNotification) error
}

// Repositories bundles every remote repository.
type Repositories struct {
	Tables        TableRepository
	Cards         CardRepository
	Comments      CommentRepository
	Nudges        NudgeRepository
	Reflections   ReflectionRepository
	Shares        ShareRepository
	Profiles      ProfileRepository
	Notifications NotificationRepository
}

// NewRepositories builds the REST implementations on one client.
func NewRepositories(c *rest.Client) *Repositories {
	return &Repositories{
		Tables:        NewRESTTableRepository(c),
		Cards:         NewRESTCardRepository(c),
		Comments:      NewRESTCommentRepository(c),
		Nudges:        NewRESTNudgeRepository(c),
		Reflections:   NewRESTReflectionRepository(c),
		Shares:        NewRESTShareRepository(c),
		Profiles:      NewRESTProfileRepository(c),
		Notifications: NewRESTNotificationRepository(c),
	}
}
