package service

import (
	"context"
	"errors"
	"fmt"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/pkg/validator"

	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// validate runs struct tags and reports the first failure the way handlers show it.
func validate(req any) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return apperror.NewValidation(fmt.Sprintf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag)).
			WithDetail("field", first.FailedField).
			WithDetail("tag", first.Tag)
	}
	return nil
}

// lookupErr maps a repository lookup failure to NotFound or Internal.
func lookupErr(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NewNotFound(entity, id)
	}
	return apperror.Wrap(err)
}

// unique ties a unique index to the field and value reported on violation.
type unique struct {
	constraint repository.Constraint
	field      string
	value      any
}

// writeErr maps an insert/update failure, turning violations of the given
// unique indexes into duplicate errors.
func writeErr(err error, entity string, uniques ...unique) error {
	for _, u := range uniques {
		if repository.IsUniqueViolation(err, u.constraint) {
			return apperror.NewDuplicate(entity, u.field, u.value)
		}
	}
	return apperror.Wrap(err)
}

type actorKey struct{}

// WithActor records who performs the operation; it ends up in created_by.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
