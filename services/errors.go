package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/repositories"
)

// Общие ошибки, используемые в сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrEventNotFound   = errors.New("event not found")
	ErrBracketNotFound = errors.New("bracket not found")
	ErrMatchNotFound   = errors.New("match not found")

	// Недопустимое состояние
	ErrMatchInvalidState       = errors.New("operation not allowed in the current match state")
	ErrBracketsAlreadyBuilt    = errors.New("brackets already built for this event")
	ErrBracketAlreadyCompleted = errors.New("bracket placements already computed")

	// Нарушены предусловия
	ErrNoParticipants       = brackets.ErrNoParticipants
	ErrMatchesIncomplete    = brackets.ErrMatchesIncomplete
	ErrFinalNotResolved     = brackets.ErrFinalNotResolved
	ErrInvalidWinner        = errors.New("winner must be one of the match fighters")
	ErrMatchFightersMissing = errors.New("match does not have both fighters yet")
	ErrInvalidScore         = errors.New("scores must be non-negative")
	ErrValidationFailed     = errors.New("validation failed")

	// Ошибка хранилища
	ErrPersistence = errors.New("persistence failure")
)

var domainErrors = []error{
	ErrEventNotFound, ErrBracketNotFound, ErrMatchNotFound,
	ErrMatchInvalidState, ErrBracketsAlreadyBuilt, ErrBracketAlreadyCompleted,
	ErrNoParticipants, ErrMatchesIncomplete, ErrFinalNotResolved,
	ErrInvalidWinner, ErrMatchFightersMissing, ErrInvalidScore, ErrValidationFailed,
	ErrPersistence,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// translateRepositoryError maps repository sentinels onto service errors and
// wraps everything else as a persistence failure.
func translateRepositoryError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrBracketNotFound):
		return ErrBracketNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrBracketCategoryConflict):
		return fmt.Errorf("%w: %v", ErrBracketsAlreadyBuilt, err)
	case errors.Is(err, repositories.ErrResultConflict):
		return fmt.Errorf("%w: %v", ErrBracketAlreadyCompleted, err)
	}
	return persistenceError(op, err)
}
