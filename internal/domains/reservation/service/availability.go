package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"hotelier/internal/domains/reservation/model"
	roomModel "hotelier/internal/domains/room/model"
	"hotelier/shared"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/shared/timezone"
)

// Overlaps reports whether the requested period collides with an occupied
// one. A stay may begin on another stay's release day, but a stay ending on
// an occupied accommodation day still collides: the occupied start is
// matched against the requested range inclusive of both ends.
// Boundaries are compared as calendar days: requests are parsed in the app
// timezone while DATE columns scan in the session location, so both sides
// are truncated to year/month/day in one location first.
func Overlaps(requested, occupied model.Period) bool {
	reqStart := dateOnly(requested.AccommodationDate)
	reqEnd := dateOnly(requested.ReleaseDate)
	occStart := dateOnly(occupied.AccommodationDate)
	occEnd := dateOnly(occupied.ReleaseDate)

	// occupied starts within the requested range, both ends inclusive
	if !occStart.Before(reqStart) && !occStart.After(reqEnd) {
		return true
	}

	// occupied ends within the requested range, start exclusive
	if occEnd.After(reqStart) && !occEnd.After(reqEnd) {
		return true
	}

	// requested fully covers occupied
	if !occStart.Before(reqStart) && !occEnd.After(reqEnd) {
		return true
	}

	// occupied fully covers requested
	if !occStart.After(reqStart) && !occEnd.Before(reqEnd) {
		return true
	}

	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AreDatesAcceptable validates a requested stay against the room's occupied
// periods: dates must be ordered, must not start in the past and must not
// overlap any existing stay.
func AreDatesAcceptable(requested model.Period, occupied []model.Period) error {
	if !requested.ReleaseDate.After(requested.AccommodationDate) {
		return failure.Validation("release date must be after accommodation date") // nolint:wrapcheck
	}

	if requested.AccommodationDate.Before(timezone.Today()) {
		return failure.Validation("accommodation date cannot be in the past") // nolint:wrapcheck
	}

	for _, period := range occupied {
		if Overlaps(requested, period) {
			return failure.Conflict("room is already reserved for the requested period") // nolint:wrapcheck
		}
	}

	return nil
}

// Available checks a room's availability for a requested period without
// reserving anything. Reads run outside a transaction, so the answer is only
// advisory: the create path revalidates under the room lock.
func (s *serviceImpl) Available(ctx context.Context, roomID, accommodationDate, releaseDate string) (available bool, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Available")
	defer scope.End()
	defer scope.TraceIfError(err)

	period, err := parseRequestedPeriod(accommodationDate, releaseDate)
	if err != nil {
		return false, err
	}

	exist, err := s.roomRepo.Exist(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check room existence")

		return false, fmt.Errorf("failed to check room existence: %w", err)
	}

	if !exist {
		return false, failure.NotFound("room not found") // nolint:wrapcheck
	}

	occupied, err := s.repo.Periods(ctx, nil, roomID, constant.Empty)
	if err != nil {
		log.Error().Err(err).Msg("failed to get occupied periods")

		return false, fmt.Errorf("failed to get occupied periods: %w", err)
	}

	if err := AreDatesAcceptable(period, occupied); err != nil {
		if failure.Is(err, http.StatusConflict) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func parseRequestedPeriod(accommodation, release string) (period model.Period, err error) {
	period.AccommodationDate, err = timezone.Parse(constant.DateOnlyFormat, accommodation)
	if err != nil {
		return period, failure.Validation("invalid accommodation date") // nolint:wrapcheck
	}

	period.ReleaseDate, err = timezone.Parse(constant.DateOnlyFormat, release)
	if err != nil {
		return period, failure.Validation("invalid release date") // nolint:wrapcheck
	}

	return period, nil
}
