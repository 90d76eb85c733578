package service_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hotelier/internal/domains/reservation/model"
	"hotelier/internal/domains/reservation/service"
	"hotelier/shared/failure"
	"hotelier/shared/timezone"
)

func period(start, end time.Time) model.Period {
	return model.Period{AccommodationDate: start, ReleaseDate: end}
}

func TestOverlaps(t *testing.T) {
	base := timezone.Today().AddDate(0, 1, 0)

	occupied := period(base.AddDate(0, 0, 10), base.AddDate(0, 0, 15))

	tests := []struct {
		name      string
		requested model.Period
		want      bool
	}{
		{
			name:      "identical period",
			requested: period(base.AddDate(0, 0, 10), base.AddDate(0, 0, 15)),
			want:      true,
		},
		{
			name:      "fully inside",
			requested: period(base.AddDate(0, 0, 11), base.AddDate(0, 0, 13)),
			want:      true,
		},
		{
			name:      "straddles start",
			requested: period(base.AddDate(0, 0, 8), base.AddDate(0, 0, 12)),
			want:      true,
		},
		{
			name:      "straddles end",
			requested: period(base.AddDate(0, 0, 13), base.AddDate(0, 0, 18)),
			want:      true,
		},
		{
			name:      "encloses occupied",
			requested: period(base.AddDate(0, 0, 8), base.AddDate(0, 0, 18)),
			want:      true,
		},
		{
			// the occupied start day counts against the requested range
			name:      "ends on accommodation day",
			requested: period(base.AddDate(0, 0, 5), base.AddDate(0, 0, 10)),
			want:      true,
		},
		{
			name:      "starts on release day",
			requested: period(base.AddDate(0, 0, 15), base.AddDate(0, 0, 20)),
			want:      false,
		},
		{
			name:      "entirely before",
			requested: period(base.AddDate(0, 0, 1), base.AddDate(0, 0, 5)),
			want:      false,
		},
		{
			name:      "entirely after",
			requested: period(base.AddDate(0, 0, 20), base.AddDate(0, 0, 25)),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.Overlaps(tt.requested, occupied))
		})
	}
}

func TestOverlapsMixedLocations(t *testing.T) {
	// requests parse in the app timezone while DATE columns scan at the
	// session location; the predicate must compare calendar days, not instants
	sofia := time.FixedZone("EET", 3*60*60)

	midnight := func(loc *time.Location, day int) time.Time {
		return time.Date(2027, 7, day, 0, 0, 0, 0, loc)
	}

	occupied := period(midnight(time.UTC, 3), midnight(time.UTC, 7))

	tests := []struct {
		name      string
		requested model.Period
		want      bool
	}{
		{
			name:      "back to back across locations",
			requested: period(midnight(sofia, 7), midnight(sofia, 9)),
			want:      false,
		},
		{
			name:      "straddling end across locations",
			requested: period(midnight(sofia, 5), midnight(sofia, 8)),
			want:      true,
		},
		{
			name:      "ends on accommodation day across locations",
			requested: period(midnight(sofia, 1), midnight(sofia, 3)),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.Overlaps(tt.requested, occupied))
		})
	}
}

func TestAreDatesAcceptable(t *testing.T) {
	today := timezone.Today()

	occupied := []model.Period{
		period(today.AddDate(0, 0, 10), today.AddDate(0, 0, 15)),
	}

	tests := []struct {
		name      string
		requested model.Period
		wantErr   bool
		wantCode  int
	}{
		{
			name:      "valid future stay",
			requested: period(today.AddDate(0, 0, 1), today.AddDate(0, 0, 5)),
			wantErr:   false,
		},
		{
			name:      "starting today is allowed",
			requested: period(today, today.AddDate(0, 0, 3)),
			wantErr:   false,
		},
		{
			name:      "release before accommodation",
			requested: period(today.AddDate(0, 0, 5), today.AddDate(0, 0, 1)),
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "zero nights",
			requested: period(today.AddDate(0, 0, 5), today.AddDate(0, 0, 5)),
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "starts in the past",
			requested: period(today.AddDate(0, 0, -1), today.AddDate(0, 0, 3)),
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "overlaps an existing stay",
			requested: period(today.AddDate(0, 0, 12), today.AddDate(0, 0, 18)),
			wantErr:   true,
			wantCode:  http.StatusConflict,
		},
		{
			name:      "back to back with existing stay",
			requested: period(today.AddDate(0, 0, 15), today.AddDate(0, 0, 20)),
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.AreDatesAcceptable(tt.requested, occupied)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
