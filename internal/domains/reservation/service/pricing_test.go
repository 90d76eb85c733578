package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hotelier/internal/domains/reservation/model"
	"hotelier/internal/domains/reservation/service"
	roomModel "hotelier/internal/domains/room/model"
)

func TestPricePerNight(t *testing.T) {
	room := roomModel.Room{
		AdultPrice:    50,
		ChildrenPrice: 30,
	}

	tests := []struct {
		name              string
		adults            int
		children          int
		includesBreakfast bool
		isAllInclusive    bool
		breakfastPrice    float64
		allInclusivePrice float64
		want              float64
	}{
		{
			name: "booking user alone pays the adult rate",
			want: 50,
		},
		{
			name:     "one adult one child no add-ons",
			adults:   1,
			children: 1,
			want:     130, // 50 + 30 + booking user's 50
		},
		{
			name:     "family base rate",
			adults:   2,
			children: 2,
			want:     210,
		},
		{
			name:              "breakfast added once per night",
			adults:            2,
			children:          1,
			includesBreakfast: true,
			breakfastPrice:    15,
			want:              195,
		},
		{
			name:              "all-inclusive added once per night",
			adults:            2,
			isAllInclusive:    true,
			allInclusivePrice: 40,
			want:              190,
		},
		{
			name:              "all-inclusive takes precedence over breakfast",
			adults:            1,
			children:          1,
			includesBreakfast: true,
			isAllInclusive:    true,
			breakfastPrice:    15,
			allInclusivePrice: 40,
			want:              170, // 50 + 30 + 50 + 40, breakfast not added on top
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.PricePerNight(room, tt.adults, tt.children, tt.includesBreakfast, tt.isAllInclusive, tt.breakfastPrice, tt.allInclusivePrice)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestStayPrice(t *testing.T) {
	room := roomModel.Room{
		AdultPrice:    120,
		ChildrenPrice: 60,
	}

	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	// 2 adults + 1 child + booking user with breakfast: 2*120 + 60 + 120 + 15 per night
	perNight := float64(2*120 + 60 + 120 + 15)

	tests := []struct {
		name   string
		period model.Period
		want   float64
	}{
		{
			name:   "three nights",
			period: model.Period{AccommodationDate: start, ReleaseDate: start.AddDate(0, 0, 3)},
			want:   3 * perNight,
		},
		{
			name:   "one night",
			period: model.Period{AccommodationDate: start, ReleaseDate: start.AddDate(0, 0, 1)},
			want:   perNight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.StayPrice(room, tt.period, 2, 1, true, false, 15, 0)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}
