package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"hotelier/internal/domains/reservation/model"
	"hotelier/internal/domains/reservation/model/dto"
	roomModel "hotelier/internal/domains/room/model"
	"hotelier/shared/constant"
)

// PricePerNight is the nightly rate of a stay: each adult pays the adult
// rate and each child the children rate, and the booking user always pays
// the adult rate once on top of the occupant list. The all-inclusive add-on
// takes precedence over breakfast, they never stack.
func PricePerNight(room roomModel.Room, adults, children int, includesBreakfast, isAllInclusive bool, breakfastPrice, allInclusivePrice float64) float64 {
	price := float64(adults)*room.AdultPrice + float64(children)*room.ChildrenPrice + room.AdultPrice

	switch {
	case isAllInclusive:
		price += allInclusivePrice
	case includesBreakfast:
		price += breakfastPrice
	}

	return price
}

// StayPrice is the full price of a stay over its whole period.
func StayPrice(room roomModel.Room, period model.Period, adults, children int, includesBreakfast, isAllInclusive bool, breakfastPrice, allInclusivePrice float64) float64 {
	nights := period.ReleaseDate.Sub(period.AccommodationDate).Hours() / constant.HoursPerDay

	perNight := PricePerNight(room, adults, children, includesBreakfast, isAllInclusive, breakfastPrice, allInclusivePrice)

	return perNight * nights
}

func (s *serviceImpl) stayPrice(ctx context.Context, room roomModel.Room, period model.Period, occupants []dto.OccupantRequest, includesBreakfast, isAllInclusive bool) (price float64, err error) {
	breakfastPrice, err := s.settings.BreakfastPrice(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to get breakfast price")

		return 0, fmt.Errorf("failed to get breakfast price: %w", err)
	}

	allInclusivePrice, err := s.settings.AllInclusivePrice(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to get all-inclusive price")

		return 0, fmt.Errorf("failed to get all-inclusive price: %w", err)
	}

	adults, children := countOccupants(occupants)

	return StayPrice(room, period, adults, children, includesBreakfast, isAllInclusive, breakfastPrice, allInclusivePrice), nil
}

// countOccupants tallies adults and children, skipping rows without a name.
func countOccupants(occupants []dto.OccupantRequest) (adults, children int) {
	for _, occ := range occupants {
		if occ.FullName == constant.Empty {
			continue
		}

		if occ.IsAdult == nil || *occ.IsAdult {
			adults++
		} else {
			children++
		}
	}

	return adults, children
}
