package dto

import (
	"time"

	"github.com/google/uuid"

	"hotelier/internal/domains/reservation/model"
	"hotelier/shared"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/failure"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"
)

type OccupantRequest struct {
	ID       string `json:"id"        validate:"omitempty,uuid4"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Email    string `json:"email"     validate:"omitempty,email,max=255"`
	IsAdult  *bool  `json:"is_adult"  validate:"required"`
}

func (o *OccupantRequest) ToModel(reservationID, user string) model.Occupant {
	id := o.ID
	if id == constant.Empty {
		id = uuid.NewString()
	}

	isAdult := true
	if o.IsAdult != nil {
		isAdult = *o.IsAdult
	}

	return model.Occupant{
		ID:            id,
		ReservationID: reservationID,
		FullName:      o.FullName,
		Email:         o.Email,
		IsAdult:       isAdult,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type CreateReservationRequest struct {
	RoomID            string            `json:"room_id"            validate:"required,uuid4"`
	AccommodationDate string            `json:"accommodation_date" validate:"required"`
	ReleaseDate       string            `json:"release_date"       validate:"required"`
	IncludesBreakfast bool              `json:"includes_breakfast"`
	IsAllInclusive    bool              `json:"is_all_inclusive"`
	Occupants         []OccupantRequest `json:"occupants"          validate:"required,min=1,dive"`
}

// Dates parses the requested stay into a period, rejecting malformed dates.
func (c *CreateReservationRequest) Dates() (model.Period, error) {
	return parsePeriod(c.AccommodationDate, c.ReleaseDate)
}

func (c *CreateReservationRequest) ToModel(userID, user string, period model.Period, price float64) model.Reservation {
	return model.Reservation{
		ID:                uuid.NewString(),
		UserID:            userID,
		RoomID:            c.RoomID,
		AccommodationDate: period.AccommodationDate,
		ReleaseDate:       period.ReleaseDate,
		IncludesBreakfast: c.IncludesBreakfast,
		IsAllInclusive:    c.IsAllInclusive,
		Price:             price,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

// UpdateReservationRequest replaces the stay wholesale: dates, add-ons and
// the full occupant list as it should look after the update.
type UpdateReservationRequest struct {
	RoomID            string            `json:"room_id"            validate:"required,uuid4"`
	AccommodationDate string            `json:"accommodation_date" validate:"required"`
	ReleaseDate       string            `json:"release_date"       validate:"required"`
	IncludesBreakfast bool              `json:"includes_breakfast"`
	IsAllInclusive    bool              `json:"is_all_inclusive"`
	Occupants         []OccupantRequest `json:"occupants"          validate:"required,min=1,dive"`
}

func (u *UpdateReservationRequest) Dates() (model.Period, error) {
	return parsePeriod(u.AccommodationDate, u.ReleaseDate)
}

func parsePeriod(accommodation, release string) (period model.Period, err error) {
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

type OccupantResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	IsAdult  bool   `json:"is_adult"`
}

func (r *OccupantResponse) FromModel(model model.Occupant) {
	r.ID = model.ID
	r.FullName = model.FullName
	r.Email = model.Email
	r.IsAdult = model.IsAdult
}

type ReservationResponse struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	RoomID            string             `json:"room_id"`
	AccommodationDate string             `json:"accommodation_date"`
	ReleaseDate       string             `json:"release_date"`
	IncludesBreakfast bool               `json:"includes_breakfast"`
	IsAllInclusive    bool               `json:"is_all_inclusive"`
	Price             float64            `json:"price"`
	Occupants         []OccupantResponse `json:"occupants"`
	gDto.Metadata
}

func (r *ReservationResponse) FromModel(reservation model.Reservation, occupants []model.Occupant) {
	r.ID = reservation.ID
	r.UserID = reservation.UserID
	r.RoomID = reservation.RoomID
	r.AccommodationDate = formatDate(reservation.AccommodationDate)
	r.ReleaseDate = formatDate(reservation.ReleaseDate)
	r.IncludesBreakfast = reservation.IncludesBreakfast
	r.IsAllInclusive = reservation.IsAllInclusive
	r.Price = reservation.Price
	r.Metadata.FromModel(reservation.Metadata)

	r.Occupants = make([]OccupantResponse, len(occupants))
	for i, occ := range occupants {
		r.Occupants[i].FromModel(occ)
	}
}

type GetReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	TotalPage    int                   `json:"total_page"`
	TotalData    int                   `json:"total_data"`
}

func (r *GetReservationsResponse) FromModels(models []model.Reservation, occupants map[string][]model.Occupant, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Reservations = make([]ReservationResponse, len(models))
	for i, mod := range models {
		r.Reservations[i].FromModel(mod, occupants[mod.ID])
	}
}

func formatDate(t time.Time) string {
	return timezone.Format(t, constant.DateOnlyFormat)
}
