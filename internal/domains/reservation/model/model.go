package model

import (
	"time"

	"hotelier/shared/model"
)

const (
	TableName  = "reservations"
	EntityName = "reservation"

	FieldID                = "id"
	FieldUserID            = "user_id"
	FieldRoomID            = "room_id"
	FieldAccommodationDate = "accommodation_date"
	FieldReleaseDate       = "release_date"
	FieldIncludesBreakfast = "includes_breakfast"
	FieldIsAllInclusive    = "is_all_inclusive"
	FieldPrice             = "price"
)

const (
	OccupantTableName  = "occupants"
	OccupantEntityName = "occupant"

	OccupantFieldID            = "id"
	OccupantFieldReservationID = "reservation_id"
	OccupantFieldFullName      = "full_name"
	OccupantFieldEmail         = "email"
	OccupantFieldIsAdult       = "is_adult"
)

type Reservation struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	RoomID            string    `db:"room_id"`
	AccommodationDate time.Time `db:"accommodation_date"`
	ReleaseDate       time.Time `db:"release_date"`
	IncludesBreakfast bool      `db:"includes_breakfast"`
	IsAllInclusive    bool      `db:"is_all_inclusive"`
	Price             float64   `db:"price"`
	model.Metadata
}

// Nights is the stay length in whole nights.
func (r *Reservation) Nights() int {
	return int(r.ReleaseDate.Sub(r.AccommodationDate).Hours() / 24)
}

// Period returns the occupied date range of the reservation.
func (r *Reservation) Period() Period {
	return Period{
		AccommodationDate: r.AccommodationDate,
		ReleaseDate:       r.ReleaseDate,
	}
}

type Occupant struct {
	ID            string `db:"id"`
	ReservationID string `db:"reservation_id"`
	FullName      string `db:"full_name"`
	Email         string `db:"email"`
	IsAdult       bool   `db:"is_adult"`
	model.Metadata
}

// Period is an occupied half-open date range: the accommodation date is the
// first occupied night and the release date is checkout morning, already free.
type Period struct {
	AccommodationDate time.Time `db:"accommodation_date"`
	ReleaseDate       time.Time `db:"release_date"`
}
