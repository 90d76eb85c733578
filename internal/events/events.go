// Package events defines the messages published to Kafka when reservations
// or rooms change in ways a guest or the front desk should hear about.
package events

import "time"

const (
	KeyReservationCreated        = "reservation.created"
	KeyReservationCancelled      = "reservation.cancelled"
	KeyReservationForceCancelled = "reservation.force_cancelled"
	KeyRoomDeleted               = "room.deleted"
)

type ReservationEvent struct {
	ReservationID     string    `json:"reservation_id"`
	UserID            string    `json:"user_id"`
	RoomID            string    `json:"room_id"`
	RoomNumber        int       `json:"room_number"`
	AccommodationDate time.Time `json:"accommodation_date"`
	ReleaseDate       time.Time `json:"release_date"`
	Price             float64   `json:"price"`
	Reason            string    `json:"reason,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type RoomDeletedEvent struct {
	RoomID                 string    `json:"room_id"`
	RoomNumber             int       `json:"room_number"`
	CancelledReservationID []string  `json:"cancelled_reservation_ids,omitempty"`
	OccurredAt             time.Time `json:"occurred_at"`
}
