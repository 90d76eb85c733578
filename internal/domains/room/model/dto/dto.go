package dto

import (
	"mime/multipart"

	"github.com/google/uuid"

	"hotelier/internal/domains/room/model"
	"hotelier/shared"
	gDto "hotelier/shared/dto"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"
)

type CreateRoomRequest struct {
	Number        int                   `json:"number"         validate:"required,min=1"`
	Type          string                `json:"type"           validate:"required,oneof=double_bed two_single_beds studio penthouse"`
	Capacity      int                   `json:"capacity"       validate:"required,min=1"`
	AdultPrice    float64               `json:"adult_price"    validate:"required,min=0"`
	ChildrenPrice float64               `json:"children_price" validate:"required,min=0"`
	Image         *multipart.FileHeader `json:"image"          validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=1"`
	ImageFile     multipart.File        `json:"-"`
}

func (c *CreateRoomRequest) ToModel(user string, imageURL string) model.Room {
	return model.Room{
		ID:            uuid.NewString(),
		Number:        c.Number,
		Type:          c.Type,
		Capacity:      c.Capacity,
		AdultPrice:    c.AdultPrice,
		ChildrenPrice: c.ChildrenPrice,
		ImageURL:      imageURL,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

// UpdateRoomRequest replaces every room attribute at once. Unlike other
// updates this is a full replacement, so all fields are required.
type UpdateRoomRequest struct {
	Number        int                   `db:"number"         json:"number"         validate:"required,min=1"`
	Type          string                `db:"type"           json:"type"           validate:"required,oneof=double_bed two_single_beds studio penthouse"`
	Capacity      int                   `db:"capacity"       json:"capacity"       validate:"required,min=1"`
	AdultPrice    float64               `db:"adult_price"    json:"adult_price"    validate:"required,min=0"`
	ChildrenPrice float64               `db:"children_price" json:"children_price" validate:"required,min=0"`
	Image         *multipart.FileHeader `json:"image"        validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=1"`
	ImageFile     multipart.File        `json:"-"`
}

type RoomResponse struct {
	ID            string  `json:"id"`
	Number        int     `json:"number"`
	Type          string  `json:"type"`
	Capacity      int     `json:"capacity"`
	AdultPrice    float64 `json:"adult_price"`
	ChildrenPrice float64 `json:"children_price"`
	ImageURL      string  `json:"image_url"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Number = model.Number
	r.Type = model.Type
	r.Capacity = model.Capacity
	r.AdultPrice = model.AdultPrice
	r.ChildrenPrice = model.ChildrenPrice
	r.ImageURL = model.ImageURL
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}

type RoomSummaryResponse struct {
	TotalRooms  int     `json:"total_rooms"`
	FreeRooms   int     `json:"free_rooms"`
	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	MaxCapacity int     `json:"max_capacity"`
}
