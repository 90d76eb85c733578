package model

import "hotelier/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID            = "id"
	FieldNumber        = "number"
	FieldType          = "type"
	FieldCapacity      = "capacity"
	FieldAdultPrice    = "adult_price"
	FieldChildrenPrice = "children_price"
	FieldImage         = "image_url"
)

const (
	TypeDoubleBed     = "double_bed"
	TypeTwoSingleBeds = "two_single_beds"
	TypeStudio        = "studio"
	TypePenthouse     = "penthouse"
)

type Room struct {
	ID            string  `db:"id"`
	Number        int     `db:"number"`
	Type          string  `db:"type"`
	Capacity      int     `db:"capacity"`
	AdultPrice    float64 `db:"adult_price"`
	ChildrenPrice float64 `db:"children_price"`
	ImageURL      string  `db:"image_url"`
	model.Metadata
}

// PriceBounds is the cheapest and priciest adult rate across the registry,
// used on the public browsing filters.
type PriceBounds struct {
	MinPrice float64 `db:"min_price"`
	MaxPrice float64 `db:"max_price"`
}
