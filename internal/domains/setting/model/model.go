package model

import "hotelier/shared/model"

const (
	TableName  = "settings"
	EntityName = "setting"

	FieldKey   = "key"
	FieldValue = "value"
	FieldType  = "type"
)

const (
	TypeText    = "text"
	TypeDecimal = "decimal"
)

type Setting struct {
	Key   string `db:"key"`
	Value string `db:"value"`
	Type  string `db:"type"`
	model.Metadata
}
