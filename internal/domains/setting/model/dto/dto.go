package dto

import (
	"hotelier/internal/domains/setting/model"
	"hotelier/shared"
	gDto "hotelier/shared/dto"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"
)

type CreateSettingRequest struct {
	Key   string `json:"key" validate:"required,max=64"`
	Value string `json:"value" validate:"required"`
	Type  string `json:"type" validate:"required,oneof=text decimal"`
}

func (c *CreateSettingRequest) ToModel(user string) model.Setting {
	return model.Setting{
		Key:   c.Key,
		Value: c.Value,
		Type:  c.Type,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateSettingRequest struct {
	Value string `db:"value" json:"value" validate:"required"`
	Type  string `db:"type" json:"type" validate:"omitempty,oneof=text decimal"`
}

type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
	gDto.Metadata
}

func (r *SettingResponse) FromModel(model model.Setting) {
	r.Key = model.Key
	r.Value = model.Value
	r.Type = model.Type
	r.Metadata.FromModel(model.Metadata)
}

type GetSettingsResponse struct {
	Settings  []SettingResponse `json:"settings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetSettingsResponse) FromModels(models []model.Setting, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Settings = make([]SettingResponse, len(models))
	for i, mod := range models {
		r.Settings[i].FromModel(mod)
	}
}
