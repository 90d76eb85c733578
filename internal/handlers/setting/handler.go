package setting

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotelier/infras/otel"
	"hotelier/internal/domains/setting/model"
	"hotelier/internal/domains/setting/model/dto"
	"hotelier/internal/domains/setting/service"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/validator"
	"hotelier/transport/http/response"
)

type Handler struct {
	service service.Setting
	otel    otel.Otel
}

func New(service service.Setting, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/settings", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateSetting)
		routerGroup.Get("/", handler.GetSettings)
		routerGroup.Get("/{key}", handler.GetSettingByKey)
		routerGroup.Put("/{key}", handler.UpdateSetting)
		routerGroup.Delete("/{key}", handler.DeleteSetting)
	})
}

// CreateSetting creates a new pricing catalog entry.
// @Summary Create a new setting
// @Description Create a catalog entry such as an add-on price.
// @Tags Setting
// @Accept json
// @Produce json
// @Param request body dto.CreateSettingRequest true "Create Setting Request"
// @Success 201 {object} response.Message "Setting created successfully"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/settings [post]
// @Security BearerAuth
func (handler *Handler) CreateSetting(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateSetting")
	defer scope.End()

	req := dto.CreateSettingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.Create(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create setting")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Setting created successfully by user " + user)

	response.WithMessage(writer, http.StatusCreated, "Setting created successfully")
}

// GetSettings lists catalog entries.
// @Summary Get all settings
// @Description List catalog entries with optional key filtering and pagination.
// @Tags Setting
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param key query string false "Filter by key"
// @Success 200 {object} response.Data[dto.GetSettingsResponse] "List of settings"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/settings [get]
// @Security BearerAuth
func (handler *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSettings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	if key := r.URL.Query().Get(model.FieldKey); key != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldKey,
			Operator: gDto.FilterOperatorLike,
			Value:    key,
			Table:    model.TableName,
		})
	}

	settings, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get settings")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Settings retrieved successfully")

	response.WithJSON(w, http.StatusOK, settings)
}

// GetSettingByKey retrieves a setting by its key.
// @Summary Get a setting by key
// @Description Retrieve a catalog entry by its key.
// @Tags Setting
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Data[dto.SettingResponse] "Setting details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/settings/{key} [get]
// @Security BearerAuth
func (handler *Handler) GetSettingByKey(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSettingByKey")
	defer scope.End()

	key := chi.URLParam(r, constant.RequestParamKey)

	setting, err := handler.service.Get(ctx, key)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get setting by key")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Setting retrieved successfully")

	response.WithJSON(w, http.StatusOK, setting)
}

// UpdateSetting updates a setting's value.
// @Summary Update a setting by key
// @Description Update a catalog entry's value. A missing key is a no-op.
// @Tags Setting
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param request body dto.UpdateSettingRequest true "Update Setting Request"
// @Success 200 {object} response.Message "Setting updated successfully"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/settings/{key} [put]
// @Security BearerAuth
func (handler *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateSetting")
	defer scope.End()

	key := chi.URLParam(r, constant.RequestParamKey)

	req := dto.UpdateSettingRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, key); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update setting")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Setting updated successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Setting updated successfully")
}

// DeleteSetting deletes a setting by its key.
// @Summary Delete a setting by key
// @Description Delete a catalog entry.
// @Tags Setting
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Message "Setting deleted successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/settings/{key} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteSetting")
	defer scope.End()

	key := chi.URLParam(r, constant.RequestParamKey)

	if err := handler.service.Delete(ctx, key); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete setting")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Setting deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Setting deleted successfully")
}
