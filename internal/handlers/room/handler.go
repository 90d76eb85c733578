package room

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotelier/infras/otel"
	"hotelier/internal/domains/room/model"
	"hotelier/internal/domains/room/model/dto"
	"hotelier/internal/domains/room/service"
	"hotelier/shared"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/validator"
	"hotelier/transport/http/response"
)

type Handler struct {
	service service.Room
	otel    otel.Otel
}

func New(service service.Room, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateRoom)
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Get("/summary", handler.GetRoomSummary)
		routerGroup.Get("/{id}", handler.GetRoomByID)
		routerGroup.Put("/{id}", handler.UpdateRoom)
		routerGroup.Delete("/{id}", handler.DeleteRoom)
	})
}

// CreateRoom registers a new room.
// @Summary Create a new room
// @Description Register a room with its number, type, capacity and rates.
// @Tags Room
// @Accept multipart/form-data
// @Produce json
// @Param number formData integer true "Room number"
// @Param type formData string true "Room type"
// @Param capacity formData integer true "Room capacity"
// @Param adult_price formData number true "Adult price per night"
// @Param children_price formData number true "Children price per night"
// @Param image formData file false "Room image"
// @Success 201 {object} response.Message "Room created successfully"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [post]
// @Security BearerAuth
func (handler *Handler) CreateRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	if err := request.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")
		response.WithError(writer, err)

		return
	}

	req := dto.CreateRoomRequest{
		Type: request.FormValue("type"),
	}

	if number, err := shared.ConvertStringToInt(request.FormValue("number")); err == nil {
		req.Number = number
	}

	if capacity, err := shared.ConvertStringToInt(request.FormValue("capacity")); err == nil {
		req.Capacity = capacity
	}

	if price, err := strconv.ParseFloat(request.FormValue("adult_price"), 64); err == nil {
		req.AdultPrice = price
	}

	if price, err := strconv.ParseFloat(request.FormValue("children_price"), 64); err == nil {
		req.ChildrenPrice = price
	}

	file, fileHeader, err := request.FormFile("image")
	if err == nil {
		req.Image = fileHeader
		req.ImageFile = file

		defer file.Close()
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.Create(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create room")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room created successfully by user " + user)

	response.WithMessage(writer, http.StatusCreated, "Room created successfully")
}

// GetRooms lists rooms with optional filtering and pagination.
// @Summary Get all rooms
// @Description List rooms, optionally filtered by type, capacity, price range or current availability.
// @Tags Room
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param type query string false "Filter by room type, repeatable or comma-separated"
// @Param capacity query integer false "Minimum capacity"
// @Param min_price query number false "Minimum adult price"
// @Param max_price query number false "Maximum adult price"
// @Param free query boolean false "Only rooms free today"
// @Success 200 {object} response.Data[dto.GetRoomsResponse] "List of rooms"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [get]
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	if roomTypes := queryRoomTypes(r); len(roomTypes) > 0 {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldType,
			Operator: gDto.FilterOperatorIn,
			Value:    roomTypes,
			Table:    model.TableName,
		})
	}

	if capacity, err := shared.ConvertStringToInt(r.URL.Query().Get(model.FieldCapacity)); err == nil {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldCapacity,
			Operator: gDto.FilterOperatorGreaterEq,
			Value:    capacity,
			Table:    model.TableName,
		})
	}

	if minPrice, err := strconv.ParseFloat(r.URL.Query().Get("min_price"), 64); err == nil {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			ArgName:  "min_price",
			Field:    model.FieldAdultPrice,
			Operator: gDto.FilterOperatorGreaterEq,
			Value:    minPrice,
			Table:    model.TableName,
		})
	}

	if maxPrice, err := strconv.ParseFloat(r.URL.Query().Get("max_price"), 64); err == nil {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			ArgName:  "max_price",
			Field:    model.FieldAdultPrice,
			Operator: gDto.FilterOperatorLessEq,
			Value:    maxPrice,
			Table:    model.TableName,
		})
	}

	if free := shared.ConvertStringToBool(r.URL.Query().Get("free")); free != nil && *free {
		filterGroup.Filters = append(filterGroup.Filters, service.FilterFreeNow().Filters...)
	}

	rooms, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Rooms retrieved successfully")

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoomSummary aggregates the room registry.
// @Summary Get the room registry summary
// @Description Room totals, rooms free today and the price and capacity bounds.
// @Tags Room
// @Accept json
// @Produce json
// @Success 200 {object} response.Data[dto.RoomSummaryResponse] "Registry summary"
// @Failure 500 {object} response.Error
// @Router /v1/rooms/summary [get]
func (handler *Handler) GetRoomSummary(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomSummary")
	defer scope.End()

	summary, err := handler.service.Summary(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room summary")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Room summary retrieved successfully")

	response.WithJSON(w, http.StatusOK, summary)
}

// GetRoomByID retrieves a room by its ID.
// @Summary Get a room by ID
// @Description Retrieve a room by its unique identifier.
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Data[dto.RoomResponse] "Room details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [get]
func (handler *Handler) GetRoomByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	room, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Room retrieved successfully")

	response.WithJSON(w, http.StatusOK, room)
}

// UpdateRoom replaces a room's attributes.
// @Summary Update a room by ID
// @Description Replace every attribute of an existing room. Shrinking capacity cancels reservations that no longer fit.
// @Tags Room
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Room ID"
// @Param number formData integer true "Room number"
// @Param type formData string true "Room type"
// @Param capacity formData integer true "Room capacity"
// @Param adult_price formData number true "Adult price per night"
// @Param children_price formData number true "Children price per night"
// @Param image formData file false "Room image"
// @Success 200 {object} response.Message "Room updated successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [put]
// @Security BearerAuth
func (handler *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := r.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")
		response.WithError(w, err)

		return
	}

	req := dto.UpdateRoomRequest{
		Type: r.FormValue("type"),
	}

	if number, err := shared.ConvertStringToInt(r.FormValue("number")); err == nil {
		req.Number = number
	}

	if capacity, err := shared.ConvertStringToInt(r.FormValue("capacity")); err == nil {
		req.Capacity = capacity
	}

	if price, err := strconv.ParseFloat(r.FormValue("adult_price"), 64); err == nil {
		req.AdultPrice = price
	}

	if price, err := strconv.ParseFloat(r.FormValue("children_price"), 64); err == nil {
		req.ChildrenPrice = price
	}

	file, fileHeader, err := r.FormFile("image")
	if err == nil {
		req.Image = fileHeader
		req.ImageFile = file

		defer file.Close()
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room updated successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room updated successfully")
}

// DeleteRoom deletes a room by its ID.
// @Summary Delete a room by ID
// @Description Delete a room. Its reservations are cancelled and the affected guests notified.
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Message "Room deleted successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteRoom")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room deleted successfully")
}

// queryRoomTypes collects the requested type set, accepting both repeated
// type params and comma-separated values.
func queryRoomTypes(r *http.Request) []string {
	var roomTypes []string

	for _, raw := range r.URL.Query()[model.FieldType] {
		for _, roomType := range strings.Split(raw, ",") {
			if roomType = strings.TrimSpace(roomType); roomType != "" {
				roomTypes = append(roomTypes, roomType)
			}
		}
	}

	return roomTypes
}
