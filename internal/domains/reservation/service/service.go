package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Reservation=MockReservationService

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"hotelier/config"
	"hotelier/infras/kafka"
	"hotelier/infras/otel"
	"hotelier/internal/domains/reservation/model"
	"hotelier/internal/domains/reservation/model/dto"
	"hotelier/internal/domains/reservation/repository"
	roomModel "hotelier/internal/domains/room/model"
	roomRepository "hotelier/internal/domains/room/repository"
	settingService "hotelier/internal/domains/setting/service"
	"hotelier/internal/events"
	"hotelier/shared"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/failure"
	"hotelier/shared/timezone"
)

const (
	cacheGetReservation    = "reservation:get"
	cacheGetAllReservation = "reservation:gets"
	cacheCountReservation  = "reservation:count"
)

type Reservation interface {
	Create(ctx context.Context, req dto.CreateReservationRequest) (dto.ReservationResponse, error)
	Update(ctx context.Context, req dto.UpdateReservationRequest, id string) (dto.ReservationResponse, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (dto.ReservationResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetReservationsResponse, error)
	GetMine(ctx context.Context, req gDto.QueryParams) (dto.GetReservationsResponse, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Available(ctx context.Context, roomID, accommodationDate, releaseDate string) (bool, error)
}

type serviceImpl struct {
	repo     repository.Reservation
	roomRepo roomRepository.Room
	settings settingService.Setting
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	producer kafka.Client
}

func New(
	repo repository.Reservation,
	roomRepo roomRepository.Room,
	settings settingService.Setting,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	producer kafka.Client,
) Reservation {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		settings: settings,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		producer: producer,
	}
}

// Create books a room for a period. The room row is locked for the whole
// validation-and-insert sequence, so two competing requests for the same room
// serialize and the loser sees the winner's reservation.
func (s *serviceImpl) Create(ctx context.Context, req dto.CreateReservationRequest) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	period, err := req.Dates()
	if err != nil {
		return res, err
	}

	var (
		reservation model.Reservation
		occupants   []model.Occupant
		room        roomModel.Room
	)

	err = s.repo.InTx(ctx, func(tx *sqlx.Tx) error {
		room, err = s.roomRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(req.RoomID, roomModel.FieldID, roomModel.TableName))
		if err != nil {
			return err
		}

		if room.ID == constant.Empty {
			return failure.NotFound("room not found") // nolint:wrapcheck
		}

		// the booking user always counts as one occupant on top of the list
		if len(req.Occupants)+1 > room.Capacity {
			return failure.Validation("occupants exceed room capacity") // nolint:wrapcheck
		}

		occupied, err := s.repo.Periods(ctx, tx, room.ID, constant.Empty)
		if err != nil {
			return err
		}

		if err := AreDatesAcceptable(period, occupied); err != nil {
			return err
		}

		price, err := s.stayPrice(ctx, room, period, req.Occupants, req.IncludesBreakfast, req.IsAllInclusive)
		if err != nil {
			return err
		}

		reservation = req.ToModel(userID, userID, period, price)

		occupants = make([]model.Occupant, len(req.Occupants))
		for i, occ := range req.Occupants {
			occupants[i] = occ.ToModel(reservation.ID, userID)
		}

		if err := s.repo.InsertTx(ctx, tx, reservation); err != nil {
			return err
		}

		return s.repo.InsertOccupantsTx(ctx, tx, occupants)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create reservation")

		return res, err
	}

	res.FromModel(reservation, occupants)

	s.publishReservationEvent(ctx, events.KeyReservationCreated, reservation, room, constant.Empty)
	s.invalidate(ctx, reservation.ID)

	return res, nil
}

// Update replaces a reservation's stay wholesale: dates, room, add-ons and
// the occupant list. The price is recomputed from scratch; nothing survives
// from the previous version except the reservation identity and its owner.
func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateReservationRequest, id string) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	current, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservation")

		return res, fmt.Errorf("failed to get reservation: %w", err)
	}

	if current.ID == constant.Empty {
		return res, failure.NotFound("reservation not found") // nolint:wrapcheck
	}

	if err = s.authorize(ctx, current.UserID); err != nil {
		return res, err
	}

	period, err := req.Dates()
	if err != nil {
		return res, err
	}

	var (
		updated   model.Reservation
		occupants []model.Occupant
	)

	err = s.repo.InTx(ctx, func(tx *sqlx.Tx) error {
		room, err := s.roomRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(req.RoomID, roomModel.FieldID, roomModel.TableName))
		if err != nil {
			return err
		}

		if room.ID == constant.Empty {
			return failure.NotFound("room not found") // nolint:wrapcheck
		}

		// the booking user always counts as one occupant on top of the list
		if len(req.Occupants)+1 > room.Capacity {
			return failure.Validation("occupants exceed room capacity") // nolint:wrapcheck
		}

		occupied, err := s.repo.Periods(ctx, tx, room.ID, current.ID)
		if err != nil {
			return err
		}

		if err := AreDatesAcceptable(period, occupied); err != nil {
			return err
		}

		price, err := s.stayPrice(ctx, room, period, req.Occupants, req.IncludesBreakfast, req.IsAllInclusive)
		if err != nil {
			return err
		}

		updated = current
		updated.RoomID = room.ID
		updated.AccommodationDate = period.AccommodationDate
		updated.ReleaseDate = period.ReleaseDate
		updated.IncludesBreakfast = req.IncludesBreakfast
		updated.IsAllInclusive = req.IsAllInclusive
		updated.Price = price
		updated.ModifiedAt = timezone.Now()
		updated.ModifiedBy = userID

		updatedFields := map[string]any{
			model.FieldRoomID:            updated.RoomID,
			model.FieldAccommodationDate: updated.AccommodationDate,
			model.FieldReleaseDate:       updated.ReleaseDate,
			model.FieldIncludesBreakfast: updated.IncludesBreakfast,
			model.FieldIsAllInclusive:    updated.IsAllInclusive,
			model.FieldPrice:             updated.Price,
			constant.FieldModifiedAt:     updated.ModifiedAt,
			constant.FieldModifiedBy:     updated.ModifiedBy,
		}

		if err := s.repo.UpdateTx(ctx, tx, updatedFields, filter); err != nil {
			return err
		}

		occupants, err = s.reconcileOccupants(ctx, tx, current.ID, userID, req.Occupants)

		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to update reservation")

		return res, err
	}

	res.FromModel(updated, occupants)

	s.invalidate(ctx, current.ID)

	return res, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	reservation, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservation")

		return fmt.Errorf("failed to get reservation: %w", err)
	}

	if reservation.ID == constant.Empty {
		return failure.NotFound("reservation not found") // nolint:wrapcheck
	}

	if err = s.authorize(ctx, reservation.UserID); err != nil {
		return err
	}

	if err = s.repo.Delete(ctx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete reservation")

		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	room, roomErr := s.roomRepo.Get(ctx, shared.FilterByID(reservation.RoomID, roomModel.FieldID, roomModel.TableName))
	if roomErr != nil {
		log.Warn().Err(roomErr).Msg("failed to load room for cancellation event")
	}

	s.publishReservationEvent(ctx, events.KeyReservationCancelled, reservation, room, constant.Empty)
	s.invalidate(ctx, id)

	return nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(nil)

	cacheKey := shared.BuildCacheKey(cacheGetReservation, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation")

		return res, s.authorize(ctx, res.UserID)
	}

	reservation, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservation")

		return res, fmt.Errorf("failed to get reservation: %w", err)
	}

	if reservation.ID == constant.Empty {
		return res, failure.NotFound("reservation not found") // nolint:wrapcheck
	}

	if err = s.authorize(ctx, reservation.UserID); err != nil {
		return res, err
	}

	occupants, err := s.repo.Occupants(ctx, reservation.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get occupants")

		return res, fmt.Errorf("failed to get occupants: %w", err)
	}

	res.FromModel(reservation, occupants)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetReservationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	if req.SortBy == constant.Empty {
		req.SortBy = model.FieldReleaseDate
		req.SortDir = gDto.SortDirAsc
	}

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllReservation, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservations")

		return res, nil
	}

	total, err := s.Count(ctx, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservations")

		return res, fmt.Errorf("failed to get reservations: %w", err)
	}

	occupants, err := s.occupantsFor(ctx, models)
	if err != nil {
		return res, err
	}

	res.FromModels(models, occupants, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservations to cache")
		}
	}()

	return res, nil
}

// GetMine lists the caller's own reservations, most recent stay first.
func (s *serviceImpl) GetMine(ctx context.Context, req gDto.QueryParams) (res dto.GetReservationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetMine")
	defer scope.End()
	defer scope.TraceIfError(err)

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if req.SortBy == constant.Empty {
		req.SortBy = model.FieldAccommodationDate
		req.SortDir = gDto.SortDirDesc
	}

	return s.GetAll(ctx, req, shared.FilterByID(userID, model.FieldUserID, model.TableName))
}

func (s *serviceImpl) Count(ctx context.Context, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountReservation, gDto.QueryParams{}, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reservations")

		return res, fmt.Errorf("failed to count reservations: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation count to cache")
		}
	}()

	return res, nil
}

// reconcileOccupants applies the requested occupant list against what is
// stored: known IDs are updated in place, unknown entries are inserted and
// stored occupants missing from the request are removed.
func (s *serviceImpl) reconcileOccupants(ctx context.Context, tx *sqlx.Tx, reservationID, user string, requested []dto.OccupantRequest) ([]model.Occupant, error) {
	existing, err := s.repo.Occupants(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	existingByID := make(map[string]model.Occupant, len(existing))
	for _, occ := range existing {
		existingByID[occ.ID] = occ
	}

	var (
		inserts []model.Occupant
		result  []model.Occupant
	)

	seen := make(map[string]bool, len(requested))

	for _, req := range requested {
		stored, known := existingByID[req.ID]
		if req.ID != constant.Empty && known {
			seen[req.ID] = true

			isAdult := true
			if req.IsAdult != nil {
				isAdult = *req.IsAdult
			}

			updatedFields := map[string]any{
				model.OccupantFieldFullName: req.FullName,
				model.OccupantFieldEmail:    req.Email,
				model.OccupantFieldIsAdult:  isAdult,
				constant.FieldModifiedAt:    timezone.Now(),
				constant.FieldModifiedBy:    user,
			}

			filter := shared.FilterByID(req.ID, model.OccupantFieldID, model.OccupantTableName)
			if err := s.repo.UpdateOccupantTx(ctx, tx, updatedFields, filter); err != nil {
				return nil, err
			}

			stored.FullName = req.FullName
			stored.Email = req.Email
			stored.IsAdult = isAdult
			result = append(result, stored)

			continue
		}

		occ := req.ToModel(reservationID, user)
		inserts = append(inserts, occ)
		result = append(result, occ)
	}

	var removals []string

	for _, occ := range existing {
		if !seen[occ.ID] {
			removals = append(removals, occ.ID)
		}
	}

	if len(removals) > 0 {
		filter := gDto.FilterGroup{
			Filters: []any{
				gDto.Filter{
					Field:    model.OccupantFieldID,
					Value:    removals,
					Operator: gDto.FilterOperatorIn,
					Table:    model.OccupantTableName,
				},
			},
		}

		if err := s.repo.DeleteOccupantsTx(ctx, tx, filter); err != nil {
			return nil, err
		}
	}

	if len(inserts) > 0 {
		if err := s.repo.InsertOccupantsTx(ctx, tx, inserts); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// authorize lets the owner and hotel staff through. Everyone else gets a
// not-found so reservation IDs leak nothing.
func (s *serviceImpl) authorize(ctx context.Context, ownerID string) error {
	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	if userID == ownerID || role == constant.RoleAdmin || role == constant.RoleEmployee {
		return nil
	}

	log.Warn().Str("user_id", userID).Msg("denied access to reservation")

	return failure.NotFound("reservation not found") // nolint:wrapcheck
}

func (s *serviceImpl) occupantsFor(ctx context.Context, reservations []model.Reservation) (map[string][]model.Occupant, error) {
	ids := make([]string, len(reservations))
	for i, res := range reservations {
		ids[i] = res.ID
	}

	occupants, err := s.repo.OccupantsByReservations(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("failed to get occupants")

		return nil, fmt.Errorf("failed to get occupants: %w", err)
	}

	grouped := make(map[string][]model.Occupant, len(reservations))
	for _, occ := range occupants {
		grouped[occ.ReservationID] = append(grouped[occ.ReservationID], occ)
	}

	return grouped, nil
}

func (s *serviceImpl) publishReservationEvent(ctx context.Context, key string, reservation model.Reservation, room roomModel.Room, reason string) {
	message := kafka.Message{
		Key: key,
		Value: events.ReservationEvent{
			ReservationID:     reservation.ID,
			UserID:            reservation.UserID,
			RoomID:            reservation.RoomID,
			RoomNumber:        room.Number,
			AccommodationDate: reservation.AccommodationDate,
			ReleaseDate:       reservation.ReleaseDate,
			Price:             reservation.Price,
			Reason:            reason,
			OccurredAt:        timezone.Now(),
		},
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.producer.SendMessages(c, s.cfg.Kafka.Topic, message); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to publish reservation event")
		}
	}()
}

func (s *serviceImpl) invalidate(ctx context.Context, reservationID string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetReservation, reservationID)); err != nil {
			log.Error().Err(err).Msg("failed to delete reservation cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllReservation)
		shared.InvalidateCaches(c, s.cache, cacheCountReservation)
	}()
}
