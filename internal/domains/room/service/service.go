package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Room=MockRoomService

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"hotelier/config"
	"hotelier/infras/kafka"
	"hotelier/infras/otel"
	"hotelier/infras/s3"
	reservationModel "hotelier/internal/domains/reservation/model"
	reservationRepository "hotelier/internal/domains/reservation/repository"
	"hotelier/internal/domains/room/model"
	"hotelier/internal/domains/room/model/dto"
	"hotelier/internal/domains/room/repository"
	"hotelier/internal/events"
	"hotelier/shared"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/failure"
	"hotelier/shared/timezone"
)

const (
	cacheGetRoom     = "room:get"
	cacheGetAllRoom  = "room:gets"
	cacheCountRoom   = "room:count"
	cacheRoomSummary = "room:summary"
)

// freeNowCondition keeps only rooms with no reservation covering today.
// CURRENT_DATE is evaluated by the database, in its configured timezone.
const freeNowCondition = "NOT EXISTS (SELECT 1 FROM reservations r WHERE r.room_id = rooms.id" +
	" AND r.accommodation_date <= CURRENT_DATE AND r.release_date > CURRENT_DATE)"

type Room interface {
	Create(ctx context.Context, req dto.CreateRoomRequest) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.RoomResponse, error)
	Update(ctx context.Context, req dto.UpdateRoomRequest, id string) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context) (dto.RoomSummaryResponse, error)
}

type serviceImpl struct {
	repo            repository.Room
	reservationRepo reservationRepository.Reservation
	cfg             *config.Config
	cache           cache.RedisCache
	otel            otel.Otel
	s3              s3.S3
	producer        kafka.Client
}

func New(
	repo repository.Room,
	reservationRepo reservationRepository.Reservation,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	s3 s3.S3,
	producer kafka.Client,
) Room {
	return &serviceImpl{
		repo:            repo,
		reservationRepo: reservationRepo,
		cfg:             cfg,
		cache:           cache,
		otel:            otel,
		s3:              s3,
		producer:        producer,
	}
}

// FilterFreeNow is the listing filter for rooms nobody occupies today.
func FilterFreeNow() gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Value:    freeNowCondition,
				Operator: gDto.FilterPlainQuery,
			},
		},
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateRoomRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	taken, err := s.repo.Exist(ctx, filterByNumber(req.Number))
	if err != nil {
		log.Error().Err(err).Msg("failed to check room number")

		return fmt.Errorf("failed to check room number: %w", err)
	}

	if taken {
		return failure.Conflict("room number already in use") // nolint:wrapcheck
	}

	imageURL := constant.Empty
	var uploadedObjectName string
	if req.Image != nil {
		bucketName := s.cfg.External.S3.BucketName
		filename := objectName(req.Image.Filename)

		url, err := s.s3.UploadFile(ctx, bucketName, model.EntityName, req.ImageFile, req.Image, filename)
		if err != nil {
			log.Error().Err(err).Msg("failed to upload image to S3")

			return fmt.Errorf("failed to upload image: %w", err)
		}
		imageURL = url
		uploadedObjectName = filename
	}

	if err = s.repo.Insert(ctx, req.ToModel(user, imageURL)); err != nil {
		if uploadedObjectName != constant.Empty {
			bucketName := s.cfg.External.S3.BucketName
			_ = s.s3.DeleteFile(ctx, bucketName, model.EntityName, uploadedObjectName)
		}

		return err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllRoom)
		shared.InvalidateCaches(c, s.cache, cacheCountRoom)
		shared.InvalidateCaches(c, s.cache, cacheRoomSummary)
	}()

	return nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllRoom, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save rooms to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountRoom, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(nil)

	cacheKey := shared.BuildCacheKey(cacheGetRoom, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room")

		return res, nil
	}

	room, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return res, failure.NotFound("room not found") // nolint:wrapcheck
	}

	res.FromModel(room)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room to cache")
		}
	}()

	return res, nil
}

// Update replaces every attribute of a room. When the new capacity no longer
// fits an existing reservation's occupants, those reservations are cancelled
// in the same transaction and the affected guests are notified.
func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateRoomRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	currentRoom, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check room existence")

		return err
	}

	if currentRoom.ID == constant.Empty {
		log.Error().Msg("room not found")

		return failure.NotFound("room not found") // nolint:wrapcheck
	}

	if req.Number != currentRoom.Number {
		taken, err := s.repo.Exist(ctx, filterByNumber(req.Number))
		if err != nil {
			log.Error().Err(err).Msg("failed to check room number")

			return fmt.Errorf("failed to check room number: %w", err)
		}

		if taken {
			return failure.Conflict("room number already in use") // nolint:wrapcheck
		}
	}

	imageURL := constant.Empty
	var uploadedObjectName string
	bucketName := s.cfg.External.S3.BucketName

	if req.Image != nil {
		filename := objectName(req.Image.Filename)

		url, err := s.s3.UploadFile(ctx, bucketName, model.EntityName, req.ImageFile, req.Image, filename)
		if err != nil {
			return fmt.Errorf("failed to upload image: %w", err)
		}
		imageURL = url
		uploadedObjectName = filename
	}

	updatedFields := shared.TransformFields(req, user)
	if imageURL != constant.Empty {
		updatedFields[model.FieldImage] = imageURL
	}

	var cancelled []reservationModel.Reservation

	err = s.repo.InTx(ctx, func(tx *sqlx.Tx) error {
		if req.Capacity < currentRoom.Capacity {
			cancelled, err = s.forceCancelOverCapacity(ctx, tx, currentRoom.ID, req.Capacity)
			if err != nil {
				return err
			}
		}

		return s.repo.UpdateTx(ctx, tx, updatedFields, filter) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to update room")

		if uploadedObjectName != constant.Empty {
			_ = s.s3.DeleteFile(ctx, bucketName, model.EntityName, uploadedObjectName)
		}

		return fmt.Errorf("failed to update room: %w", err)
	}

	if imageURL != constant.Empty && currentRoom.ImageURL != constant.Empty {
		oldObjectName := s.s3.GetObjectNameFromURL(bucketName, currentRoom.ImageURL)
		if oldObjectName != constant.Empty {
			_ = s.s3.DeleteFile(ctx, bucketName, model.EntityName, oldObjectName)
		}
	}

	s.publishForceCancellations(ctx, currentRoom, cancelled)
	s.invalidate(ctx, currentRoom.ID)

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	room, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get room")

		return fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		log.Error().Msg("room not found")

		return failure.NotFound("room not found") // nolint:wrapcheck
	}

	reservationFilter := shared.FilterByID(id, reservationModel.FieldRoomID, reservationModel.TableName)

	var cancelled []reservationModel.Reservation

	err = s.repo.InTx(ctx, func(tx *sqlx.Tx) error {
		cancelled, err = s.reservationRepo.GetAllTx(ctx, tx, gDto.QueryParams{}, reservationFilter)
		if err != nil {
			return err
		}

		if len(cancelled) > 0 {
			if err := s.reservationRepo.DeleteTx(ctx, tx, reservationFilter); err != nil {
				return err
			}
		}

		return s.repo.DeleteTx(ctx, tx, filter) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to delete room")

		return fmt.Errorf("failed to delete room: %w", err)
	}

	if room.ImageURL != constant.Empty {
		bucketName := s.cfg.External.S3.BucketName

		oldObjectName := s.s3.GetObjectNameFromURL(bucketName, room.ImageURL)
		if oldObjectName != constant.Empty {
			_ = s.s3.DeleteFile(ctx, bucketName, model.EntityName, oldObjectName)
		}
	}

	s.publishRoomDeleted(ctx, room, cancelled)
	s.invalidate(ctx, id)

	return nil
}

// Summary aggregates the registry for the public browsing page: room totals,
// how many are free right now and the bounds used to seed search filters.
func (s *serviceImpl) Summary(ctx context.Context) (res dto.RoomSummaryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Summary")
	defer scope.End()
	defer scope.TraceIfError(err)

	err = s.cache.Get(ctx, cacheRoomSummary, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheRoomSummary).Msg("cache hit for room summary")

		return res, nil
	}

	total, err := s.repo.Count(ctx, gDto.FilterGroup{})
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	free, err := s.repo.Count(ctx, FilterFreeNow())
	if err != nil {
		log.Error().Err(err).Msg("failed to count free rooms")

		return res, fmt.Errorf("failed to count free rooms: %w", err)
	}

	bounds, err := s.repo.PriceBounds(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to get price bounds")

		return res, fmt.Errorf("failed to get price bounds: %w", err)
	}

	maxCapacity, err := s.repo.MaxCapacity(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to get max capacity")

		return res, fmt.Errorf("failed to get max capacity: %w", err)
	}

	res = dto.RoomSummaryResponse{
		TotalRooms:  total,
		FreeRooms:   free,
		MinPrice:    bounds.MinPrice,
		MaxPrice:    bounds.MaxPrice,
		MaxCapacity: maxCapacity,
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheRoomSummary, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room summary to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) forceCancelOverCapacity(ctx context.Context, tx *sqlx.Tx, roomID string, newCapacity int) ([]reservationModel.Reservation, error) {
	over, err := s.reservationRepo.OverCapacity(ctx, tx, roomID, newCapacity)
	if err != nil {
		return nil, err
	}

	if len(over) == 0 {
		return nil, nil
	}

	ids := make([]string, len(over))
	for i, res := range over {
		ids[i] = res.ID
	}

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    reservationModel.FieldID,
				Value:    ids,
				Operator: gDto.FilterOperatorIn,
				Table:    reservationModel.TableName,
			},
		},
	}

	if err := s.reservationRepo.DeleteTx(ctx, tx, filter); err != nil {
		return nil, err
	}

	log.Warn().Int("count", len(over)).Str("room_id", roomID).Msg("force-cancelled reservations exceeding new capacity")

	return over, nil
}

func (s *serviceImpl) publishForceCancellations(ctx context.Context, room model.Room, cancelled []reservationModel.Reservation) {
	if len(cancelled) == 0 {
		return
	}

	messages := make([]kafka.Message, len(cancelled))
	for i, res := range cancelled {
		messages[i] = kafka.Message{
			Key: events.KeyReservationForceCancelled,
			Value: events.ReservationEvent{
				ReservationID:     res.ID,
				UserID:            res.UserID,
				RoomID:            room.ID,
				RoomNumber:        room.Number,
				AccommodationDate: res.AccommodationDate,
				ReleaseDate:       res.ReleaseDate,
				Price:             res.Price,
				Reason:            "room capacity reduced below occupant count",
				OccurredAt:        timezone.Now(),
			},
		}
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.producer.SendMessages(c, s.cfg.Kafka.Topic, messages...); err != nil {
			log.Error().Err(err).Msg("failed to publish force cancellation events")
		}
	}()
}

func (s *serviceImpl) publishRoomDeleted(ctx context.Context, room model.Room, cancelled []reservationModel.Reservation) {
	ids := make([]string, len(cancelled))
	for i, res := range cancelled {
		ids[i] = res.ID
	}

	message := kafka.Message{
		Key: events.KeyRoomDeleted,
		Value: events.RoomDeletedEvent{
			RoomID:                 room.ID,
			RoomNumber:             room.Number,
			CancelledReservationID: ids,
			OccurredAt:             timezone.Now(),
		},
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.producer.SendMessages(c, s.cfg.Kafka.Topic, message); err != nil {
			log.Error().Err(err).Msg("failed to publish room deleted event")
		}
	}()
}

func (s *serviceImpl) invalidate(ctx context.Context, roomID string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetRoom, roomID)); err != nil {
			log.Error().Err(err).Msg("failed to delete room cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllRoom)
		shared.InvalidateCaches(c, s.cache, cacheCountRoom)
		shared.InvalidateCaches(c, s.cache, cacheRoomSummary)
	}()
}

func filterByNumber(number int) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldNumber,
				Value:    number,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
		},
	}
}

func objectName(originalName string) string {
	filename := uuid.NewString()

	parts := strings.Split(originalName, ".")
	if len(parts) > 1 {
		filename = fmt.Sprintf("%s.%s", filename, parts[len(parts)-1])
	}

	return filename
}
