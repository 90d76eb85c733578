package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"hotelier/config"
	kafkaMocks "hotelier/infras/kafka/mocks"
	"hotelier/infras/otel/mocks"
	s3Mocks "hotelier/infras/s3/mocks"
	reservationMocks "hotelier/internal/domains/reservation/mocks"
	reservationModel "hotelier/internal/domains/reservation/model"
	roomMocks "hotelier/internal/domains/room/mocks"
	"hotelier/internal/domains/room/model"
	"hotelier/internal/domains/room/model/dto"
	"hotelier/internal/domains/room/service"
	cacheMocks "hotelier/shared/cache/mocks"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/shared/timezone"
)

type roomFixture struct {
	svc             service.Room
	repo            *roomMocks.MockRoom
	reservationRepo *reservationMocks.MockReservation
	cache           *cacheMocks.MockRedisCache
	s3              *s3Mocks.MockS3
	producer        *kafkaMocks.MockClient
}

func newRoomFixture(ctrl *gomock.Controller) roomFixture {
	f := roomFixture{
		repo:            roomMocks.NewMockRoom(ctrl),
		reservationRepo: reservationMocks.NewMockReservation(ctrl),
		cache:           cacheMocks.NewMockRedisCache(ctrl),
		s3:              s3Mocks.NewMockS3(ctrl),
		producer:        kafkaMocks.NewMockClient(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Kafka.Topic = "hotelier.events"
	cfg.External.S3.BucketName = "hotelier"

	f.svc = service.New(f.repo, f.reservationRepo, cfg, f.cache, mocks.NewOtel(), f.s3, f.producer)

	return f
}

func (f roomFixture) expectAsyncSideEffects() {
	f.producer.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (f roomFixture) expectInTx() {
	f.repo.EXPECT().
		InTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
			return fn(nil)
		})
}

func adminContext() context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-1")

	return context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleAdmin)
}

func TestRoomService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRoomFixture(ctrl)
	f.expectAsyncSideEffects()

	req := dto.CreateRoomRequest{
		Number:        101,
		Type:          model.TypeDoubleBed,
		Capacity:      2,
		AdultPrice:    100,
		ChildrenPrice: 50,
	}

	tests := []struct {
		name      string
		setupMock func()
		wantErr   bool
		wantCode  int
	}{
		{
			name: "successful creation without image",
			setupMock: func() {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, room model.Room) error {
						assert.Equal(t, 101, room.Number)
						assert.Equal(t, model.TypeDoubleBed, room.Type)

						return nil
					})
			},
		},
		{
			name: "room number already in use",
			setupMock: func() {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "exist check error",
			setupMock: func() {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			err := f.svc.Create(adminContext(), req)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoomService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRoomFixture(ctrl)
	f.expectAsyncSideEffects()

	current := model.Room{
		ID:            uuid.NewString(),
		Number:        204,
		Type:          model.TypeStudio,
		Capacity:      4,
		AdultPrice:    120,
		ChildrenPrice: 60,
	}

	t.Run("capacity shrink force-cancels crowded reservations", func(t *testing.T) {
		req := dto.UpdateRoomRequest{
			Number:        current.Number,
			Type:          current.Type,
			Capacity:      2,
			AdultPrice:    current.AdultPrice,
			ChildrenPrice: current.ChildrenPrice,
		}

		crowded := []reservationModel.Reservation{
			{
				ID:                uuid.NewString(),
				UserID:            uuid.NewString(),
				RoomID:            current.ID,
				AccommodationDate: timezone.Today().AddDate(0, 0, 3),
				ReleaseDate:       timezone.Today().AddDate(0, 0, 6),
				Price:             1080,
			},
		}

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)

		f.expectInTx()

		f.reservationRepo.EXPECT().
			OverCapacity(gomock.Any(), gomock.Any(), current.ID, 2).
			Return(crowded, nil)

		f.reservationRepo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
				assert.Equal(t, 2, fields[model.FieldCapacity])

				return nil
			})

		err := f.svc.Update(adminContext(), req, current.ID)

		assert.NoError(t, err)
	})

	t.Run("capacity shrink with no crowded reservations cancels nothing", func(t *testing.T) {
		req := dto.UpdateRoomRequest{
			Number:        current.Number,
			Type:          current.Type,
			Capacity:      3,
			AdultPrice:    current.AdultPrice,
			ChildrenPrice: current.ChildrenPrice,
		}

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)

		f.expectInTx()

		f.reservationRepo.EXPECT().
			OverCapacity(gomock.Any(), gomock.Any(), current.ID, 3).
			Return(nil, nil)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		err := f.svc.Update(adminContext(), req, current.ID)

		assert.NoError(t, err)
	})

	t.Run("capacity grow skips the cancellation sweep", func(t *testing.T) {
		req := dto.UpdateRoomRequest{
			Number:        current.Number,
			Type:          current.Type,
			Capacity:      6,
			AdultPrice:    current.AdultPrice,
			ChildrenPrice: current.ChildrenPrice,
		}

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)

		f.expectInTx()

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		err := f.svc.Update(adminContext(), req, current.ID)

		assert.NoError(t, err)
	})

	t.Run("new number must be unique", func(t *testing.T) {
		req := dto.UpdateRoomRequest{
			Number:        301,
			Type:          current.Type,
			Capacity:      current.Capacity,
			AdultPrice:    current.AdultPrice,
			ChildrenPrice: current.ChildrenPrice,
		}

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)

		err := f.svc.Update(adminContext(), req, current.ID)

		assert.Error(t, err)
		assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	})

	t.Run("missing room", func(t *testing.T) {
		req := dto.UpdateRoomRequest{
			Number:   1,
			Type:     model.TypeDoubleBed,
			Capacity: 2,
		}

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Room{}, nil)

		err := f.svc.Update(adminContext(), req, uuid.NewString())

		assert.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestRoomService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRoomFixture(ctrl)
	f.expectAsyncSideEffects()

	room := model.Room{
		ID:       uuid.NewString(),
		Number:   101,
		Type:     model.TypeDoubleBed,
		Capacity: 2,
	}

	t.Run("deleting a room cancels its reservations first", func(t *testing.T) {
		reservations := []reservationModel.Reservation{
			{ID: uuid.NewString(), RoomID: room.ID},
			{ID: uuid.NewString(), RoomID: room.ID},
		}

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)

		f.expectInTx()

		f.reservationRepo.EXPECT().
			GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(reservations, nil)

		f.reservationRepo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		err := f.svc.Delete(adminContext(), room.ID)

		assert.NoError(t, err)
	})

	t.Run("room without reservations is deleted alone", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)

		f.expectInTx()

		f.reservationRepo.EXPECT().
			GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)

		f.repo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		err := f.svc.Delete(adminContext(), room.ID)

		assert.NoError(t, err)
	})

	t.Run("missing room", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Room{}, nil)

		err := f.svc.Delete(adminContext(), uuid.NewString())

		assert.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestRoomService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRoomFixture(ctrl)
	f.expectAsyncSideEffects()

	room := model.Room{
		ID:         uuid.NewString(),
		Number:     101,
		Type:       model.TypeDoubleBed,
		Capacity:   2,
		AdultPrice: 100,
	}

	tests := []struct {
		name      string
		setupMock func()
		wantErr   bool
		wantCode  int
	}{
		{
			name: "cache miss reads storage",
			setupMock: func() {
				f.cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)
			},
		},
		{
			name: "cache hit skips storage",
			setupMock: func() {
				f.cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, value any) error {
						res, _ := value.(*dto.RoomResponse)
						res.ID = room.ID
						res.Number = room.Number

						return nil
					})
			},
		},
		{
			name: "missing room",
			setupMock: func() {
				f.cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Room{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.Get(context.Background(), room.ID)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, room.ID, res.ID)
		})
	}
}

func TestRoomService_Summary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRoomFixture(ctrl)
	f.expectAsyncSideEffects()

	t.Run("aggregates registry counts and bounds", func(t *testing.T) {
		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(12, nil)
		f.repo.EXPECT().Count(gomock.Any(), service.FilterFreeNow()).Return(7, nil)
		f.repo.EXPECT().PriceBounds(gomock.Any()).Return(model.PriceBounds{MinPrice: 80, MaxPrice: 450}, nil)
		f.repo.EXPECT().MaxCapacity(gomock.Any()).Return(6, nil)

		res, err := f.svc.Summary(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 12, res.TotalRooms)
		assert.Equal(t, 7, res.FreeRooms)
		assert.InDelta(t, 80.0, res.MinPrice, 0.001)
		assert.InDelta(t, 450.0, res.MaxPrice, 0.001)
		assert.Equal(t, 6, res.MaxCapacity)
	})

	t.Run("served from cache when warm", func(t *testing.T) {
		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, value any) error {
				res, _ := value.(*dto.RoomSummaryResponse)
				res.TotalRooms = 12
				res.FreeRooms = 7

				return nil
			})

		res, err := f.svc.Summary(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 12, res.TotalRooms)
	})
}
