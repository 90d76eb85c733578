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
	reservationMocks "hotelier/internal/domains/reservation/mocks"
	"hotelier/internal/domains/reservation/model"
	"hotelier/internal/domains/reservation/model/dto"
	"hotelier/internal/domains/reservation/service"
	roomMocks "hotelier/internal/domains/room/mocks"
	roomModel "hotelier/internal/domains/room/model"
	settingMocks "hotelier/internal/domains/setting/mocks"
	cacheMocks "hotelier/shared/cache/mocks"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"
)

type reservationFixture struct {
	svc      service.Reservation
	repo     *reservationMocks.MockReservation
	roomRepo *roomMocks.MockRoom
	settings *settingMocks.MockSettingService
	cache    *cacheMocks.MockRedisCache
	producer *kafkaMocks.MockClient
}

func newReservationFixture(ctrl *gomock.Controller) reservationFixture {
	f := reservationFixture{
		repo:     reservationMocks.NewMockReservation(ctrl),
		roomRepo: roomMocks.NewMockRoom(ctrl),
		settings: settingMocks.NewMockSettingService(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
		producer: kafkaMocks.NewMockClient(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Kafka.Topic = "hotelier.events"

	f.svc = service.New(f.repo, f.roomRepo, f.settings, cfg, f.cache, mocks.NewOtel(), f.producer)

	return f
}

func (f reservationFixture) expectAsyncSideEffects() {
	f.producer.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (f reservationFixture) expectInTx() {
	f.repo.EXPECT().
		InTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
			return fn(nil)
		})
}

func userContext(userID, role string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, userID)

	return context.WithValue(ctx, constant.ContextKeyUserRole, role)
}

func futureDate(days int) string {
	return timezone.Format(timezone.Today().AddDate(0, 0, days), constant.DateOnlyFormat)
}

func boolPtr(v bool) *bool {
	return &v
}

func TestReservationService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReservationFixture(ctrl)
	f.expectAsyncSideEffects()

	room := roomModel.Room{
		ID:            uuid.NewString(),
		Number:        101,
		Capacity:      3,
		AdultPrice:    100,
		ChildrenPrice: 50,
	}

	baseReq := func() dto.CreateReservationRequest {
		return dto.CreateReservationRequest{
			RoomID:            room.ID,
			AccommodationDate: futureDate(10),
			ReleaseDate:       futureDate(13),
			IncludesBreakfast: true,
			Occupants: []dto.OccupantRequest{
				{FullName: "Alice Tan", IsAdult: boolPtr(true)},
				{FullName: "Ben Tan", IsAdult: boolPtr(false)},
			},
		}
	}

	tests := []struct {
		name      string
		req       func() dto.CreateReservationRequest
		setupMock func()
		wantErr   bool
		wantCode  int
		check     func(t *testing.T, res dto.ReservationResponse)
	}{
		{
			name: "successful creation",
			req:  baseReq,
			setupMock: func() {
				f.expectInTx()

				f.roomRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(room, nil)

				f.repo.EXPECT().
					Periods(gomock.Any(), gomock.Any(), room.ID, constant.Empty).
					Return(nil, nil)

				f.settings.EXPECT().BreakfastPrice(gomock.Any()).Return(15.0, nil)
				f.settings.EXPECT().AllInclusivePrice(gomock.Any()).Return(40.0, nil)

				f.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				f.repo.EXPECT().
					InsertOccupantsTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			check: func(t *testing.T, res dto.ReservationResponse) {
				t.Helper()

				// 3 nights * (1 adult*100 + 1 child*50 + booking user's 100 + breakfast 15)
				assert.InDelta(t, 795.0, res.Price, 0.001)
				assert.Len(t, res.Occupants, 2)
			},
		},
		{
			name: "room not found",
			req:  baseReq,
			setupMock: func() {
				f.expectInTx()

				f.roomRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(roomModel.Room{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name: "occupants exceed room capacity",
			req: func() dto.CreateReservationRequest {
				req := baseReq()
				req.Occupants = append(req.Occupants, dto.OccupantRequest{FullName: "Cara Tan", IsAdult: boolPtr(false)})

				return req
			},
			setupMock: func() {
				f.expectInTx()

				f.roomRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(room, nil)
			},
			wantErr:  true,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "room already reserved for the period",
			req:  baseReq,
			setupMock: func() {
				f.expectInTx()

				f.roomRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(room, nil)

				f.repo.EXPECT().
					Periods(gomock.Any(), gomock.Any(), room.ID, constant.Empty).
					Return([]model.Period{
						{
							AccommodationDate: timezone.Today().AddDate(0, 0, 12),
							ReleaseDate:       timezone.Today().AddDate(0, 0, 15),
						},
					}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "malformed accommodation date",
			req: func() dto.CreateReservationRequest {
				req := baseReq()
				req.AccommodationDate = "not-a-date"

				return req
			},
			setupMock: func() {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "insert error rolls the stay back",
			req:  baseReq,
			setupMock: func() {
				f.expectInTx()

				f.roomRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(room, nil)

				f.repo.EXPECT().
					Periods(gomock.Any(), gomock.Any(), room.ID, constant.Empty).
					Return(nil, nil)

				f.settings.EXPECT().BreakfastPrice(gomock.Any()).Return(15.0, nil)
				f.settings.EXPECT().AllInclusivePrice(gomock.Any()).Return(40.0, nil)

				f.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("insert error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.Create(userContext("guest-1", constant.RoleUser), tt.req())

			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}

func TestReservationService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReservationFixture(ctrl)
	f.expectAsyncSideEffects()

	ownerID := uuid.NewString()
	keepID := uuid.NewString()
	dropID := uuid.NewString()

	room := roomModel.Room{
		ID:            uuid.NewString(),
		Number:        204,
		Capacity:      3,
		AdultPrice:    120,
		ChildrenPrice: 60,
	}

	current := model.Reservation{
		ID:                uuid.NewString(),
		UserID:            ownerID,
		RoomID:            room.ID,
		AccommodationDate: timezone.Today().AddDate(0, 0, 5),
		ReleaseDate:       timezone.Today().AddDate(0, 0, 8),
		Price:             720,
		Metadata:          gModel.Metadata{CreatedBy: ownerID},
	}

	existing := []model.Occupant{
		{ID: keepID, ReservationID: current.ID, FullName: "Alice Tan", IsAdult: true},
		{ID: dropID, ReservationID: current.ID, FullName: "Ben Tan", IsAdult: true},
	}

	req := dto.UpdateReservationRequest{
		RoomID:            room.ID,
		AccommodationDate: futureDate(6),
		ReleaseDate:       futureDate(9),
		Occupants: []dto.OccupantRequest{
			{ID: keepID, FullName: "Alice Lim", IsAdult: boolPtr(true)},
			{FullName: "Dana Lim", IsAdult: boolPtr(false)},
		},
	}

	t.Run("owner replaces stay and occupant list", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)

		f.expectInTx()

		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(room, nil)

		f.repo.EXPECT().
			Periods(gomock.Any(), gomock.Any(), room.ID, current.ID).
			Return(nil, nil)

		f.settings.EXPECT().BreakfastPrice(gomock.Any()).Return(15.0, nil)
		f.settings.EXPECT().AllInclusivePrice(gomock.Any()).Return(40.0, nil)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().Occupants(gomock.Any(), current.ID).Return(existing, nil)

		f.repo.EXPECT().
			UpdateOccupantTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
				assert.Equal(t, "Alice Lim", fields[model.OccupantFieldFullName])

				return nil
			})

		f.repo.EXPECT().
			DeleteOccupantsTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().
			InsertOccupantsTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, occupants []model.Occupant) error {
				assert.Len(t, occupants, 1)
				assert.Equal(t, "Dana Lim", occupants[0].FullName)

				return nil
			})

		res, err := f.svc.Update(userContext(ownerID, constant.RoleUser), req, current.ID)

		assert.NoError(t, err)
		assert.Len(t, res.Occupants, 2)
		// 3 nights * (1 adult*120 + 1 child*60 + booking user's 120)
		assert.InDelta(t, 900.0, res.Price, 0.001)
	})

	t.Run("resubmitting the reconciled list changes nothing", func(t *testing.T) {
		danaID := uuid.NewString()

		settled := []model.Occupant{
			{ID: keepID, ReservationID: current.ID, FullName: "Alice Lim", IsAdult: true},
			{ID: danaID, ReservationID: current.ID, FullName: "Dana Lim", IsAdult: false},
		}

		again := req
		again.Occupants = []dto.OccupantRequest{
			{ID: keepID, FullName: "Alice Lim", IsAdult: boolPtr(true)},
			{ID: danaID, FullName: "Dana Lim", IsAdult: boolPtr(false)},
		}

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)

		f.expectInTx()

		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(room, nil)

		f.repo.EXPECT().
			Periods(gomock.Any(), gomock.Any(), room.ID, current.ID).
			Return(nil, nil)

		f.settings.EXPECT().BreakfastPrice(gomock.Any()).Return(15.0, nil)
		f.settings.EXPECT().AllInclusivePrice(gomock.Any()).Return(40.0, nil)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().Occupants(gomock.Any(), current.ID).Return(settled, nil)

		// both occupants are known, so the pass updates in place only:
		// no inserts and no deletes
		f.repo.EXPECT().
			UpdateOccupantTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil).
			Times(2)

		res, err := f.svc.Update(userContext(ownerID, constant.RoleUser), again, current.ID)

		assert.NoError(t, err)
		assert.Len(t, res.Occupants, 2)
	})

	t.Run("stranger is told the reservation does not exist", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)

		_, err := f.svc.Update(userContext(uuid.NewString(), constant.RoleUser), req, current.ID)

		assert.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})

	t.Run("employee may update on the guest's behalf", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil)

		f.expectInTx()

		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(room, nil)

		f.repo.EXPECT().
			Periods(gomock.Any(), gomock.Any(), room.ID, current.ID).
			Return(nil, nil)

		f.settings.EXPECT().BreakfastPrice(gomock.Any()).Return(15.0, nil)
		f.settings.EXPECT().AllInclusivePrice(gomock.Any()).Return(40.0, nil)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().Occupants(gomock.Any(), current.ID).Return(existing, nil)

		f.repo.EXPECT().
			UpdateOccupantTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().
			DeleteOccupantsTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.repo.EXPECT().
			InsertOccupantsTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		_, err := f.svc.Update(userContext(uuid.NewString(), constant.RoleEmployee), req, current.ID)

		assert.NoError(t, err)
	})

	t.Run("missing reservation", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Reservation{}, nil)

		_, err := f.svc.Update(userContext(ownerID, constant.RoleUser), req, uuid.NewString())

		assert.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestReservationService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReservationFixture(ctrl)
	f.expectAsyncSideEffects()

	ownerID := uuid.NewString()

	reservation := model.Reservation{
		ID:     uuid.NewString(),
		UserID: ownerID,
		RoomID: uuid.NewString(),
	}

	tests := []struct {
		name      string
		ctx       context.Context
		setupMock func()
		wantErr   bool
		wantCode  int
	}{
		{
			name: "owner cancels their stay",
			ctx:  userContext(ownerID, constant.RoleUser),
			setupMock: func() {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(reservation, nil)
				f.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)
				f.roomRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{ID: reservation.RoomID, Number: 101}, nil)
			},
		},
		{
			name: "admin cancels any stay",
			ctx:  userContext(uuid.NewString(), constant.RoleAdmin),
			setupMock: func() {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(reservation, nil)
				f.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)
				f.roomRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{ID: reservation.RoomID, Number: 101}, nil)
			},
		},
		{
			name: "stranger is told the reservation does not exist",
			ctx:  userContext(uuid.NewString(), constant.RoleUser),
			setupMock: func() {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(reservation, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name: "missing reservation",
			ctx:  userContext(ownerID, constant.RoleUser),
			setupMock: func() {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Reservation{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			err := f.svc.Delete(tt.ctx, reservation.ID)

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

func TestReservationService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReservationFixture(ctrl)
	f.expectAsyncSideEffects()

	ownerID := uuid.NewString()

	reservation := model.Reservation{
		ID:                uuid.NewString(),
		UserID:            ownerID,
		RoomID:            uuid.NewString(),
		AccommodationDate: timezone.Today().AddDate(0, 0, 3),
		ReleaseDate:       timezone.Today().AddDate(0, 0, 5),
		Price:             240,
	}

	t.Run("owner reads from storage on cache miss", func(t *testing.T) {
		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(reservation, nil)
		f.repo.EXPECT().Occupants(gomock.Any(), reservation.ID).Return([]model.Occupant{
			{ID: uuid.NewString(), ReservationID: reservation.ID, FullName: "Alice Tan", IsAdult: true},
		}, nil)

		res, err := f.svc.Get(userContext(ownerID, constant.RoleUser), reservation.ID)

		assert.NoError(t, err)
		assert.Equal(t, reservation.ID, res.ID)
		assert.Len(t, res.Occupants, 1)
	})

	t.Run("cache hit still checks ownership", func(t *testing.T) {
		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, value any) error {
				res, _ := value.(*dto.ReservationResponse)
				res.ID = reservation.ID
				res.UserID = ownerID

				return nil
			})

		_, err := f.svc.Get(userContext(uuid.NewString(), constant.RoleUser), reservation.ID)

		assert.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})

	t.Run("missing reservation", func(t *testing.T) {
		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Reservation{}, nil)

		_, err := f.svc.Get(userContext(ownerID, constant.RoleUser), uuid.NewString())

		assert.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestReservationService_Available(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReservationFixture(ctrl)

	roomID := uuid.NewString()

	occupied := []model.Period{
		{
			AccommodationDate: timezone.Today().AddDate(0, 0, 10),
			ReleaseDate:       timezone.Today().AddDate(0, 0, 15),
		},
	}

	tests := []struct {
		name          string
		accommodation string
		release       string
		setupMock     func()
		want          bool
		wantErr       bool
	}{
		{
			name:          "free period",
			accommodation: futureDate(1),
			release:       futureDate(5),
			setupMock: func() {
				f.roomRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.repo.EXPECT().Periods(gomock.Any(), gomock.Nil(), roomID, constant.Empty).Return(occupied, nil)
			},
			want: true,
		},
		{
			name:          "occupied period reports unavailable without error",
			accommodation: futureDate(12),
			release:       futureDate(14),
			setupMock: func() {
				f.roomRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.repo.EXPECT().Periods(gomock.Any(), gomock.Nil(), roomID, constant.Empty).Return(occupied, nil)
			},
			want: false,
		},
		{
			name:          "unknown room",
			accommodation: futureDate(1),
			release:       futureDate(5),
			setupMock: func() {
				f.roomRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
			},
			wantErr: true,
		},
		{
			name:          "reversed dates",
			accommodation: futureDate(5),
			release:       futureDate(1),
			setupMock: func() {
				f.roomRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.repo.EXPECT().Periods(gomock.Any(), gomock.Nil(), roomID, constant.Empty).Return(occupied, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			available, err := f.svc.Available(context.Background(), roomID, tt.accommodation, tt.release)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, available)
		})
	}
}
