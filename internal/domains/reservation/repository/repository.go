package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"hotelier/infras/otel"
	"hotelier/infras/postgres"
	"hotelier/internal/domains/reservation/model"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/logger"
	gRepo "hotelier/shared/repository"
)

type Reservation interface {
	Insert(ctx context.Context, model model.Reservation) error
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Reservation) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Reservation, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Reservation, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Reservation, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error
	DeleteTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) error
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error

	Periods(ctx context.Context, sqltx *sqlx.Tx, roomID, excludeReservationID string) ([]model.Period, error)
	OverCapacity(ctx context.Context, sqltx *sqlx.Tx, roomID string, capacity int) ([]model.Reservation, error)

	Occupants(ctx context.Context, reservationID string) ([]model.Occupant, error)
	OccupantsByReservations(ctx context.Context, reservationIDs []string) ([]model.Occupant, error)
	InsertOccupantsTx(ctx context.Context, sqltx *sqlx.Tx, occupants []model.Occupant) error
	UpdateOccupantTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	DeleteOccupantsTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Reservation]
	occupants gRepo.Repository[model.Occupant]
	db        *postgres.Connection
	otel      otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Reservation {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Reservation](model.EntityName, model.TableName, model.FieldID, db, otel),
		occupants:  gRepo.NewRepository[model.Occupant](model.OccupantEntityName, model.OccupantTableName, model.OccupantFieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// Periods lists the occupied date ranges of a room. When sqltx is set the
// read happens inside that transaction so it sees rows behind the room lock.
func (repo *repositoryImpl) Periods(ctx context.Context, sqltx *sqlx.Tx, roomID, excludeReservationID string) (periods []model.Period, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".Periods")
	defer scope.End()
	defer scope.TraceIfError(err)

	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s = :room_id",
		model.FieldAccommodationDate, model.FieldReleaseDate, model.TableName, model.FieldRoomID,
	)

	args := map[string]any{"room_id": roomID}

	if excludeReservationID != constant.Empty {
		query += fmt.Sprintf(" AND %s != :exclude_id", model.FieldID)
		args["exclude_id"] = excludeReservationID
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if err = repo.selectNamed(ctx, sqltx, &periods, query, args); err != nil {
		logger.ErrorWithStack(err)

		return nil, fmt.Errorf("failed to get reservation periods: %w", err)
	}

	return periods, nil
}

// OverCapacity returns the reservations of a room whose occupant count,
// plus the booking user, exceeds the given capacity.
func (repo *repositoryImpl) OverCapacity(ctx context.Context, sqltx *sqlx.Tx, roomID string, capacity int) (reservations []model.Reservation, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".OverCapacity")
	defer scope.End()
	defer scope.TraceIfError(err)

	query := fmt.Sprintf(
		`SELECT r.* FROM %s r WHERE r.%s = :room_id
		AND (SELECT COUNT(*) + 1 FROM %s o WHERE o.%s = r.%s) > :capacity`,
		model.TableName, model.FieldRoomID,
		model.OccupantTableName, model.OccupantFieldReservationID, model.FieldID,
	)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	args := map[string]any{
		"room_id":  roomID,
		"capacity": capacity,
	}

	if err = repo.selectNamed(ctx, sqltx, &reservations, query, args); err != nil {
		logger.ErrorWithStack(err)

		return nil, fmt.Errorf("failed to get over-capacity reservations: %w", err)
	}

	return reservations, nil
}

func (repo *repositoryImpl) Occupants(ctx context.Context, reservationID string) ([]model.Occupant, error) {
	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.OccupantFieldReservationID,
				Value:    reservationID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.OccupantTableName,
			},
		},
	}

	params := gDto.QueryParams{SortBy: model.OccupantTableName + "." + constant.FieldCreatedAt, SortDir: "ASC"}

	return repo.occupants.GetAll(ctx, params, filter) //nolint:wrapcheck
}

func (repo *repositoryImpl) OccupantsByReservations(ctx context.Context, reservationIDs []string) ([]model.Occupant, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.OccupantFieldReservationID,
				Value:    reservationIDs,
				Operator: gDto.FilterOperatorIn,
				Table:    model.OccupantTableName,
			},
		},
	}

	params := gDto.QueryParams{SortBy: model.OccupantTableName + "." + constant.FieldCreatedAt, SortDir: "ASC"}

	return repo.occupants.GetAll(ctx, params, filter) //nolint:wrapcheck
}

func (repo *repositoryImpl) InsertOccupantsTx(ctx context.Context, sqltx *sqlx.Tx, occupants []model.Occupant) error {
	if len(occupants) == 0 {
		return nil
	}

	return repo.occupants.InsertBulkTx(ctx, sqltx, occupants) //nolint:wrapcheck
}

func (repo *repositoryImpl) UpdateOccupantTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error {
	return repo.occupants.UpdateTx(ctx, sqltx, req, filter) //nolint:wrapcheck
}

func (repo *repositoryImpl) DeleteOccupantsTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) error {
	return repo.occupants.DeleteTx(ctx, sqltx, filter) //nolint:wrapcheck
}

func (repo *repositoryImpl) selectNamed(ctx context.Context, sqltx *sqlx.Tx, dest any, query string, args map[string]any) error {
	var (
		prepare *sqlx.NamedStmt
		err     error
	)

	if sqltx != nil {
		prepare, err = sqltx.PrepareNamedContext(ctx, query)
	} else {
		prepare, err = repo.db.Read.PrepareNamedContext(ctx, query)
	}

	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer prepare.Close()

	if err = prepare.SelectContext(ctx, dest, args); err != nil {
		return fmt.Errorf("failed to select: %w", err)
	}

	return nil
}
