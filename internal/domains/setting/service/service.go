package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Setting=MockSettingService

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"hotelier/config"
	"hotelier/infras/otel"
	"hotelier/internal/domains/setting/model"
	"hotelier/internal/domains/setting/model/dto"
	"hotelier/internal/domains/setting/repository"
	"hotelier/shared"
	"hotelier/shared/cache"
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/failure"
)

const (
	cacheGetSetting    = "setting:get"
	cacheGetAllSetting = "setting:gets"
	cachePriceSetting  = "setting:price"
)

// Setting is the pricing catalog: named values such as the per-night
// breakfast and all-inclusive rates, served from cache when warm.
type Setting interface {
	Create(ctx context.Context, req dto.CreateSettingRequest) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetSettingsResponse, error)
	Get(ctx context.Context, key string) (dto.SettingResponse, error)
	Update(ctx context.Context, req dto.UpdateSettingRequest, key string) error
	Delete(ctx context.Context, key string) error
	BreakfastPrice(ctx context.Context) (float64, error)
	AllInclusivePrice(ctx context.Context) (float64, error)
}

type serviceImpl struct {
	repo  repository.Setting
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Setting, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Setting {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateSettingRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(req.Key, model.FieldKey, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if setting exists")

		return fmt.Errorf("failed to check if setting exists: %w", err)
	}

	if exist {
		return failure.Conflict("setting already exists") // nolint:wrapcheck
	}

	if err = s.repo.Insert(ctx, req.ToModel(user)); err != nil {
		log.Error().Err(err).Msg("failed to create setting")

		return fmt.Errorf("failed to create setting: %w", err)
	}

	s.invalidate(ctx, req.Key)

	return nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetSettingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllSetting, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for settings")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count settings")

		return res, fmt.Errorf("failed to count settings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get settings")

		return res, fmt.Errorf("failed to get settings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save settings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, key string) (res dto.SettingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(nil)

	cacheKey := shared.BuildCacheKey(cacheGetSetting, key)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for setting")

		return res, nil
	}

	setting, err := s.repo.Get(ctx, shared.FilterByID(key, model.FieldKey, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get setting")

		return res, fmt.Errorf("failed to get setting: %w", err)
	}

	if setting.Key == constant.Empty {
		return res, failure.NotFound("setting not found") // nolint:wrapcheck
	}

	res.FromModel(setting)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save setting to cache")
		}
	}()

	return res, nil
}

// Update changes an existing setting's value. A missing key is a silent
// no-op: the catalog only ever grows through Create.
func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateSettingRequest, key string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(key, model.FieldKey, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if setting exists")

		return fmt.Errorf("failed to check if setting exists: %w", err)
	}

	if !exist {
		log.Warn().Str("key", key).Msg("setting not found, skipping update")

		return nil
	}

	updatedFields := shared.TransformFields(req, user)
	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update setting")

		return fmt.Errorf("failed to update setting: %w", err)
	}

	s.invalidate(ctx, key)

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, key string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := shared.FilterByID(key, model.FieldKey, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if setting exists")

		return fmt.Errorf("failed to check if setting exists: %w", err)
	}

	if !exist {
		return failure.NotFound("setting not found") // nolint:wrapcheck
	}

	if err = s.repo.Delete(ctx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete setting")

		return fmt.Errorf("failed to delete setting: %w", err)
	}

	s.invalidate(ctx, key)

	return nil
}

func (s *serviceImpl) BreakfastPrice(ctx context.Context) (float64, error) {
	return s.price(ctx, constant.SettingKeyBreakfastPrice)
}

func (s *serviceImpl) AllInclusivePrice(ctx context.Context) (float64, error) {
	return s.price(ctx, constant.SettingKeyAllInclusivePrice)
}

func (s *serviceImpl) price(ctx context.Context, key string) (price float64, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".price")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cachePriceSetting, key)

	var cached string

	err = s.cache.Get(ctx, cacheKey, &cached)
	if err == nil {
		price, err = strconv.ParseFloat(cached, 64)
		if err == nil {
			return price, nil
		}

		log.Warn().Str("key", key).Str("value", cached).Msg("invalid cached price, falling through to storage")
	}

	setting, err := s.repo.Get(ctx, shared.FilterByID(key, model.FieldKey, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to get price setting")

		return 0, fmt.Errorf("failed to get price setting: %w", err)
	}

	if setting.Key == constant.Empty {
		return 0, failure.NotFound("setting not found") // nolint:wrapcheck
	}

	price, err = strconv.ParseFloat(setting.Value, 64)
	if err != nil {
		log.Error().Err(err).Str("key", key).Str("value", setting.Value).Msg("price setting is not a number")

		return 0, failure.Validation("price setting is not a number") // nolint:wrapcheck
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, setting.Value, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save price setting to cache")
		}
	}()

	return price, nil
}

func (s *serviceImpl) invalidate(ctx context.Context, key string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetSetting, key)); err != nil {
			log.Error().Err(err).Msg("failed to delete setting cache")
		}

		// price calculations read both rates, so an administrative change
		// drops both hot price entries rather than just the touched one
		for _, priceKey := range []string{constant.SettingKeyBreakfastPrice, constant.SettingKeyAllInclusivePrice} {
			if err := s.cache.Delete(c, shared.BuildCacheKey(cachePriceSetting, priceKey)); err != nil {
				log.Error().Err(err).Str("key", priceKey).Msg("failed to delete price setting cache")
			}
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllSetting)
	}()
}
