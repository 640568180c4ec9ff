package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

type consumer interface {
	Run(ctx context.Context) error
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Consumer     consumer
	Dependencies []dependency
}

// Service checks its dependencies and then runs the settlement consumer.
type Service struct {
	logg     *logger.Logger
	consumer consumer
	deps     []dependency
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("settlement consumer is required")
	}
	return &Service{
		logg:     params.Logger,
		consumer: params.Consumer,
		deps:     params.Dependencies,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	err := s.consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
	return ctx.Err()
}
