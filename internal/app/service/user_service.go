package service

import (
	"context"
	"log/slog"

	"github.com/mrops-br/price-watch-api/internal/app/dto"
	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UserService registers the users that subscriptions refer to
type UserService struct {
	store  domain.CatalogStore
	tracer trace.Tracer
	logger *slog.Logger
}

func NewUserService(store domain.CatalogStore, tracer trace.Tracer, logger *slog.Logger) *UserService {
	return &UserService{store: store, tracer: tracer, logger: logger}
}

// RegisterUser creates a user
func (s *UserService) RegisterUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserView, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.RegisterUser")
	defer span.End()

	user := &domain.User{Name: req.Name}
	if err := s.store.Users().Save(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to register user")
		s.logger.ErrorContext(ctx, "Failed to register user",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	s.logger.InfoContext(ctx, "User registered",
		slog.Int64("user_id", user.ID),
	)

	span.SetStatus(codes.Ok, "User registered")
	view := dto.ToUserView(user)
	return &view, nil
}
