package product

import (
	"context"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Get hides inactive products from everyone but staff.
func (s *service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id, !utils.IsStaff(ctx))
}

func (s *service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListProducts"),
	)

	start := time.Now()

	limit, offset := utils.Paginate(opts.Limit, opts.Page)
	if opts.Page <= 0 {
		opts.Page = 1
	}
	opts.IncludeInactive = opts.IncludeInactive && utils.IsStaff(ctx)

	products, total, err := s.repo.List(ctx, opts, limit, offset)
	if err != nil {
		log.Error("failed to fetch product list",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	log.Info("get product list success",
		zap.Int("count", len(products)),
		zap.Int("total", total),
		zap.Int("page", opts.Page),
		zap.Int("limit", limit),
		zap.Duration("duration", time.Since(start)),
	)

	return &ListResult{
		Items:      products,
		TotalCount: total,
		Page:       opts.Page,
		Limit:      limit,
	}, nil
}
