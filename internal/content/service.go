package content

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/content/v2.1"
	"google.golang.org/api/option"

	"github.com/commercekit-labs/merchantsync/internal/logger"
)

// Service wraps the Content API with rate limiting and error mapping for a
// single merchant account.
type Service struct {
	merchantID  uint64
	api         *content.APIService
	rateLimiter *RateLimiter
}

// NewService creates a Content API service for the merchant, mounted on an
// authorized HTTP client.
func NewService(ctx context.Context, merchantID uint64, hc *http.Client) (*Service, error) {
	return NewServiceWithRateLimit(ctx, merchantID, hc, DefaultRateLimit)
}

// NewServiceWithRateLimit creates a service with custom rate limiting.
func NewServiceWithRateLimit(
	ctx context.Context, merchantID uint64, hc *http.Client, cfg RateLimitConfig,
) (*Service, error) {
	api, err := content.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("create content service: %w", err)
	}
	return &Service{
		merchantID:  merchantID,
		api:         api,
		rateLimiter: NewRateLimiterWithConfig(cfg),
	}, nil
}

// MerchantID returns the merchant centre account ID.
func (s *Service) MerchantID() uint64 {
	return s.merchantID
}

// ListProducts fetches all products for the merchant, following pagination.
func (s *Service) ListProducts(ctx context.Context, pageSize int64) ([]*content.Product, error) {
	if pageSize <= 0 {
		pageSize = 250
	}

	var products []*content.Product
	var pageToken string

	for {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.api.Products.List(s.merchantID).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			s.recordIfRateLimited(err)
			return nil, fmt.Errorf("list products: %w", WrapError(err))
		}

		products = append(products, resp.Resources...)
		if resp.NextPageToken == "" {
			return products, nil
		}
		pageToken = resp.NextPageToken
	}
}

// GetProduct fetches a single product by its REST ID.
func (s *Service) GetProduct(ctx context.Context, productID string) (*content.Product, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	product, err := s.api.Products.Get(s.merchantID, productID).Context(ctx).Do()
	if err != nil {
		s.recordIfRateLimited(err)
		return nil, fmt.Errorf("get product %s: %w", productID, WrapError(err))
	}
	return product, nil
}

// InsertProduct uploads a product. Existing products with the same offer ID
// are replaced.
func (s *Service) InsertProduct(ctx context.Context, product *content.Product) (*content.Product, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	inserted, err := s.api.Products.Insert(s.merchantID, product).Context(ctx).Do()
	if err != nil {
		s.recordIfRateLimited(err)
		return nil, fmt.Errorf("insert product %s: %w", product.OfferId, WrapError(err))
	}
	return inserted, nil
}

// DeleteProduct removes a product by its REST ID.
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	if err := s.api.Products.Delete(s.merchantID, productID).Context(ctx).Do(); err != nil {
		s.recordIfRateLimited(err)
		return fmt.Errorf("delete product %s: %w", productID, WrapError(err))
	}
	return nil
}

// PushResult summarises a feed push.
type PushResult struct {
	Inserted int
	Failed   map[string]error // offer ID -> failure
}

// PushProducts uploads a batch of products one by one, collecting per-product
// failures instead of aborting the batch. Transient failures abort early so
// callers can retry the remainder.
func (s *Service) PushProducts(ctx context.Context, products []*content.Product) (*PushResult, error) {
	result := &PushResult{Failed: make(map[string]error)}

	for _, product := range products {
		if _, err := s.InsertProduct(ctx, product); err != nil {
			if IsRateLimited(err) || ctx.Err() != nil {
				return result, err
			}
			logger.Debugf("push: offer %s rejected: %v", product.OfferId, err)
			result.Failed[product.OfferId] = err
			continue
		}
		result.Inserted++
	}
	return result, nil
}

// recordIfRateLimited feeds 429 responses back into the limiter.
func (s *Service) recordIfRateLimited(err error) {
	if IsRetryable(err) {
		s.rateLimiter.RecordRateLimitError(RetryAfterSeconds(err))
	}
}
