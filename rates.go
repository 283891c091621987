package walletd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/yiplee/go-cache"
	"golang.org/x/sync/singleflight"
)

// BaseAsset is the crypto asset all rates are quoted against.
const BaseAsset = "ETH"

// ExchangeService serves market rates for the base asset and the list of
// supported local currencies.
type ExchangeService interface {
	GetRates(ctx context.Context, base string) (MarketRates, error)
	GetCurrencies(ctx context.Context) ([]string, error)
}

type exchangeClient struct {
	c *resty.Client
}

func NewExchangeClient(baseURL string) ExchangeService {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)

	return &exchangeClient{c: c}
}

func (e *exchangeClient) GetRates(ctx context.Context, base string) (MarketRates, error) {
	var body struct {
		Rates MarketRates `json:"rates"`
	}

	resp, err := e.c.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/v1/rates/" + base)

	if err != nil {
		return nil, fmt.Errorf("exchange: get rates: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("exchange: get rates: %s", resp.Status())
	}

	return body.Rates, nil
}

func (e *exchangeClient) GetCurrencies(ctx context.Context) ([]string, error) {
	var body struct {
		Currencies []string `json:"currencies"`
	}

	resp, err := e.c.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/v1/currencies")

	if err != nil {
		return nil, fmt.Errorf("exchange: get currencies: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("exchange: get currencies: %s", resp.Status())
	}

	return body.Currencies, nil
}

const currencyCacheTimeout = 5 * time.Minute

type cachedCurrencies struct {
	codes     []string
	fetchedAt time.Time
}

// RateFetcher fetches a fresh MarketRates snapshot per request, never
// caching rates between conversions. Supported currencies change rarely and
// are cached for a few minutes.
type RateFetcher struct {
	exchange   ExchangeService
	currencies *cache.Cache[string, cachedCurrencies]
	sf         singleflight.Group
}

func NewRateFetcher(exchange ExchangeService) *RateFetcher {
	return &RateFetcher{
		exchange:   exchange,
		currencies: cache.New[string, cachedCurrencies](),
	}
}

// Rates never fails: a fetch error falls back to an empty-but-valid rate
// set, so conversions yield zero instead of blocking on the exchange.
func (f *RateFetcher) Rates(ctx context.Context) MarketRates {
	rates, err := f.exchange.GetRates(ctx, BaseAsset)
	if err != nil {
		slog.Warn("fetch rates failed, using empty set", slog.Any("err", err))
		return MarketRates{}
	}

	if rates == nil {
		return MarketRates{}
	}

	return rates
}

func (f *RateFetcher) Currencies(ctx context.Context) ([]string, error) {
	if c, ok := f.currencies.Get(BaseAsset); ok && time.Since(c.fetchedAt) < currencyCacheTimeout {
		return c.codes, nil
	}

	v, err, _ := f.sf.Do("currencies", func() (interface{}, error) {
		codes, err := f.exchange.GetCurrencies(ctx)
		if err != nil {
			return nil, err
		}

		f.currencies.Set(BaseAsset, cachedCurrencies{
			codes:     codes,
			fetchedAt: time.Now(),
		})

		return codes, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]string), nil
}
