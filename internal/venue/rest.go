package venue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"chainarb/internal/chain"
	"chainarb/internal/models"
	"chainarb/pkg/ratelimit"
	"chainarb/pkg/retry"
)

// Быстрый JSON кодек, совместимый со стандартной библиотекой
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Параметры rate limit шлюзов: котировки каждый цикл, burst на фан-аут
const (
	gatewayRatePerSec = 20.0
	gatewayBurst      = 40.0
)

// RESTVenue обращается к шлюзу DEX-агрегатора по HTTP.
// Транспортные ошибки помечаются как временные: возможность
// будет переоткрыта следующим циклом сканирования, повторов
// внутри исполнения ноги нет.
type RESTVenue struct {
	name    string
	chain   string
	baseURL string
	apiKey  string

	http    *HTTPClient
	limiter *ratelimit.RateLimiter
	retry   retry.Config
	gas     chain.GasOracle
	pairs   map[string]bool // поддерживаемые пары, пусто = все
}

// RESTVenueConfig описывает один шлюз площадки
type RESTVenueConfig struct {
	Name    string
	Chain   string
	BaseURL string
	APIKey  string
	Pairs   []string // BASE/QUOTE; пусто = без ограничения
}

// NewRESTVenue создает REST клиента площадки
func NewRESTVenue(cfg RESTVenueConfig, gas chain.GasOracle) *RESTVenue {
	pairs := make(map[string]bool, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		pairs[strings.ToUpper(p)] = true
	}
	return &RESTVenue{
		name:    cfg.Name,
		chain:   cfg.Chain,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    GetGlobalHTTPClient(),
		limiter: ratelimit.NewRateLimiter(gatewayRatePerSec, gatewayBurst),
		retry:   retry.ConservativeConfig(),
		gas:     gas,
		pairs:   pairs,
	}
}

func (v *RESTVenue) Name() string  { return v.name }
func (v *RESTVenue) Chain() string { return v.chain }

func (v *RESTVenue) SupportsPair(pair models.TokenPair) bool {
	if len(v.pairs) == 0 {
		return true
	}
	return v.pairs[strings.ToUpper(pair.String())]
}

// quoteResponse - ответ шлюза на запрос котировки
type quoteResponse struct {
	Price  float64 `json:"price"`
	GasUSD float64 `json:"gas_usd"`
}

// Quote запрашивает цену пары у шлюза. Оценка газа шлюза
// замещается оракулом, если шлюз её не вернул.
func (v *RESTVenue) Quote(ctx context.Context, pair models.TokenPair) (*Quote, error) {
	if !v.SupportsPair(pair) {
		return nil, ErrPairNotSupported
	}

	query := url.Values{}
	query.Set("base", pair.Base)
	query.Set("quote", pair.Quote)
	endpoint := fmt.Sprintf("%s/v1/quote?%s", v.baseURL, query.Encode())

	var resp quoteResponse
	if err := v.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Price <= 0 {
		return nil, v.wrapErr("bad_quote", fmt.Errorf("non-positive price %v", resp.Price), false)
	}

	gasUSD := resp.GasUSD
	if gasUSD <= 0 && v.gas != nil {
		if est, err := v.gas.GasCostUSD(ctx, v.chain); err == nil {
			gasUSD = est
		}
	}

	return &Quote{
		Chain:       v.chain,
		Venue:       v.name,
		Pair:        pair,
		Price:       resp.Price,
		GasUSD:      gasUSD,
		RetrievedAt: time.Now(),
	}, nil
}

// orderRequest - заявка шлюзу
type orderRequest struct {
	Side   string  `json:"side"` // buy, sell
	Base   string  `json:"base"`
	Quote  string  `json:"quote"`
	Amount float64 `json:"amount"` // капитал для buy, количество для sell
}

// orderResponse - результат исполнения заявки
type orderResponse struct {
	ReceivedAmount float64 `json:"received_amount"`
	AvgPrice       float64 `json:"avg_price"`
	ReferenceID    string  `json:"reference_id"`
}

// Buy покупает базовый токен на указанный капитал
func (v *RESTVenue) Buy(ctx context.Context, pair models.TokenPair, capital float64) (*Fill, error) {
	return v.submitOrder(ctx, orderRequest{
		Side: "buy", Base: pair.Base, Quote: pair.Quote, Amount: capital,
	})
}

// Sell продаёт указанное количество базового токена
func (v *RESTVenue) Sell(ctx context.Context, pair models.TokenPair, amount float64) (*Fill, error) {
	return v.submitOrder(ctx, orderRequest{
		Side: "sell", Base: pair.Base, Quote: pair.Quote, Amount: amount,
	})
}

// submitOrder отправляет заявку без транспортных повторов:
// повторная отправка исполненной заявки удваивает позицию
func (v *RESTVenue) submitOrder(ctx context.Context, req orderRequest) (*Fill, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, v.wrapErr("ratelimit", err, true)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, v.wrapErr("marshal", err, false)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, v.wrapErr("request", err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	v.authorize(httpReq)

	httpResp, err := v.http.Do(httpReq)
	if err != nil {
		return nil, v.wrapErr("transport", err, true)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, v.wrapErr("read", err, true)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, v.wrapErr(fmt.Sprintf("http_%d", httpResp.StatusCode),
			fmt.Errorf("order rejected: %s", truncate(string(data), 200)),
			httpResp.StatusCode >= 500)
	}

	var resp orderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, v.wrapErr("decode", err, false)
	}
	if resp.ReceivedAmount <= 0 {
		return nil, v.wrapErr("bad_fill", fmt.Errorf("non-positive received amount %v", resp.ReceivedAmount), false)
	}

	return &Fill{
		ReceivedAmount: resp.ReceivedAmount,
		AvgPrice:       resp.AvgPrice,
		ReferenceID:    resp.ReferenceID,
		ExecutedAt:     time.Now(),
	}, nil
}

// getJSON выполняет GET с rate limit и транспортными повторами.
// Повторы допустимы только для чтения: котировка идемпотентна.
func (v *RESTVenue) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if err := v.limiter.Wait(ctx); err != nil {
		return v.wrapErr("ratelimit", err, true)
	}

	data, err := retry.DoWithResult(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		v.authorize(req)

		resp, err := v.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
			if resp.StatusCode >= 500 {
				return nil, err
			}
			return nil, retry.Permanent(err)
		}
		return body, nil
	}, v.retry)
	if err != nil {
		return v.wrapErr("transport", err, true)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return v.wrapErr("decode", err, false)
	}
	return nil
}

func (v *RESTVenue) authorize(req *http.Request) {
	if v.apiKey != "" {
		req.Header.Set("X-API-Key", v.apiKey)
	}
}

func (v *RESTVenue) wrapErr(code string, err error, transient bool) error {
	return &Error{
		Venue:     v.name,
		Chain:     v.chain,
		Code:      code,
		Message:   err.Error(),
		Transient: transient,
		Original:  err,
	}
}

// Close освобождает ресурсы; глобальный HTTP клиент закрывается отдельно
func (v *RESTVenue) Close() error { return nil }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
