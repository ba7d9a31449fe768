package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"chainarb/internal/venue"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RESTBridge обращается к шлюзу моста по HTTP. Запрос на перевод
// отправляется ровно один раз: повторная отправка может продублировать
// необратимый перевод.
type RESTBridge struct {
	baseURL string
	apiKey  string
	feePct  float64 // комиссия по умолчанию, если шлюз не отдаёт маршруты
	http    *venue.HTTPClient
}

// RESTBridgeConfig описывает шлюз моста
type RESTBridgeConfig struct {
	BaseURL       string
	APIKey        string
	DefaultFeePct float64
}

// NewRESTBridge создает REST клиента моста
func NewRESTBridge(cfg RESTBridgeConfig) *RESTBridge {
	feePct := cfg.DefaultFeePct
	if feePct <= 0 {
		feePct = 0.5
	}
	return &RESTBridge{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		feePct:  feePct,
		http:    venue.GetGlobalHTTPClient(),
	}
}

// transferRequest - заявка шлюзу моста
type transferRequest struct {
	FromChain string  `json:"from_chain"`
	ToChain   string  `json:"to_chain"`
	Token     string  `json:"token"`
	Amount    float64 `json:"amount"`
}

// transferResponse - результат перевода
type transferResponse struct {
	ReceivedAmount float64 `json:"received_amount"`
	ReferenceID    string  `json:"reference_id"`
}

// Transfer переносит стоимость между сетями. Без транспортных повторов.
func (b *RESTBridge) Transfer(ctx context.Context, from, to, token string, amount float64) (*Receipt, error) {
	body, err := json.Marshal(transferRequest{
		FromChain: from, ToChain: to, Token: token, Amount: amount,
	})
	if err != nil {
		return nil, b.wrapErr(from, to, "marshal", err, false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, b.wrapErr(from, to, "request", err, false)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("X-API-Key", b.apiKey)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, b.wrapErr(from, to, "transport", err, true)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, b.wrapErr(from, to, "read", err, true)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, b.wrapErr(from, to, fmt.Sprintf("http_%d", resp.StatusCode),
			fmt.Errorf("transfer rejected: %.200s", string(data)), resp.StatusCode >= 500)
	}

	var out transferResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, b.wrapErr(from, to, "decode", err, false)
	}
	if out.ReceivedAmount <= 0 || out.ReceivedAmount > amount {
		// Мост не может отдать больше, чем получил
		return nil, b.wrapErr(from, to, "bad_receipt",
			fmt.Errorf("received %v of %v", out.ReceivedAmount, amount), false)
	}

	return &Receipt{
		ReceivedAmount: out.ReceivedAmount,
		ReferenceID:    out.ReferenceID,
		CompletedAt:    time.Now(),
	}, nil
}

// FeePct возвращает комиссию маршрута
func (b *RESTBridge) FeePct(_, _ string) (float64, error) {
	return b.feePct, nil
}

func (b *RESTBridge) Close() error { return nil }

func (b *RESTBridge) wrapErr(from, to, code string, err error, transient bool) error {
	return &Error{
		From:      from,
		To:        to,
		Code:      code,
		Message:   err.Error(),
		Transient: transient,
		Original:  err,
	}
}
