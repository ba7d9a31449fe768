package advisory

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

// RESTClient обращается к сервису оценки по HTTP
type RESTClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *venue.HTTPClient
}

// NewRESTClient создает клиента сервиса оценки
func NewRESTClient(baseURL, apiKey string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		http:    venue.GetGlobalHTTPClient(),
	}
}

type assessResponse struct {
	Score     float64 `json:"score"`
	Narrative string  `json:"narrative"`
}

// Assess запрашивает оценку. Любая ошибка транспорта, таймаут или
// некорректный ответ схлопываются в ErrUnavailable: деталь для лога,
// нейтральная оценка для решения.
func (c *RESTClient) Assess(ctx context.Context, summary Summary) (*Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/assess", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out assessResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if out.Score < 0 || out.Score > 1 {
		return nil, fmt.Errorf("%w: score %v out of range", ErrUnavailable, out.Score)
	}

	return &Assessment{
		Score:     out.Score,
		Narrative: out.Narrative,
		CreatedAt: time.Now(),
	}, nil
}
