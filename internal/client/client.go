package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go_saas_scaffold/internal/config"
)

// ErrUnauthenticated は401受信時に返されます。受信時点でセッションは破棄済みです。
var ErrUnauthenticated = errors.New("client: unauthenticated")

// APIError はサーバーが返したエラーレスポンスです。
// Message はレスポンスボディから抽出した人間可読のメッセージです。
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("client: request failed with status %d", e.StatusCode)
}

// APIClient はベースURL・認証トークン・テナントヘッダーを全リクエストに適用する
// HTTPクライアントです。セッションは SessionStore 経由で読み書きします。
type APIClient struct {
	baseURL    string
	session    SessionStore
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*APIClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		c.httpClient.Timeout = d
	}
}

func NewAPIClient(baseURL string, session SessionStore, logger *slog.Logger, opts ...Option) *APIClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do はリクエストを組み立てて送信し、2xxならボディのJSONを dst にデコードします。
// dst が nil ならボディは捨てます。body が nil でなければJSONで送ります。
func (c *APIClient) Do(ctx context.Context, method, path string, query url.Values, body, dst any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if slug := c.session.CompanySlug(); slug != "" {
		req.Header.Set(config.TenantHeader, slug)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// 認証切れ。ローカルセッションを破棄して呼び出し元に委ねる
		c.logger.Warn("Received 401, clearing local session")
		if clearErr := c.session.Clear(); clearErr != nil {
			c.logger.Warn("Failed to clear session", slog.Any("error", clearErr))
		}
		return fmt.Errorf("%s: %w", extractErrorMessage(raw), ErrUnauthenticated)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		apiErr.Code, apiErr.Message, apiErr.Field = extractErrorDetail(raw)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if dst == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("client: decoding response body: %w", err)
	}
	return nil
}

func (c *APIClient) Get(ctx context.Context, path string, query url.Values, dst any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, dst)
}

func (c *APIClient) Post(ctx context.Context, path string, body, dst any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, dst)
}

func (c *APIClient) Patch(ctx context.Context, path string, body, dst any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, dst)
}

func (c *APIClient) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// extractErrorMessage はボディから人間可読のメッセージだけを取り出します。
func extractErrorMessage(raw []byte) string {
	_, msg, _ := extractErrorDetail(raw)
	if msg == "" {
		return "unauthorized"
	}
	return msg
}

// extractErrorDetail は複数のエラーボディ形式からコード・メッセージ・フィールドを
// 抽出します。対応形式:
//
//	{"detail": "..."}              (DRF系)
//	{"error": {"code","message","field"}} (本サーバー)
//	{"message": "..."}             (汎用)
func extractErrorDetail(raw []byte) (code, message, field string) {
	if len(raw) == 0 {
		return "", "", ""
	}
	var envelope struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Field   string `json:"field"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", "", ""
	}
	switch {
	case envelope.Error.Message != "":
		return envelope.Error.Code, envelope.Error.Message, envelope.Error.Field
	case envelope.Detail != "":
		return "", envelope.Detail, ""
	case envelope.Message != "":
		return "", envelope.Message, ""
	}
	return "", "", ""
}

// NormalizedList は正規化済みの一覧レスポンスです。ネットワーク境界より内側は
// この形しか扱いません。
type NormalizedList struct {
	Items []json.RawMessage
	Total int64
}

// NormalizeListBody は3種類のレスポンス形式を1つの正規形に変換します:
// ページングエンベロープ {count, results} / 素の配列 / 単一オブジェクト。
func NormalizeListBody(raw []byte) (NormalizedList, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return NormalizedList{Items: []json.RawMessage{}}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return NormalizedList{}, fmt.Errorf("client: decoding array response: %w", err)
		}
		return NormalizedList{Items: items, Total: int64(len(items))}, nil
	case '{':
		var envelope struct {
			Count   *int64            `json:"count"`
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return NormalizedList{}, fmt.Errorf("client: decoding envelope response: %w", err)
		}
		if envelope.Count != nil || envelope.Results != nil {
			items := envelope.Results
			if items == nil {
				items = []json.RawMessage{}
			}
			total := int64(len(items))
			if envelope.Count != nil {
				total = *envelope.Count
			}
			return NormalizedList{Items: items, Total: total}, nil
		}
		// countもresultsも無いオブジェクトは1件の結果として扱う
		return NormalizedList{Items: []json.RawMessage{json.RawMessage(trimmed)}, Total: 1}, nil
	default:
		return NormalizedList{}, fmt.Errorf("client: unexpected response shape")
	}
}

// GetList は一覧エンドポイントを叩き、レスポンスを正規形で返します。
func (c *APIClient) GetList(ctx context.Context, path string, query url.Values) (NormalizedList, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, query, &raw); err != nil {
		return NormalizedList{}, err
	}
	return NormalizeListBody(raw)
}
