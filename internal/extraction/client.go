// Package extraction はリモート文書抽出サービス（ADE）との連携を提供する。
// レシート画像をMarkdownへパースするステージと、Markdownから
// 構造化フィールドを抽出するステージの2段パイプラインで構成される。
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/hitoshi/receiptly/internal/metrics"
	"github.com/hitoshi/receiptly/internal/model"
)

// ステージ名。メトリクスのラベルとログに使用する。
const (
	StageParse   = "parse"
	StageExtract = "extract"
	StagePersist = "persist"
)

// DocumentExtractor は文書抽出サービスのクライアントインターフェース。
// サービス層のテストで差し替える。
type DocumentExtractor interface {
	// Parse は文書ファイルをMarkdownテキストへ変換する。
	Parse(ctx context.Context, filename string, document io.Reader) (string, error)

	// Extract はMarkdownテキストから構造化フィールドを抽出する。
	Extract(ctx context.Context, markdown string) (*model.Extraction, error)
}

// parseResponse はパースステージのレスポンスボディ。
type parseResponse struct {
	Markdown string `json:"markdown"`
}

// Client は文書抽出サービスのHTTPクライアント。
// 両ステージで同一のAPIキーをBasic認証ヘッダーとして送信する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	collector  metrics.MetricsCollector
	baseURL    string // テスト用にエンドポイントを差し替え可能
	apiKey     string
	model      string
}

// インターフェース実装チェック
var _ DocumentExtractor = (*Client)(nil)

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, baseURL, apiKey, model string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		collector:  collector,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
	}
}

// Parse は文書ファイルをMarkdownテキストへ変換する。
// 失敗の詳細（ネットワーク・ステータス・デコード）はログに残し、
// 呼び出し元へは一律PARSE_FAILEDとして返す。
func (c *Client) Parse(ctx context.Context, filename string, document io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return "", fmt.Errorf("%w: failed to build multipart body: %v", model.NewParseFailedError(), err)
	}
	if _, err := io.Copy(part, document); err != nil {
		return "", fmt.Errorf("%w: failed to read document: %v", model.NewParseFailedError(), err)
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("%w: failed to build multipart body: %v", model.NewParseFailedError(), err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to build multipart body: %v", model.NewParseFailedError(), err)
	}

	body, err := c.post(ctx, StageParse, c.baseURL+"/parse", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.NewParseFailedError(), err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("パースレスポンスのデコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: invalid parse response: %v", model.NewParseFailedError(), err)
	}

	return result.Markdown, nil
}

// Extract はMarkdownテキストから構造化フィールドを抽出する。
// レスポンスは5セクションの型付き構造体としてデコードし、
// 型が合わない場合も一律EXTRACT_FAILEDとして返す。
func (c *Client) Extract(ctx context.Context, markdown string) (*model.Extraction, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	// markdownはファイルパートとして送信する
	part, err := mw.CreateFormFile("markdown", "document.md")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build multipart body: %v", model.NewExtractFailedError(), err)
	}
	if _, err := io.WriteString(part, markdown); err != nil {
		return nil, fmt.Errorf("%w: failed to build multipart body: %v", model.NewExtractFailedError(), err)
	}
	if err := mw.WriteField("schema", fieldsSchema); err != nil {
		return nil, fmt.Errorf("%w: failed to build multipart body: %v", model.NewExtractFailedError(), err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to build multipart body: %v", model.NewExtractFailedError(), err)
	}

	body, err := c.post(ctx, StageExtract, c.baseURL+"/extract", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.NewExtractFailedError(), err)
	}

	var extraction model.Extraction
	if err := json.Unmarshal(body, &extraction); err != nil {
		c.logger.Error("抽出レスポンスのデコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: invalid extract response: %v", model.NewExtractFailedError(), err)
	}

	return &extraction, nil
}

// post はマルチパートボディをPOSTし、2xxレスポンスのボディを返す。
func (c *Client) post(ctx context.Context, stage, url, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("抽出サービスの呼び出しに失敗しました",
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	c.collector.RecordUpstreamStatus(stage, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("抽出サービスがエラーステータスを返しました",
			slog.String("stage", stage),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return respBody, nil
}
