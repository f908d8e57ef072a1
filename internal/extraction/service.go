package extraction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hitoshi/receiptly/internal/metrics"
	"github.com/hitoshi/receiptly/internal/model"
	"github.com/hitoshi/receiptly/internal/repository"
	"github.com/hitoshi/receiptly/internal/security"
)

// Service は抽出パイプライン全体のオーケストレーター。
// 前提チェック → パース → 抽出 → サニタイズ → 永続化の順に実行し、
// 失敗したステージのエラーをそのまま報告する（途中結果は保存しない）。
type Service struct {
	extractor        DocumentExtractor
	receiptRepo      repository.ReceiptRepository
	sanitizer        security.TextSanitizerService
	collector        metrics.MetricsCollector
	apiKeyConfigured bool
	timeout          time.Duration
}

// NewService はServiceを生成する。
// apiKeyConfiguredがfalseの場合、すべての抽出リクエストは
// アップストリームを呼ばずにSERVICE_UNAUTHENTICATEDで失敗する。
func NewService(
	extractor DocumentExtractor,
	receiptRepo repository.ReceiptRepository,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
	apiKeyConfigured bool,
	timeout time.Duration,
) *Service {
	return &Service{
		extractor:        extractor,
		receiptRepo:      receiptRepo,
		sanitizer:        sanitizer,
		collector:        collector,
		apiKeyConfigured: apiKeyConfigured,
		timeout:          timeout,
	}
}

// ExtractAndPersist はレシート画像の抽出パイプラインを実行する。
// 成功時は抽出結果と採番されたレシートIDを返す。
// パイプライン全体に1つのタイムアウトが適用される。
func (s *Service) ExtractAndPersist(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
	// 前提チェック。不足が複数ある場合はファイル欠落を優先して報告する。
	if document == nil {
		return nil, 0, model.NewMissingFileError()
	}
	if userID == "" {
		return nil, 0, model.NewMissingUserError()
	}
	if !s.apiKeyConfigured {
		slog.Error("extraction requested but API key is not configured")
		return nil, 0, model.NewServiceUnauthenticatedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// パースステージ
	parseStart := time.Now()
	markdown, err := s.extractor.Parse(ctx, filename, document)
	s.collector.RecordStageLatency(StageParse, time.Since(parseStart))
	if err != nil {
		s.collector.RecordExtractFailure(StageParse)
		return nil, 0, err
	}

	slog.Info("document parsed",
		slog.String("user_id", userID),
		slog.String("filename", filename),
		slog.Int("markdown_bytes", len(markdown)),
	)

	// 抽出ステージ
	extractStart := time.Now()
	extraction, err := s.extractor.Extract(ctx, markdown)
	s.collector.RecordStageLatency(StageExtract, time.Since(extractStart))
	if err != nil {
		s.collector.RecordExtractFailure(StageExtract)
		return nil, 0, err
	}

	s.sanitizeExtraction(extraction)

	// 永続化。抽出結果のうちレシートに必要なフィールドのみを射影する。
	receipt := &model.Receipt{
		UserID:          userID,
		StoreName:       extraction.StoreInfo.StoreName,
		Address:         extraction.StoreInfo.Address,
		TransactionDate: extraction.StoreInfo.TransactionDate,
		TotalAmount:     extraction.PaymentSummary.TotalAmount,
		Items:           extraction.ItemList,
	}
	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		s.collector.RecordExtractFailure(StagePersist)
		// 抽出自体は成功しているため、結果は失わずに返す。
		// レシートIDは採番されない。
		return extraction, 0, fmt.Errorf("%w: failed to save receipt: %v", model.NewPersistenceError(), err)
	}

	s.collector.RecordExtractSuccess()
	s.collector.RecordReceiptCreated()

	slog.Info("receipt extracted and saved",
		slog.String("user_id", userID),
		slog.Int64("receipt_id", receipt.ID),
		slog.Int("item_count", len(extraction.ItemList)),
	)

	return extraction, receipt.ID, nil
}

// sanitizeExtraction は抽出結果のすべてのテキストフィールドをサニタイズする。
// 数値フィールドは対象外。
func (s *Service) sanitizeExtraction(e *model.Extraction) {
	e.StoreInfo.StoreName = s.sanitizer.Sanitize(e.StoreInfo.StoreName)
	e.StoreInfo.Address = s.sanitizer.Sanitize(e.StoreInfo.Address)
	e.StoreInfo.CashierName = s.sanitizer.Sanitize(e.StoreInfo.CashierName)
	e.StoreInfo.TransactionDate = s.sanitizer.Sanitize(e.StoreInfo.TransactionDate)
	e.StoreInfo.TransactionTime = s.sanitizer.Sanitize(e.StoreInfo.TransactionTime)

	e.PaymentSummary.PaymentMethod = s.sanitizer.Sanitize(e.PaymentSummary.PaymentMethod)
	e.PaymentSummary.ReferenceNumber = s.sanitizer.Sanitize(e.PaymentSummary.ReferenceNumber)

	for i := range e.ItemList {
		e.ItemList[i].ItemName = s.sanitizer.Sanitize(e.ItemList[i].ItemName)
		e.ItemList[i].ItemType = s.sanitizer.Sanitize(e.ItemList[i].ItemType)
	}

	e.AccountInfo.CustomerID = s.sanitizer.Sanitize(e.AccountInfo.CustomerID)
	e.AccountInfo.CardType = s.sanitizer.Sanitize(e.AccountInfo.CardType)
	e.AccountInfo.CardLastDigits = s.sanitizer.Sanitize(e.AccountInfo.CardLastDigits)
	e.AccountInfo.AID = s.sanitizer.Sanitize(e.AccountInfo.AID)
	e.AccountInfo.TC = s.sanitizer.Sanitize(e.AccountInfo.TC)
}
