// Package receipt は保存済みレシートの参照機能を提供する。
package receipt

import (
	"context"
	"fmt"

	"github.com/hitoshi/receiptly/internal/model"
	"github.com/hitoshi/receiptly/internal/repository"
)

// Service はレシート参照に関するビジネスロジックを提供する。
// レシートは抽出パイプラインからのみ作成されるため、このサービスは読み取り専用。
type Service struct {
	receiptRepo repository.ReceiptRepository
}

// NewService はServiceを生成する。
func NewService(receiptRepo repository.ReceiptRepository) *Service {
	return &Service{receiptRepo: receiptRepo}
}

// List は指定ユーザーのレシート一覧を新しい順に返す。
// レシートが存在しない場合は空スライスを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Receipt, error) {
	receipts, err := s.receiptRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}

// Get は指定ユーザー所有のレシートを1件取得する。
// 存在しない、または他ユーザー所有の場合は区別せずRECEIPT_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID string, id int64) (*model.Receipt, error) {
	r, err := s.receiptRepo.FindByUserAndID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find receipt: %w", err)
	}
	if r == nil {
		return nil, model.NewReceiptNotFoundError(id)
	}
	return r, nil
}
