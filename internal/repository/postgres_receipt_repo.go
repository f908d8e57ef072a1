package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/receiptly/internal/model"
)

// PostgresReceiptRepo はPostgreSQLを使用したレシートリポジトリ。
// itemsカラムには明細リストをJSONエンコードしたテキストを保存する。
type PostgresReceiptRepo struct {
	db *sql.DB
}

// NewPostgresReceiptRepo はPostgresReceiptRepoを生成する。
func NewPostgresReceiptRepo(db *sql.DB) *PostgresReceiptRepo {
	return &PostgresReceiptRepo{db: db}
}

// Create はレシートを作成し、採番されたIDをreceipt.IDに設定する。
func (r *PostgresReceiptRepo) Create(ctx context.Context, receipt *model.Receipt) error {
	items, err := encodeItems(receipt.Items)
	if err != nil {
		return fmt.Errorf("failed to encode receipt items: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO receipts (user_id, store_name, address, transaction_date, total_amount, items)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		receipt.UserID, receipt.StoreName, receipt.Address,
		receipt.TransactionDate, receipt.TotalAmount, items,
	).Scan(&receipt.ID, &receipt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create receipt: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーのレシート一覧を新しい順に返す。
func (r *PostgresReceiptRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, store_name, address, transaction_date, total_amount, items, created_at
		 FROM receipts
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]*model.Receipt, 0)
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}

	return receipts, nil
}

// FindByUserAndID はユーザーIDとレシートIDでレシートを取得する。
// 所有チェックはWHERE句で行い、他ユーザー所有のレシートは存在しないものとして扱う。
func (r *PostgresReceiptRepo) FindByUserAndID(ctx context.Context, userID string, id int64) (*model.Receipt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, store_name, address, transaction_date, total_amount, items, created_at
		 FROM receipts
		 WHERE user_id = $1 AND id = $2`,
		userID, id,
	)

	receipt, err := scanReceipt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanReceipt は1行をReceiptに変換する。itemsのデコード失敗はDATA_CORRUPTとして報告する。
func scanReceipt(row rowScanner) (*model.Receipt, error) {
	receipt := &model.Receipt{}
	var items string

	err := row.Scan(
		&receipt.ID, &receipt.UserID, &receipt.StoreName, &receipt.Address,
		&receipt.TransactionDate, &receipt.TotalAmount, &items, &receipt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan receipt: %w", err)
	}

	receipt.Items, err = decodeItems(items)
	if err != nil {
		return nil, fmt.Errorf("receipt %d: %w", receipt.ID, err)
	}

	return receipt, nil
}

// encodeItems は明細リストをJSONテキストにエンコードする。
// nilスライスは空リストとして保存し、読み出し時の形を安定させる。
func encodeItems(items []model.Item) (string, error) {
	if items == nil {
		items = []model.Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeItems は保存されたJSONテキストを明細リストに復元する。
// デコードできない場合は空リストに握りつぶさず、DATA_CORRUPTエラーを返す。
func decodeItems(raw string) ([]model.Item, error) {
	var items []model.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %s", model.NewDataCorruptError(), err.Error())
	}
	return items, nil
}

// compile-time interface check
var _ ReceiptRepository = (*PostgresReceiptRepo)(nil)
