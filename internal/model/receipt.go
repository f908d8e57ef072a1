package model

import "time"

// Receipt は1回の抽出結果から作成される、ユーザー所有の永続レコード。
// Extractionのうち店舗名・住所・取引日・合計金額・明細リストのみを射影する。
// 作成後は更新・削除されない。
type Receipt struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"userId"`
	StoreName       string    `json:"storeName"`
	Address         string    `json:"address"`
	TransactionDate string    `json:"transactionDate"`
	TotalAmount     float64   `json:"totalAmount"`
	Items           []Item    `json:"items"`
	CreatedAt       time.Time `json:"createdAt"`
}
