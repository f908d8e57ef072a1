package model

// StoreInfo は店舗と取引の基本情報。
type StoreInfo struct {
	StoreName       string `json:"storeName"`
	Address         string `json:"address"`
	CashierName     string `json:"cashierName"`
	TransactionDate string `json:"transactionDate"`
	TransactionTime string `json:"transactionTime"`
}

// PaymentSummary は支払いの要約情報。
type PaymentSummary struct {
	PaymentMethod   string  `json:"paymentMethod"`
	TotalAmount     float64 `json:"totalAmount"`
	ChangeGiven     float64 `json:"changeGiven"`
	ItemsSold       float64 `json:"itemsSold"`
	ReferenceNumber string  `json:"referenceNumber"`
}

// Item は購入された1商品の明細。
// 独立したライフサイクルを持たず、ExtractionまたはReceiptの中にのみ存在する。
type Item struct {
	ItemName  string  `json:"itemName"`
	ItemPrice float64 `json:"itemPrice"`
	ItemType  string  `json:"itemType"`
	Weight    float64 `json:"weight"`
	UnitPrice float64 `json:"unitPrice"`
}

// SavingsSummary は割引・クーポン・ポイントの要約情報。
type SavingsSummary struct {
	TotalSavings      float64 `json:"totalSavings"`
	TotalCoupons      float64 `json:"totalCoupons"`
	AnnualCardSavings float64 `json:"annualCardSavings"`
	FuelPointsEarned  float64 `json:"fuelPointsEarned"`
	TotalFuelPoints   float64 `json:"totalFuelPoints"`
}

// AccountInfo は会員・決済カードの識別情報。
type AccountInfo struct {
	CustomerID     string `json:"customerId"`
	CardType       string `json:"cardType"`
	CardLastDigits string `json:"cardLastDigits"`
	AID            string `json:"aid"`
	TC             string `json:"tc"`
}

// Extraction はリモート文書抽出サービスが返す構造化フィールドの全体。
// 永続化されるのはこのうちReceiptへ射影される部分のみで、
// Extraction自体はレスポンスとしてそのままクライアントへ返される。
type Extraction struct {
	StoreInfo      StoreInfo      `json:"storeInfo"`
	PaymentSummary PaymentSummary `json:"paymentSummary"`
	ItemList       []Item         `json:"itemList"`
	SavingsSummary SavingsSummary `json:"savingsSummary"`
	AccountInfo    AccountInfo    `json:"accountInfo"`
}
