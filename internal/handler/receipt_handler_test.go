package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/receiptly/internal/middleware"
	"github.com/hitoshi/receiptly/internal/model"
)

// --- モック定義 ---

type mockExtractService struct {
	extractFn func(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error)
}

func (m *mockExtractService) ExtractAndPersist(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
	return m.extractFn(ctx, userID, filename, document)
}

type mockReceiptService struct {
	listFn func(ctx context.Context, userID string) ([]*model.Receipt, error)
	getFn  func(ctx context.Context, userID string, id int64) (*model.Receipt, error)
}

func (m *mockReceiptService) List(ctx context.Context, userID string) ([]*model.Receipt, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []*model.Receipt{}, nil
}

func (m *mockReceiptService) Get(ctx context.Context, userID string, id int64) (*model.Receipt, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return nil, model.NewReceiptNotFoundError(id)
}

// multipartBody はdocumentファイルと追加フィールドを含むマルチパートボディを構築するヘルパー。
func multipartBody(t *testing.T, withFile bool, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if withFile {
		part, err := mw.CreateFormFile("document", "receipt.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write([]byte("fake-image-bytes"))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	return &buf, mw.FormDataContentType()
}

// newExtractRequest はセッションユーザー付きの抽出リクエストを構築するヘルパー。
func newExtractRequest(t *testing.T, userID string, withFile bool, fields map[string]string) *http.Request {
	t.Helper()

	body, contentType := multipartBody(t, withFile, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	}
	return req
}

// --- テスト ---

// 抽出成功時に抽出結果とレシートIDがマージされて返ることを検証
func TestReceiptHandler_Extract_Success(t *testing.T) {
	extractService := &mockExtractService{
		extractFn: func(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			if filename != "receipt.jpg" {
				t.Errorf("filename = %q, want %q", filename, "receipt.jpg")
			}
			content, _ := io.ReadAll(document)
			if string(content) != "fake-image-bytes" {
				t.Errorf("document content = %q", content)
			}
			return &model.Extraction{
				StoreInfo:      model.StoreInfo{StoreName: "KROGER #123"},
				PaymentSummary: model.PaymentSummary{TotalAmount: 42.17},
				ItemList:       []model.Item{{ItemName: "BANANAS", ItemPrice: 1.28}},
			}, 7, nil
		},
	}

	h := NewReceiptHandler(extractService, &mockReceiptService{}, 10<<20)

	req := newExtractRequest(t, "user-1", true, nil)
	w := httptest.NewRecorder()
	h.Extract(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body struct {
		StoreInfo      model.StoreInfo      `json:"storeInfo"`
		PaymentSummary model.PaymentSummary `json:"paymentSummary"`
		ReceiptID      int64                `json:"receiptId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ReceiptID != 7 {
		t.Errorf("receiptId = %d, want 7", body.ReceiptID)
	}
	if body.StoreInfo.StoreName != "KROGER #123" {
		t.Errorf("storeName = %q", body.StoreInfo.StoreName)
	}
	if body.PaymentSummary.TotalAmount != 42.17 {
		t.Errorf("totalAmount = %v, want 42.17", body.PaymentSummary.TotalAmount)
	}
}

// ファイル未添付が400とMISSING_FILEになることを検証
func TestReceiptHandler_Extract_NoFile_Returns400(t *testing.T) {
	extractService := &mockExtractService{
		extractFn: func(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
			t.Error("extract service should not be called")
			return nil, 0, nil
		},
	}

	h := NewReceiptHandler(extractService, &mockReceiptService{}, 10<<20)

	req := newExtractRequest(t, "user-1", false, nil)
	w := httptest.NewRecorder()
	h.Extract(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeMissingFile {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeMissingFile)
	}
	if body.Message != "No file provided" {
		t.Errorf("message = %q, want %q", body.Message, "No file provided")
	}
}

// user_idフォームフィールドがセッションと不一致の場合に403になることを検証
func TestReceiptHandler_Extract_UserIDMismatch_Returns403(t *testing.T) {
	extractService := &mockExtractService{
		extractFn: func(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
			t.Error("extract service should not be called")
			return nil, 0, nil
		},
	}

	h := NewReceiptHandler(extractService, &mockReceiptService{}, 10<<20)

	req := newExtractRequest(t, "user-1", true, map[string]string{"user_id": "someone-else"})
	w := httptest.NewRecorder()
	h.Extract(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeUserMismatch {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUserMismatch)
	}
}

// セッションと一致するuser_idフォームフィールドは受け付けることを検証（後方互換）
func TestReceiptHandler_Extract_MatchingUserID_Succeeds(t *testing.T) {
	extractService := &mockExtractService{
		extractFn: func(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
			return &model.Extraction{}, 1, nil
		},
	}

	h := NewReceiptHandler(extractService, &mockReceiptService{}, 10<<20)

	req := newExtractRequest(t, "user-1", true, map[string]string{"user_id": "user-1"})
	w := httptest.NewRecorder()
	h.Extract(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// パースステージ失敗が500とPARSE_FAILEDになることを検証
func TestReceiptHandler_Extract_ParseFailed_Returns500(t *testing.T) {
	extractService := &mockExtractService{
		extractFn: func(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
			return nil, 0, model.NewParseFailedError()
		},
	}

	h := NewReceiptHandler(extractService, &mockReceiptService{}, 10<<20)

	req := newExtractRequest(t, "user-1", true, nil)
	w := httptest.NewRecorder()
	h.Extract(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeParseFailed {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeParseFailed)
	}
}

// 永続化のみ失敗した場合、抽出結果がレシートIDなしで返ることを検証
func TestReceiptHandler_Extract_PersistFailed_ReturnsExtractionWithoutReceiptID(t *testing.T) {
	extractService := &mockExtractService{
		extractFn: func(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error) {
			return &model.Extraction{
				StoreInfo:      model.StoreInfo{StoreName: "KROGER #123"},
				PaymentSummary: model.PaymentSummary{TotalAmount: 42.17},
			}, 0, model.NewPersistenceError()
		},
	}

	h := NewReceiptHandler(extractService, &mockReceiptService{}, 10<<20)

	req := newExtractRequest(t, "user-1", true, nil)
	w := httptest.NewRecorder()
	h.Extract(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if _, ok := body["receiptId"]; ok {
		t.Error("receiptId should be absent when the receipt was not recorded")
	}
	storeInfo, ok := body["storeInfo"].(map[string]any)
	if !ok || storeInfo["storeName"] != "KROGER #123" {
		t.Errorf("storeInfo = %v, want storeName KROGER #123", body["storeInfo"])
	}
}

// セッションユーザーのレシート一覧が返ることを検証
func TestReceiptHandler_ListReceipts_ReturnsReceipts(t *testing.T) {
	receiptService := &mockReceiptService{
		listFn: func(ctx context.Context, userID string) ([]*model.Receipt, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return []*model.Receipt{
				{ID: 2, UserID: "user-1", StoreName: "Store B", TotalAmount: 10.5},
				{ID: 1, UserID: "user-1", StoreName: "Store A", TotalAmount: 3.25},
			}, nil
		},
	}

	h := NewReceiptHandler(&mockExtractService{}, receiptService, 10<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.ListReceipts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var receipts []*model.Receipt
	if err := json.NewDecoder(w.Body).Decode(&receipts); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(receipts) != 2 {
		t.Fatalf("receipt count = %d, want 2", len(receipts))
	}
	if receipts[0].ID != 2 || receipts[1].ID != 1 {
		t.Errorf("receipt order = [%d, %d], want [2, 1]", receipts[0].ID, receipts[1].ID)
	}
}

// レシートが存在しないユーザーに空配列が返ることを検証
func TestReceiptHandler_ListReceipts_Empty_ReturnsEmptyArray(t *testing.T) {
	h := NewReceiptHandler(&mockExtractService{}, &mockReceiptService{}, 10<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.ListReceipts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// nullではなく[]が返ること
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want %q", body, "[]\n")
	}
}

// serveGetReceipt はchiのルートコンテキスト付きでGetReceiptを実行するヘルパー。
func serveGetReceipt(h *ReceiptHandler, userID, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/receipts/{id}", h.GetReceipt)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// 所有レシートが取得できることを検証
func TestReceiptHandler_GetReceipt_ReturnsReceipt(t *testing.T) {
	receiptService := &mockReceiptService{
		getFn: func(ctx context.Context, userID string, id int64) (*model.Receipt, error) {
			if userID != "user-1" || id != 42 {
				t.Errorf("Get(%q, %d), want (user-1, 42)", userID, id)
			}
			return &model.Receipt{ID: 42, UserID: "user-1", StoreName: "Store A"}, nil
		},
	}

	h := NewReceiptHandler(&mockExtractService{}, receiptService, 10<<20)

	w := serveGetReceipt(h, "user-1", "/api/receipts/42")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var receipt model.Receipt
	if err := json.NewDecoder(w.Body).Decode(&receipt); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if receipt.ID != 42 {
		t.Errorf("receipt.ID = %d, want 42", receipt.ID)
	}
}

// 存在しない・他ユーザー所有のレシートが404になることを検証
func TestReceiptHandler_GetReceipt_NotFound_Returns404(t *testing.T) {
	h := NewReceiptHandler(&mockExtractService{}, &mockReceiptService{}, 10<<20)

	w := serveGetReceipt(h, "user-1", "/api/receipts/999")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// 数値でないIDが404になることを検証
func TestReceiptHandler_GetReceipt_InvalidID_Returns404(t *testing.T) {
	h := NewReceiptHandler(&mockExtractService{}, &mockReceiptService{}, 10<<20)

	w := serveGetReceipt(h, "user-1", "/api/receipts/abc")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
