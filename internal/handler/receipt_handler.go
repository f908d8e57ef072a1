package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/receiptly/internal/middleware"
	"github.com/hitoshi/receiptly/internal/model"
)

// ExtractServiceInterface は抽出ハンドラーが必要とするサービスインターフェース。
type ExtractServiceInterface interface {
	ExtractAndPersist(ctx context.Context, userID, filename string, document io.Reader) (*model.Extraction, int64, error)
}

// ReceiptServiceInterface はレシートハンドラーが必要とするサービスインターフェース。
type ReceiptServiceInterface interface {
	List(ctx context.Context, userID string) ([]*model.Receipt, error)
	Get(ctx context.Context, userID string, id int64) (*model.Receipt, error)
}

// ReceiptHandler はレシートの抽出と参照のHTTPハンドラー。
type ReceiptHandler struct {
	extractService ExtractServiceInterface
	receiptService ReceiptServiceInterface
	uploadMaxSize  int64
}

// NewReceiptHandler はReceiptHandlerを生成する。
func NewReceiptHandler(extractService ExtractServiceInterface, receiptService ReceiptServiceInterface, uploadMaxSize int64) *ReceiptHandler {
	return &ReceiptHandler{
		extractService: extractService,
		receiptService: receiptService,
		uploadMaxSize:  uploadMaxSize,
	}
}

// extractResponse は抽出結果にレシートIDをマージしたレスポンスボディ。
// 永続化に失敗した場合はレシートIDなしで抽出結果のみを返す。
type extractResponse struct {
	model.Extraction
	ReceiptID int64 `json:"receiptId,omitempty"`
}

// Extract はレシート画像の抽出パイプラインを実行する。
// 処理するユーザーはセッションから導出する。user_idフォームフィールドは
// 後方互換のため受け付けるが、セッションのユーザーと一致しない場合は403を返す。
// POST /api/extract
func (h *ReceiptHandler) Extract(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize)
	if err := r.ParseMultipartForm(h.uploadMaxSize); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFileError())
		return
	}

	if formUserID := r.FormValue("user_id"); formUserID != "" && formUserID != userID {
		slog.Warn("user_id form field does not match session",
			slog.String("session_user_id", userID),
		)
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewUserMismatchError())
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFileError())
		return
	}
	defer file.Close()

	extraction, receiptID, err := h.extractService.ExtractAndPersist(r.Context(), userID, header.Filename, file)
	if err != nil {
		// 永続化のみが失敗した場合、抽出結果は失わずにクライアントへ返す。
		// 記録されなかったことはレシートIDの欠落で伝わる。
		var apiErr *model.APIError
		if extraction != nil && errors.As(err, &apiErr) && apiErr.Code == model.ErrCodePersistenceError {
			slog.Error("receipt not recorded", slog.String("error", err.Error()))
			writeJSON(w, http.StatusOK, extractResponse{Extraction: *extraction})
			return
		}
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		Extraction: *extraction,
		ReceiptID:  receiptID,
	})
}

// ListReceipts はセッションユーザーのレシート一覧を新しい順に返す。
// GET /api/receipts
func (h *ReceiptHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	receipts, err := h.receiptService.List(r.Context(), userID)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}

// GetReceipt はセッションユーザー所有のレシートを1件返す。
// 存在しない・他ユーザー所有のいずれも404を返す。
// GET /api/receipts/{id}
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewReceiptNotFoundError(0))
		return
	}

	receipt, err := h.receiptService.Get(r.Context(), userID, id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// writeAPIError はサービス層のエラーをHTTPステータスへマッピングして書き込む。
// APIError以外のエラーは詳細を漏らさず500を返す。
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	middleware.WriteErrorResponse(w, statusForError(apiErr), apiErr)
}

// statusForError はエラーコードからHTTPステータスコードを決定する。
func statusForError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case model.ErrCodeMissingFile, model.ErrCodeMissingUser:
		return http.StatusBadRequest
	case model.ErrCodeUserMismatch:
		return http.StatusForbidden
	case model.ErrCodeReceiptNotFound:
		return http.StatusNotFound
	default:
		// SERVICE_UNAUTHENTICATED, PARSE_FAILED, EXTRACT_FAILED,
		// PERSISTENCE_ERROR, DATA_CORRUPT
		return http.StatusInternalServerError
	}
}
