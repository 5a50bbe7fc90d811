package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libgate/internal/model"
	"github.com/hitoshi/libgate/internal/predict"
)

// PredictionServiceInterface は予測ハンドラーが必要とするサービスインターフェース。
type PredictionServiceInterface interface {
	// ListModels は全モデルのメタデータを返す。
	ListModels() []model.ModelInfo
	// Predict は1件の特徴量ベクトルを評価する。
	Predict(ctx context.Context, modelName string, features model.FeatureVector) (*model.PredictionResult, error)
	// PredictBatch は複数の特徴量ベクトルを入力順を保って評価する。
	PredictBatch(ctx context.Context, modelName string, batch []model.FeatureVector) ([]predict.BatchItem, error)
}

// PredictionRecorder は予測リクエストの結果を記録するインターフェース。
type PredictionRecorder interface {
	RecordPrediction(modelName string, outcome string)
}

// PredictionHandler は予測APIのHTTPハンドラー。
type PredictionHandler struct {
	service  PredictionServiceInterface
	recorder PredictionRecorder
}

// NewPredictionHandler はPredictionHandlerを生成する。recorderはnilでもよい。
func NewPredictionHandler(service PredictionServiceInterface, recorder PredictionRecorder) *PredictionHandler {
	return &PredictionHandler{
		service:  service,
		recorder: recorder,
	}
}

// predictRequest は単発予測リクエストのボディ。
type predictRequest struct {
	Features model.FeatureVector `json:"features"`
}

// predictBatchRequest はバッチ予測リクエストのボディ。
type predictBatchRequest struct {
	Inputs []model.FeatureVector `json:"inputs"`
}

// predictionResponse は1件の予測結果のAPIレスポンス。
// 回帰モデルではlabelとrisk_levelは空になる。
type predictionResponse struct {
	ModelName   string    `json:"model_name"`
	Task        string    `json:"task"`
	Label       string    `json:"label,omitempty"`
	Score       float64   `json:"score"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// batchItemResponse はバッチ予測の1行分のレスポンス。
// 成功時はresult、失敗時はerrorが入り、行の順序は入力と一致する。
type batchItemResponse struct {
	Result *predictionResponse `json:"result,omitempty"`
	Error  *batchErrorBody     `json:"error,omitempty"`
}

// batchErrorBody はバッチ内の1行分のエラー情報。
type batchErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// modelInfoResponse はモデルメタデータのAPIレスポンス。
type modelInfoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Algorithm string   `json:"algorithm"`
	Task      string   `json:"task"`
	Features  []string `json:"features"`
	Available bool     `json:"available"`
}

// ListModels は全モデルのメタデータ一覧を返す。
// ロードに失敗したモデルもavailable=falseで一覧に含まれる。
// GET /api/models
func (h *PredictionHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	infos := h.service.ListModels()

	responses := make([]modelInfoResponse, 0, len(infos))
	for _, info := range infos {
		responses = append(responses, modelInfoResponse{
			Name:      info.Name,
			Version:   info.Version,
			Algorithm: info.Algorithm,
			Task:      string(info.Task),
			Features:  info.Features,
			Available: info.Available,
		})
	}

	writeSuccess(w, http.StatusOK, responses)
}

// Predict は1件の予測を処理する。
// POST /api/predictions/:model_name
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model_name")

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	if len(req.Features) == 0 {
		writeAPIError(w, http.StatusBadRequest,
			model.NewInvalidRequestError("featuresは必須です"))
		return
	}

	result, err := h.service.Predict(r.Context(), modelName, req.Features)
	if err != nil {
		h.recordPrediction(modelName, outcomeFor(err))
		handleServiceError(w, err)
		return
	}

	h.recordPrediction(modelName, "success")
	writeSuccess(w, http.StatusOK, toPredictionResponse(result))
}

// PredictBatch はバッチ予測を処理する。
// 1行の失敗は残りの行を中断せず、その行のエラーとしてインラインに返す。
// POST /api/predictions/:model_name/batch
func (h *PredictionHandler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model_name")

	var req predictBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	if len(req.Inputs) == 0 {
		writeAPIError(w, http.StatusBadRequest,
			model.NewInvalidRequestError("inputsは必須です"))
		return
	}

	items, err := h.service.PredictBatch(r.Context(), modelName, req.Inputs)
	if err != nil {
		h.recordPrediction(modelName, outcomeFor(err))
		handleServiceError(w, err)
		return
	}

	responses := make([]batchItemResponse, len(items))
	for i, item := range items {
		if item.Err != nil {
			responses[i] = batchItemResponse{Error: &batchErrorBody{
				Code:    item.Err.Code,
				Message: item.Err.Message,
			}}
			h.recordPrediction(modelName, outcomeFor(item.Err))
			continue
		}
		resp := toPredictionResponse(item.Result)
		responses[i] = batchItemResponse{Result: &resp}
		h.recordPrediction(modelName, "success")
	}

	writeSuccess(w, http.StatusOK, responses)
}

// recordPrediction はメトリクスに予測結果を記録する。
func (h *PredictionHandler) recordPrediction(modelName, outcome string) {
	if h.recorder != nil {
		h.recorder.RecordPrediction(modelName, outcome)
	}
}

// outcomeFor は予測エラーをメトリクスの結果ラベルに対応付ける。
func outcomeFor(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return "error"
	}
	switch apiErr.Code {
	case model.ErrCodeInvalidFeatures:
		return "invalid_features"
	case model.ErrCodeModelTimeout:
		return "timeout"
	case model.ErrCodeModelUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}

// toPredictionResponse はmodel.PredictionResultからAPIレスポンスに変換する。
func toPredictionResponse(result *model.PredictionResult) predictionResponse {
	return predictionResponse{
		ModelName:   result.ModelName,
		Task:        string(result.Task),
		Label:       result.Label,
		Score:       result.Score,
		RiskLevel:   string(result.RiskLevel),
		GeneratedAt: result.GeneratedAt,
	}
}
