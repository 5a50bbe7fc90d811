package predict

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/libgate/internal/model"
)

// Service は予測APIのビジネスロジックを提供する。
// モデルレジストリと1呼び出しあたりのタイムアウトを注入して構築する。
type Service struct {
	registry *Registry
	timeout  time.Duration
	eval     func(m *Model, features model.FeatureVector) (string, float64, model.RiskLevel)
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(registry *Registry, timeout time.Duration) *Service {
	return &Service{
		registry: registry,
		timeout:  timeout,
		eval:     (*Model).Eval,
		now:      time.Now,
	}
}

// ListModels はロード済み・ロード失敗を含む全モデルのメタデータを返す。
func (s *Service) ListModels() []model.ModelInfo {
	return s.registry.List()
}

// Predict は1件の特徴量ベクトルを評価する。
//
// 入力はモデルのスキーマで検証され、不一致の場合はモデルを評価せずに
// INVALID_FEATURESを返す。評価には呼び出しごとの上限時間があり、
// 超過時はMODEL_TIMEOUTを返してゲートウェイを待たせない。
func (s *Service) Predict(ctx context.Context, modelName string, features model.FeatureVector) (*model.PredictionResult, error) {
	m, ok := s.registry.Get(modelName)
	if !ok {
		return nil, model.NewModelUnavailableError(modelName)
	}

	if apiErr := m.Validate(features); apiErr != nil {
		return nil, apiErr
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type evalResult struct {
		label string
		score float64
		risk  model.RiskLevel
	}

	done := make(chan evalResult, 1)
	go func() {
		label, score, risk := s.eval(m, features)
		done <- evalResult{label: label, score: score, risk: risk}
	}()

	select {
	case <-evalCtx.Done():
		// クライアント起因の中断はモデルのタイムアウトとして扱わない
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("prediction aborted: %w", err)
		}
		return nil, model.NewModelTimeoutError(modelName)
	case res := <-done:
		return &model.PredictionResult{
			ModelName:   modelName,
			Task:        m.artifact.Task,
			Label:       res.label,
			Score:       res.score,
			RiskLevel:   res.risk,
			GeneratedAt: s.now(),
		}, nil
	}
}

// BatchItem はバッチ予測の1行分の結果。成功時はResult、失敗時はErrが入る。
type BatchItem struct {
	Result *model.PredictionResult
	Err    *model.APIError
}

// PredictBatch は複数の特徴量ベクトルを入力順を保って評価する。
//
// 1行の失敗は残りの行を中断せず、その行のエラーとしてインラインに返す。
// 結果の長さと順序は常に入力と一致する。
func (s *Service) PredictBatch(ctx context.Context, modelName string, batch []model.FeatureVector) ([]BatchItem, error) {
	if _, ok := s.registry.Get(modelName); !ok {
		return nil, model.NewModelUnavailableError(modelName)
	}

	items := make([]BatchItem, len(batch))
	for i, features := range batch {
		result, err := s.Predict(ctx, modelName, features)
		if err != nil {
			items[i] = BatchItem{Err: toAPIError(err)}
			continue
		}
		items[i] = BatchItem{Result: result}
	}

	return items, nil
}

// toAPIError はサービス内部のエラーをAPIエラーに正規化する。
func toAPIError(err error) *model.APIError {
	if apiErr, ok := err.(*model.APIError); ok {
		return apiErr
	}
	return model.NewInternalError()
}
