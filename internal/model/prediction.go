package model

import "time"

// ModelTask は予測モデルの種別を表す。
type ModelTask string

const (
	// TaskClassification は分類モデル。ラベルと[0,1]の確率を返す。
	TaskClassification ModelTask = "classification"
	// TaskRegression は回帰モデル。スカラー値のみを返す。
	TaskRegression ModelTask = "regression"
)

// FeatureValue は特徴量の入力値。数値またはカテゴリ文字列をとる。
type FeatureValue any

// FeatureVector はモデルに与える名前付き特徴量の集合。
type FeatureVector map[string]FeatureValue

// RiskLevel は分類確率から導出するリスク区分。
type RiskLevel string

const (
	RiskLevelHigh   RiskLevel = "high"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelLow    RiskLevel = "low"
)

// RiskLevelFor は確率pに対応するリスク区分を返す。
// 閾値は運用中のoverdue予測モデルの判定基準（0.7 / 0.4）に合わせる。
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p > 0.7:
		return RiskLevelHigh
	case p > 0.4:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// PredictionResult は1件の予測結果を表す。
// 分類ではLabelとScore（予測クラスの確率）、回帰ではScoreのみが意味を持つ。
type PredictionResult struct {
	ModelName   string
	Task        ModelTask
	Label       string
	Score       float64
	RiskLevel   RiskLevel
	GeneratedAt time.Time
}

// ModelInfo はロード済みモデルのメタデータを表す。
// ロードに失敗したモデルはAvailable=falseのまま一覧に現れる。
type ModelInfo struct {
	Name      string
	Version   string
	Algorithm string
	Task      ModelTask
	Features  []string
	Available bool
}
