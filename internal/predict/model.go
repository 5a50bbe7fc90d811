// Package predict は学習済みモデルのロードと推論を提供する。
//
// モデルは起動時に1回だけロードし、以後は読み取り専用として並行に評価できる。
// 各モデルは型付きの特徴量スキーマを宣言し、スキーマに一致しない入力は
// モデルに渡る前にINVALID_FEATURESとして拒否される。
package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hitoshi/libgate/internal/model"
)

// FeatureType は特徴量の型。
type FeatureType string

const (
	// FeatureNumeric は数値特徴量。
	FeatureNumeric FeatureType = "numeric"
	// FeatureCategorical はカテゴリ特徴量。宣言済みの水準のみを受け付ける。
	FeatureCategorical FeatureType = "categorical"
)

// FeatureSpec は1特徴量のスキーマ宣言。
type FeatureSpec struct {
	Name   string      `json:"name"`
	Type   FeatureType `json:"type"`
	Levels []string    `json:"levels,omitempty"` // categoricalの場合の許容値
}

// Labels は分類モデルの出力ラベル。
type Labels struct {
	Negative string `json:"negative"`
	Positive string `json:"positive"`
}

// Artifact はモデルアーティファクト（model.json）のディスク上の表現。
// 線形モデルの係数と特徴量スキーマ、メタデータを持つ。
type Artifact struct {
	ModelName          string                        `json:"model_name"`
	Version            string                        `json:"version"`
	Algorithm          string                        `json:"algorithm"`
	Task               model.ModelTask               `json:"task"`
	Features           []FeatureSpec                 `json:"features"`
	Intercept          float64                       `json:"intercept"`
	Weights            map[string]float64            `json:"weights"`
	CategoricalWeights map[string]map[string]float64 `json:"categorical_weights,omitempty"`
	Labels             Labels                        `json:"labels,omitempty"`
}

// Model はロード済みの推論可能なモデル。ロード後は不変。
type Model struct {
	artifact Artifact
	specs    map[string]FeatureSpec
}

// NewModel はアーティファクトを検証してModelを構築する。
func NewModel(artifact Artifact) (*Model, error) {
	if artifact.ModelName == "" {
		return nil, fmt.Errorf("model_name is empty")
	}
	if artifact.Task != model.TaskClassification && artifact.Task != model.TaskRegression {
		return nil, fmt.Errorf("unknown task: %q", artifact.Task)
	}
	if len(artifact.Features) == 0 {
		return nil, fmt.Errorf("model %s declares no features", artifact.ModelName)
	}
	if artifact.Task == model.TaskClassification && (artifact.Labels.Negative == "" || artifact.Labels.Positive == "") {
		return nil, fmt.Errorf("classification model %s is missing labels", artifact.ModelName)
	}

	specs := make(map[string]FeatureSpec, len(artifact.Features))
	for _, spec := range artifact.Features {
		if spec.Name == "" {
			return nil, fmt.Errorf("model %s has a feature with empty name", artifact.ModelName)
		}
		switch spec.Type {
		case FeatureNumeric:
			if _, ok := artifact.Weights[spec.Name]; !ok {
				return nil, fmt.Errorf("model %s is missing weight for feature %s", artifact.ModelName, spec.Name)
			}
		case FeatureCategorical:
			if len(spec.Levels) == 0 {
				return nil, fmt.Errorf("model %s feature %s declares no levels", artifact.ModelName, spec.Name)
			}
			if _, ok := artifact.CategoricalWeights[spec.Name]; !ok {
				return nil, fmt.Errorf("model %s is missing categorical weights for feature %s", artifact.ModelName, spec.Name)
			}
		default:
			return nil, fmt.Errorf("model %s feature %s has unknown type %q", artifact.ModelName, spec.Name, spec.Type)
		}
		if _, dup := specs[spec.Name]; dup {
			return nil, fmt.Errorf("model %s declares feature %s twice", artifact.ModelName, spec.Name)
		}
		specs[spec.Name] = spec
	}

	return &Model{artifact: artifact, specs: specs}, nil
}

// Name はモデル名を返す。
func (m *Model) Name() string { return m.artifact.ModelName }

// Info はモデルのメタデータを返す。
func (m *Model) Info() model.ModelInfo {
	features := make([]string, 0, len(m.artifact.Features))
	for _, spec := range m.artifact.Features {
		features = append(features, spec.Name)
	}
	return model.ModelInfo{
		Name:      m.artifact.ModelName,
		Version:   m.artifact.Version,
		Algorithm: m.artifact.Algorithm,
		Task:      m.artifact.Task,
		Features:  features,
		Available: true,
	}
}

// Validate は特徴量ベクトルをスキーマに照らして検証する。
// 欠けているキー・余分なキー・型不一致・未知のカテゴリ水準はすべて
// INVALID_FEATURESとして報告し、モデル評価には進まない。
func (m *Model) Validate(features model.FeatureVector) *model.APIError {
	var missing, extra, invalid []string

	for name := range m.specs {
		if _, ok := features[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name, value := range features {
		spec, ok := m.specs[name]
		if !ok {
			extra = append(extra, name)
			continue
		}
		switch spec.Type {
		case FeatureNumeric:
			if _, ok := numericValue(value); !ok {
				invalid = append(invalid, fmt.Sprintf("%s（数値が必要）", name))
			}
		case FeatureCategorical:
			s, ok := value.(string)
			if !ok || !containsLevel(spec.Levels, s) {
				invalid = append(invalid, fmt.Sprintf("%s（許容値: %s）", name, strings.Join(spec.Levels, ", ")))
			}
		}
	}

	if len(missing) == 0 && len(extra) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		sort.Strings(missing)
		parts = append(parts, "不足: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		parts = append(parts, "余分: "+strings.Join(extra, ", "))
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		parts = append(parts, "不正: "+strings.Join(invalid, ", "))
	}
	return model.NewInvalidFeaturesError(strings.Join(parts, "; "))
}

// Eval は検証済みの特徴量ベクトルを評価する。
// 分類では予測ラベルと予測クラスの確率、回帰ではスカラー値を返す。
// 呼び出し前にValidateを通過していることが前提。
func (m *Model) Eval(features model.FeatureVector) (label string, score float64, risk model.RiskLevel) {
	z := m.artifact.Intercept
	for name, spec := range m.specs {
		value := features[name]
		switch spec.Type {
		case FeatureNumeric:
			v, _ := numericValue(value)
			z += m.artifact.Weights[name] * v
		case FeatureCategorical:
			level := value.(string)
			z += m.artifact.CategoricalWeights[name][level]
		}
	}

	if m.artifact.Task == model.TaskRegression {
		return "", z, ""
	}

	p := sigmoid(z)
	if p >= 0.5 {
		return m.artifact.Labels.Positive, p, model.RiskLevelFor(p)
	}
	return m.artifact.Labels.Negative, 1 - p, model.RiskLevelFor(p)
}

// numericValue はJSONデコード結果の数値表現をfloat64に正規化する。
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func containsLevel(levels []string, s string) bool {
	for _, l := range levels {
		if l == s {
			return true
		}
	}
	return false
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
