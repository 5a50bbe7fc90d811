package predict

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/hitoshi/libgate/internal/model"
)

// Registry は起動時にロードしたモデルの保持と検索を行う。
// ロード後は読み取り専用であり、複数リクエストから安全に並行参照できる。
type Registry struct {
	models map[string]*Model
	failed map[string]error
}

// NewRegistry は空のRegistryを生成する。主にテスト用。
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*Model),
		failed: make(map[string]error),
	}
}

// Add はロード済みモデルを登録する。
func (r *Registry) Add(m *Model) {
	r.models[m.Name()] = m
}

// AddFailed はロードに失敗したモデルを利用不可として記録する。
func (r *Registry) AddFailed(name string, err error) {
	r.failed[name] = err
}

// LoadDir はディレクトリ配下の全モデルをロードしたRegistryを生成する。
//
// レイアウトは1モデル1サブディレクトリで、各ディレクトリ直下のmodel.jsonを
// アーティファクトとして読む。個々のモデルのロード失敗はそのモデルを
// 利用不可として記録するだけで、他のモデルの提供は継続する。
// ディレクトリ自体が存在しない場合も空のRegistryで起動する。
func LoadDir(dir string) *Registry {
	r := NewRegistry()

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("models directory is not readable; no models will be served",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return r
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()

		m, err := loadArtifact(filepath.Join(dir, name, "model.json"))
		if err != nil {
			slog.Error("failed to load model; marking unavailable",
				slog.String("model", name),
				slog.String("error", err.Error()),
			)
			r.AddFailed(name, err)
			continue
		}

		r.Add(m)
		slog.Info("model loaded",
			slog.String("model", m.Name()),
			slog.String("version", m.artifact.Version),
			slog.String("algorithm", m.artifact.Algorithm),
		)
	}

	return r
}

// loadArtifact はmodel.jsonを読み取りModelを構築する。
func loadArtifact(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	m, err := NewModel(artifact)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	return m, nil
}

// Get は指定名のモデルを返す。未登録またはロード失敗の場合はfalseを返す。
func (r *Registry) Get(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// List は登録済みモデルのメタデータ一覧を名前順で返す。
// ロードに失敗したモデルもAvailable=falseとして一覧に含める。
func (r *Registry) List() []model.ModelInfo {
	infos := make([]model.ModelInfo, 0, len(r.models)+len(r.failed))
	for _, m := range r.models {
		infos = append(infos, m.Info())
	}
	for name := range r.failed {
		infos = append(infos, model.ModelInfo{Name: name, Available: false})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
