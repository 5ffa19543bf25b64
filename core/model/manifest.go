package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// ManifestVersion はマニフェスト形式のバージョン
const ManifestVersion = "1"

// Manifest はモデルファイルに付随するメタデータ（<path>.json）
type Manifest struct {
	// ModelType はモデルの種類（Pipeline[ColumnTransformer,RandomForestClassifier]等）
	ModelType string `json:"model_type"`

	// Version はマニフェスト形式のバージョン（互換性チェック用）
	Version string `json:"version"`

	// RunID は学習実行の識別子
	RunID string `json:"run_id,omitempty"`

	// CreatedAt は保存日時（UTC）
	CreatedAt time.Time `json:"created_at"`

	// SHA256 はモデルファイルのハッシュ値
	SHA256 string `json:"sha256"`

	// SizeBytes はモデルファイルのサイズ
	SizeBytes int64 `json:"size_bytes"`

	// Features は変換後の特徴量の名前
	Features []string `json:"features,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metrics はテストデータでの評価指標
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// ManifestPath はモデルファイルに対応するマニフェストのパスを返す
func ManifestPath(modelPath string) string {
	return modelPath + ".json"
}

// ToJSON はManifestをJSON形式にシリアライズ
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// FromJSON はJSON形式からManifestをデシリアライズ
func (m *Manifest) FromJSON(data []byte) error {
	return json.Unmarshal(data, m)
}

// Validate はManifestの妥当性を検証
func (m *Manifest) Validate() error {
	if m.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", m.ModelType)
	}
	if m.Version != ManifestVersion {
		return errors.NewValidationError("version", "unsupported manifest version", m.Version)
	}
	if len(m.SHA256) != sha256.Size*2 {
		return errors.NewValidationError("sha256", "must be a hex-encoded SHA-256 digest", m.SHA256)
	}
	if !m.IsFitted {
		return errors.NewValidationError("is_fitted", "manifest must describe a fitted model", m.IsFitted)
	}
	return nil
}

// Clone はManifestのディープコピーを作成
func (m *Manifest) Clone() *Manifest {
	clone := *m
	clone.Features = append([]string(nil), m.Features...)
	clone.Hyperparameters = make(map[string]interface{}, len(m.Hyperparameters))
	for k, v := range m.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	if m.Metrics != nil {
		clone.Metrics = make(map[string]float64, len(m.Metrics))
		for k, v := range m.Metrics {
			clone.Metrics[k] = v
		}
	}
	return &clone
}

// FileSHA256 はファイルのSHA-256とサイズを計算する
func FileSHA256(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, errors.Wrapf(err, "failed to hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// WriteManifest はモデルファイルのハッシュを計算し、マニフェストを <modelPath>.json に保存する
func WriteManifest(modelPath string, m *Manifest) error {
	sum, size, err := FileSHA256(modelPath)
	if err != nil {
		return err
	}
	m.SHA256 = sum
	m.SizeBytes = size
	if m.Version == "" {
		m.Version = ManifestVersion
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := m.Validate(); err != nil {
		return err
	}

	data, err := m.ToJSON()
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	return writeAtomic(ManifestPath(modelPath), func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// ReadManifest は <modelPath>.json を読み込む
func ReadManifest(modelPath string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(modelPath))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest for %s", modelPath)
	}
	var m Manifest
	if err := m.FromJSON(data); err != nil {
		return nil, errors.Wrapf(err, "failed to decode manifest for %s", modelPath)
	}
	return &m, nil
}

// VerifyManifest はマニフェストを読み込み、モデルファイルのハッシュと一致するか検証する
func VerifyManifest(modelPath string) (*Manifest, error) {
	m, err := ReadManifest(modelPath)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	sum, _, err := FileSHA256(modelPath)
	if err != nil {
		return nil, err
	}
	if sum != m.SHA256 {
		return nil, errors.NewModelError("VerifyManifest", "checksum mismatch",
			errors.Newf("%s has sha256 %s, manifest records %s", modelPath, sum, m.SHA256))
	}
	return m, nil
}
