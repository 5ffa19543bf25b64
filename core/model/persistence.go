package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// SaveModel はモデルをファイルに保存する
//
// 同じディレクトリの一時ファイルに書き込んでからリネームするため、
// 途中で失敗しても既存のファイルが壊れることはない。親ディレクトリは自動で作成する。
//
// 使用例:
//
//	var pipe pipeline.Pipeline
//	// ... モデルの学習 ...
//	err := model.SaveModel(&pipe, "models/swing_probability_model.gob")
func SaveModel(model interface{}, filename string) error {
	return writeAtomic(filename, func(w io.Writer) error {
		return SaveModelToWriter(model, w)
	})
}

// LoadModel はファイルからモデルを読み込む
//
// 使用例:
//
//	var pipe pipeline.Pipeline
//	err := model.LoadModel(&pipe, "models/swing_probability_model.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open model file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// writeAtomic は一時ファイルに書き込み、成功した場合のみ filename にリネームする
func writeAtomic(filename string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync temporary file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary file")
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrapf(err, "failed to move model into place at %s", filename)
	}
	return nil
}
