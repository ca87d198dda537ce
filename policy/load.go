package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads a YAML policy document. Keys that are absent keep the stock
// defaults; unknown keys are an error so typos cannot silently widen or
// narrow the policy.
func Decode(r io.Reader) (Spec, error) {
	spec := Default("")
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return spec, nil
		}
		return Spec{}, fmt.Errorf("decode policy: %w", err)
	}
	return spec, nil
}

// LoadFile decodes the policy at path. A relative root_dir is resolved
// against the directory holding the file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	spec, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", path, err)
	}
	root := strings.TrimSpace(spec.RootDir)
	if root != "" && !filepath.IsAbs(root) {
		spec.RootDir = filepath.Join(filepath.Dir(path), root)
	}
	return spec, nil
}

// YAML renders the spec in the same format Decode accepts.
func (s Spec) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
