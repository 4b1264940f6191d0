package keystore

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// EncryptAccessKeys seals every plaintext access_keys[].value of a keys file
// and returns the re-encoded document with the number of values changed.
// Comments and key order are kept.
func EncryptAccessKeys(b []byte) ([]byte, int, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, 0, fmt.Errorf("parse keys: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, 0, errors.New("keys file is empty")
	}
	aks, ok := mappingGet(doc.Content[0], "access_keys")
	if !ok || aks.Kind != yaml.SequenceNode {
		return nil, 0, errors.New("keys file has no access_keys list")
	}
	changed := 0
	for _, it := range aks.Content {
		c, err := encryptValueField(it)
		if err != nil {
			return nil, 0, err
		}
		changed += c
	}
	if changed == 0 {
		return b, 0, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, 0, err
	}
	if err := enc.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), changed, nil
}

func encryptValueField(item *yaml.Node) (int, error) {
	if item == nil || item.Kind != yaml.MappingNode {
		return 0, nil
	}
	v, ok := mappingGet(item, "value")
	if !ok || v == nil {
		return 0, nil
	}
	raw := strings.TrimSpace(v.Value)
	if raw == "" || IsEncrypted(raw) {
		return 0, nil
	}
	enc, err := Encrypt(raw)
	if err != nil {
		return 0, fmt.Errorf("encrypt value failed: %w", err)
	}
	v.Kind = yaml.ScalarNode
	v.Tag = "!!str"
	v.Style = 0
	v.Value = enc
	return 1, nil
}

func mappingGet(m *yaml.Node, key string) (*yaml.Node, bool) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if k := m.Content[i]; k != nil && k.Value == key {
			return m.Content[i+1], true
		}
	}
	return nil, false
}
