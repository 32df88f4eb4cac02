package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// WriteJSON serializes data as indented JSON and stores it under name with
// the usual write collision policy. It returns the file name actually
// written.
func (s *Storage) WriteJSON(name string, data any, opts ...WriteOption) (written string, err error) {
	defer s.observe("write_json", time.Now(), &err)
	encoded, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return s.write(s.provider(), name, string(encoded), opts)
}

// ReadJSON reads name and unmarshals its JSON content into v. The name
// follows the same extension defaulting as Read, so stored JSON is usually
// addressed as "state.json" or with a ".json" default extension configured.
func (s *Storage) ReadJSON(name string, v any) (err error) {
	defer s.observe("read_json", time.Now(), &err)
	content, err := s.readFile(name, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// ReadJSONOr reads name as JSON, returning dflt when the file does not
// exist. Any other error, including malformed JSON, propagates unchanged.
func ReadJSONOr[T any](s *Storage, name string, dflt T) (T, error) {
	var v T
	if err := s.ReadJSON(name, &v); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dflt, nil
		}
		return v, err
	}
	return v, nil
}
