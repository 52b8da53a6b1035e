// Package message encodes watcher notifications for the wire.
//
// Two encodings exist. Legacy change messages carry the file path because a
// legacy connection may watch many files. Default change messages omit it:
// a default connection watches exactly one file.
package message

import (
	"encoding/json"
	"fmt"
)

// API versions selecting a Factory.
const (
	APILegacy = "legacy"
	APIV1     = "v1"
)

// Message types.
const (
	TypeChange = "change"
	TypeError  = "error"
)

// Source is what a change message needs to know about a log file.
type Source interface {
	Path() string
}

// Factory builds wire messages.
type Factory interface {
	CreateLogChangeMessage(src Source, lines []string) (string, error)
	CreateErrorMessage(err error) (string, error)
}

type legacyChange struct {
	Type    string   `json:"type"`
	File    string   `json:"file"`
	Changes []string `json:"changes"`
}

type defaultChange struct {
	Type    string   `json:"type"`
	Changes []string `json:"changes"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Legacy includes the file path in every change message.
type Legacy struct{}

func (Legacy) CreateLogChangeMessage(src Source, lines []string) (string, error) {
	return encode(legacyChange{Type: TypeChange, File: src.Path(), Changes: nonNil(lines)})
}

func (Legacy) CreateErrorMessage(err error) (string, error) {
	return encodeError(err)
}

// Default omits the file path from change messages.
type Default struct{}

func (Default) CreateLogChangeMessage(_ Source, lines []string) (string, error) {
	return encode(defaultChange{Type: TypeChange, Changes: nonNil(lines)})
}

func (Default) CreateErrorMessage(err error) (string, error) {
	return encodeError(err)
}

// ForAPIVersion returns the factory registered for version.
func ForAPIVersion(version string) (Factory, error) {
	switch version {
	case APILegacy:
		return Legacy{}, nil
	case APIV1, "":
		return Default{}, nil
	default:
		return nil, fmt.Errorf("unknown API version %q", version)
	}
}

func encodeError(err error) (string, error) {
	text := "unknown error"
	if err != nil {
		text = err.Error()
	}
	return encode(errorMessage{Type: TypeError, Message: text})
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return string(data), nil
}

// nonNil keeps an empty change list encoded as [] rather than null.
func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
