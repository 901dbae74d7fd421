package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/form"
)

// RootID is the ID given to the sequence that wraps a graph file holding a
// list of nodes.
const RootID = "root"

// Unmarshal decodes data as JSON when path ends in .json and as YAML otherwise.
func Unmarshal(path string, data []byte, out any) error {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Unmarshal(path, data, out)
}

// ParseActionGraph decodes a graph document. A document holding a list of
// nodes becomes a sequence with ID RootID.
func ParseActionGraph(path string, data []byte) (*domain.ActionNode, error) {
	var probe any
	if err := Unmarshal(path, data, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe.([]any); ok {
		var nodes []domain.ActionNode
		if err := Unmarshal(path, data, &nodes); err != nil {
			return nil, err
		}
		return &domain.ActionNode{
			ID:     RootID,
			Kind:   domain.KindSequence,
			Params: map[string]any{domain.ParamActions: nodes},
		}, nil
	}

	var node domain.ActionNode
	if err := Unmarshal(path, data, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// LoadActionGraph reads and decodes a graph file.
func LoadActionGraph(path string) (*domain.ActionNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read action graph: %w", err)
	}
	return ParseActionGraph(path, data)
}

// LoadContext reads an execution context file. Missing state scopes are
// initialized so handlers never see nil maps.
func LoadContext(path string) (*domain.ExecutionContext, error) {
	ectx := domain.NewExecutionContext()
	if err := readFile(path, ectx); err != nil {
		return nil, err
	}
	if ectx.PageState == nil {
		ectx.PageState = map[string]any{}
	}
	if ectx.FormData == nil {
		ectx.FormData = map[string]any{}
	}
	if ectx.WidgetStates == nil {
		ectx.WidgetStates = map[string]any{}
	}
	return ectx, nil
}

// LoadFormConfig reads a form configuration file.
func LoadFormConfig(path string) (form.Config, error) {
	var raw map[string]any
	if err := readFile(path, &raw); err != nil {
		return form.Config{}, err
	}
	cfg, err := form.DecodeConfig(raw)
	if err != nil {
		return cfg, fmt.Errorf("invalid form config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}
