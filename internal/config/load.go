package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// envPattern recognizes both $NAME and ${NAME} references; undefined
// variables expand to the empty string per the external interface spec.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnv substitutes $NAME / ${NAME} references against the process
// environment. It is applied to script, cwd, args[], and every env value.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}

func (p *ProcessConfig) expand() {
	p.Script = expandEnv(p.Script)
	p.Cwd = expandEnv(p.Cwd)
	for i, a := range p.Args {
		p.Args[i] = expandEnv(a)
	}
	if p.Env != nil {
		expanded := make(map[string]string, len(p.Env))
		for k, v := range p.Env {
			expanded[k] = expandEnv(v)
		}
		p.Env = expanded
	}
}

// Load reads a config file (TOML or JSON, selected by extension) and returns
// the fully validated, defaulted, environment-expanded list of process
// configs it describes. Accepted shapes: a single process object, a
// `{processes: [...]}` object, or a bare top-level array.
func Load(path string) ([]*ProcessConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var unmarshal func([]byte, interface{}) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		unmarshal = json.Unmarshal
	case ".toml", "":
		unmarshal = toml.Unmarshal
	default:
		return nil, fmt.Errorf("unrecognized config extension %q", ext)
	}

	configs, err := decodeDocument(raw, unmarshal)
	if err != nil {
		return nil, err
	}

	for _, c := range configs {
		c.expand()
		c.SetDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return configs, nil
}

func decodeDocument(raw []byte, unmarshal func([]byte, interface{}) error) ([]*ProcessConfig, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*ProcessConfig
		if err := unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parse config array: %w", err)
		}
		return list, nil
	}

	var multi multiDocument
	if err := unmarshal(raw, &multi); err == nil && len(multi.Processes) > 0 {
		return multi.Processes, nil
	}

	var single ProcessConfig
	if err := unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if single.Name == "" {
		return nil, fmt.Errorf("parse config: no process definitions found")
	}
	return []*ProcessConfig{&single}, nil
}
