package machine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Size units predeclared in Starlark configuration files.
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)

// LoadStarlarkConfig evaluates a Starlark file and maps its top-level
// globals onto Config fields by their JSON names. Globals starting with an
// underscore and functions are private to the script. Unknown names are an
// error.
//
//	ram_size = 4 * MiB
//	boot_size = 64 * KiB
//	program_image = "hello.elf"
func LoadStarlarkConfig(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config file: %w", err)
	}

	return evalStarlarkConfig(path, src)
}

func evalStarlarkConfig(name string, src []byte) (*Config, error) {
	thread := &starlark.Thread{Name: "config"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"KiB": starlark.MakeInt(KiB),
		"MiB": starlark.MakeInt(MiB),
		"GiB": starlark.MakeInt(GiB),
	}

	globals, err := starlark.ExecFileOptions(&opts, thread, name, src, pred)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate machine config: %w", err)
	}

	fields := map[string]any{}
	for key, value := range globals {
		if strings.HasPrefix(key, "_") {
			continue
		}
		if _, ok := value.(starlark.Callable); ok {
			continue
		}

		v, err := starlarkToGo(value)
		if err != nil {
			return nil, fmt.Errorf("machine config %s: %w", key, err)
		}
		fields[key] = v
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize machine config: %w", err)
	}

	config := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}

	return config, nil
}

func starlarkToGo(value starlark.Value) (any, error) {
	switch v := value.(type) {
	case starlark.Int:
		if u, ok := v.Uint64(); ok {
			return u, nil
		}
		if i, ok := v.Int64(); ok {
			return i, nil
		}
		return nil, fmt.Errorf("integer %s out of range", v)
	case starlark.Float:
		return float64(v), nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.String:
		return string(v), nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", value.Type())
	}
}

// LoadAnyConfig picks the loader by file extension: .star and .bzl files
// are Starlark, anything else is JSON.
func LoadAnyConfig(path string) (*Config, error) {
	switch {
	case strings.HasSuffix(path, ".star"), strings.HasSuffix(path, ".bzl"):
		return LoadStarlarkConfig(path)
	default:
		return LoadConfig(path)
	}
}
