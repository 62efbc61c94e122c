// Package manifest loads the require() whitelist (spec.md §4.7) from a
// YAML file, using gopkg.in/yaml.v2 in place of welle's hand-rolled
// `key = "value"` internal/config parser, per SPEC_FULL.md's AMBIENT
// STACK decision to prefer a real parsing library over bespoke line
// scanning wherever the corpus shows one. Each entry names a module and
// the ElementaryJS source text it evaluates to; compile (C8) evaluates
// every entry once and hands the sandbox (C7) the resulting values.Value
// so require() never has to parse at call time.
package manifest

import (
	"os"

	"gopkg.in/yaml.v2"

	"welle/internal/compile"
	"welle/internal/sandbox"
)

// Entry is one whitelisted module: a name visible to require(), and the
// ElementaryJS source text defining the module's exported value (the
// value of the source's top-level `return` statement, which
// compile.RunSync returns).
type Entry struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// Manifest is the top-level YAML document shape: a list of whitelisted
// modules, mirroring welle's Manifest{Name,Entry} but generalized from
// "one program entry point" to "a list of importable modules."
type Manifest struct {
	Modules []Entry `yaml:"modules"`
}

func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ToModules compiles every entry's source and returns the name -> Module
// map sandbox.New expects. A module whose source fails to compile is
// simply omitted; require() for that name then fails with "'NAME' not
// found." rather than silently exposing a partially-broken module.
func (m *Manifest) ToModules() map[string]sandbox.Module {
	out := make(map[string]sandbox.Module, len(m.Modules))
	for _, e := range m.Modules {
		v, err := compile.RunSync(e.Source)
		if err != nil {
			continue
		}
		out[e.Name] = sandbox.Module{Name: e.Name, Value: v}
	}
	return out
}
