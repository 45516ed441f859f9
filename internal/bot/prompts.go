package bot

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsRaw []byte

// surprisePrompts is the curated caption set for the surprise command,
// loaded once at init. The file ships inside the binary, so a parse failure
// is a build defect.
var surprisePrompts = mustLoadPrompts()

func mustLoadPrompts() []string {
	var f struct {
		Prompts []string `yaml:"prompts"`
	}
	if err := yaml.Unmarshal(promptsRaw, &f); err != nil {
		panic(fmt.Sprintf("parse prompts.yaml: %v", err))
	}
	if len(f.Prompts) == 0 {
		panic("prompts.yaml contains no prompts")
	}
	return f.Prompts
}
