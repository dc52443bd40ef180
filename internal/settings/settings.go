package settings

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// File is the decoded settings file. Zero values mean "not set".
type File struct {
	BaseURL      string
	Resource     string
	Timeout      time.Duration
	MaxBodyBytes int64
	OnFailure    string
	Unit         *Unit
	// EvalContext is the context the file was evaluated with; unit
	// arguments are decoded later with the same one.
	EvalContext *hcl.EvalContext
}

// Unit is a `unit "<name>" { ... }` block. Args is left undecoded because
// only the registry knows the unit's input struct.
type Unit struct {
	Name string
	Args hcl.Body
}

// fileRoot mirrors the top level of a settings file.
type fileRoot struct {
	OnFailure string       `hcl:"on_failure,optional"`
	Source    *sourceBlock `hcl:"source,block"`
	Unit      *unitBlock   `hcl:"unit,block"`
}

type sourceBlock struct {
	BaseURL  string `hcl:"base_url,optional"`
	Resource string `hcl:"resource,optional"`
	Timeout  string `hcl:"timeout,optional"`
	MaxBody  int64  `hcl:"max_body_bytes,optional"`
}

type unitBlock struct {
	Name string   `hcl:"name,label"`
	Args hcl.Body `hcl:",remain"`
}

// Load parses the settings file at path, evaluating it against the process
// environment.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, diags)
	}
	return decode(hclFile, path, ProcessEnvContext())
}

// Parse decodes settings from src. filename is only used in diagnostics.
func Parse(src []byte, filename string, evalCtx *hcl.EvalContext) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", filename, diags)
	}
	return decode(hclFile, filename, evalCtx)
}

func decode(hclFile *hcl.File, filename string, evalCtx *hcl.EvalContext) (*File, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode settings file %s: %w", filename, diags)
	}

	out := &File{
		OnFailure:   root.OnFailure,
		EvalContext: evalCtx,
	}
	if root.Source != nil {
		out.BaseURL = root.Source.BaseURL
		out.Resource = root.Source.Resource
		if root.Source.MaxBody < 0 {
			return nil, fmt.Errorf("settings file %s: max_body_bytes must not be negative", filename)
		}
		out.MaxBodyBytes = root.Source.MaxBody
		if root.Source.Timeout != "" {
			timeout, err := time.ParseDuration(root.Source.Timeout)
			if err != nil {
				return nil, fmt.Errorf("settings file %s: invalid source timeout: %w", filename, err)
			}
			out.Timeout = timeout
		}
	}
	if root.Unit != nil {
		out.Unit = &Unit{Name: root.Unit.Name, Args: root.Unit.Args}
	}
	return out, nil
}
