// Package service probes the local model runtime: whether the CLI binary
// is installed and which version, and whether the HTTP API answers. The
// dispatcher never depends on it; it exists for the status surface.
package service

import (
	"context"
	"os/exec"
	"strings"
)

// APIProber answers reachability and version questions for the runtime API.
// Satisfied by *ollamaapi.Client.
type APIProber interface {
	Heartbeat(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}

// Status is a point-in-time snapshot of the runtime.
type Status struct {
	CLIInstalled bool   `json:"cli_installed"`
	CLIPath      string `json:"cli_path,omitempty"`
	CLIVersion   string `json:"cli_version,omitempty"`
	APIReachable bool   `json:"api_reachable"`
	APIVersion   string `json:"api_version,omitempty"`
}

// Prober checks the runtime through both of its faces.
type Prober struct {
	api    APIProber
	binary string
}

// New creates a Prober. api may be nil to skip API checks; binary is the
// runtime executable name.
func New(api APIProber, binary string) *Prober {
	return &Prober{api: api, binary: binary}
}

// Check probes the CLI and the API. Probe failures are reflected in the
// snapshot, not returned; an unreachable runtime is a finding, not an error.
func (p *Prober) Check(ctx context.Context) Status {
	var st Status

	if path, err := exec.LookPath(p.binary); err == nil {
		st.CLIInstalled = true
		st.CLIPath = path
		st.CLIVersion = p.cliVersion(ctx)
	}

	if p.api != nil {
		if err := p.api.Heartbeat(ctx); err == nil {
			st.APIReachable = true
			if v, err := p.api.Version(ctx); err == nil {
				st.APIVersion = v
			}
		}
	}
	return st
}

// cliVersion runs "<binary> --version" and extracts the version token from
// output like "ollama version is 0.5.4".
func (p *Prober) cliVersion(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, p.binary, "--version").Output()
	if err != nil {
		return ""
	}
	return parseVersion(string(out))
}

func parseVersion(out string) string {
	fields := strings.Fields(out)
	for i, f := range fields {
		if f == "is" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	if len(fields) > 0 {
		return fields[len(fields)-1]
	}
	return ""
}
