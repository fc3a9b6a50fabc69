package enforcement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Job is one remote-automation run: a playbook, the target inventory, and
// run variables.
type Job struct {
	Playbook  string
	Inventory Inventory
	Variables map[string]interface{}
}

// Result is the executor outcome. A failed or timed-out run is reported via
// Success=false, not an error; errors are reserved for problems invoking the
// runner at all.
type Result struct {
	Success bool
	Output  string
}

// Runner executes a remote-automation job. Implementations must honor ctx
// cancellation and deadlines.
type Runner interface {
	Run(ctx context.Context, job Job) (Result, error)
}

// AnsibleRunner shells out to ansible-playbook with a rendered inventory.
type AnsibleRunner struct {
	Binary      string // defaults to "ansible-playbook"
	PlaybookDir string // directory holding the playbooks
}

// NewAnsibleRunner returns a runner for playbooks under dir.
func NewAnsibleRunner(binary, dir string) *AnsibleRunner {
	if binary == "" {
		binary = "ansible-playbook"
	}
	return &AnsibleRunner{Binary: binary, PlaybookDir: filepath.Join(dir, "playbooks")}
}

// Run renders the inventory to a temp file and executes the playbook under
// the caller's deadline. The run's combined output is always returned for
// audit, pass or fail.
func (r *AnsibleRunner) Run(ctx context.Context, job Job) (Result, error) {
	invData, err := job.Inventory.Render()
	if err != nil {
		return Result{}, fmt.Errorf("render inventory: %w", err)
	}

	invFile, err := os.CreateTemp("", "aegis-inventory-*.yml")
	if err != nil {
		return Result{}, fmt.Errorf("create inventory file: %w", err)
	}
	defer os.Remove(invFile.Name())
	if _, err := invFile.Write(invData); err != nil {
		invFile.Close()
		return Result{}, fmt.Errorf("write inventory file: %w", err)
	}
	invFile.Close()

	vars, err := json.Marshal(job.Variables)
	if err != nil {
		return Result{}, fmt.Errorf("encode extra vars: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Binary,
		"-i", invFile.Name(),
		filepath.Join(r.PlaybookDir, job.Playbook),
		"--extra-vars", string(vars),
		"-v",
	)

	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		if ctx.Err() != nil {
			return Result{Success: false, Output: "execution timed out: " + string(out)}, nil
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return Result{Success: false, Output: string(out)}, nil
		}
		return Result{}, fmt.Errorf("run playbook %s: %w", job.Playbook, runErr)
	}

	return Result{Success: true, Output: string(out)}, nil
}
