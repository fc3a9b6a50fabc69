package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// FabricCLI submits ledger writes by invoking chaincode through the Fabric
// peer CLI running in a sidecar container.
type FabricCLI struct {
	DockerBinary string // defaults to "docker"
	Container    string // CLI container name
	Orderer      string
	Channel      string
	Chaincode    string
	Timeout      time.Duration
}

// NewFabricCLI returns a FabricCLI with sane defaults.
func NewFabricCLI(container, orderer, channel, chaincode string) *FabricCLI {
	return &FabricCLI{
		DockerBinary: "docker",
		Container:    container,
		Orderer:      orderer,
		Channel:      channel,
		Chaincode:    chaincode,
		Timeout:      30 * time.Second,
	}
}

// Submit invokes the compliance chaincode with the payload and parses the
// transaction id out of the peer CLI output.
func (f *FabricCLI) Submit(ctx context.Context, payload []byte) (string, error) {
	args, err := json.Marshal(map[string][]string{
		"Args": {"executeDecision", string(payload)},
	})
	if err != nil {
		return "", fmt.Errorf("encode chaincode args: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.DockerBinary, "exec", "-i", f.Container,
		"peer", "chaincode", "invoke",
		"-o", f.Orderer,
		"-C", f.Channel,
		"-n", f.Chaincode,
		"-c", string(args),
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("chaincode invoke: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return parseTxID(string(out)), nil
}

// parseTxID pulls the transaction id from peer CLI output. The CLI prints a
// line containing "txid [<hex>]"; "unknown" is returned when absent since the
// write itself succeeded.
func parseTxID(out string) string {
	for _, line := range strings.Split(out, "\n") {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, "txid")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("txid"):]
		if open := strings.Index(rest, "["); open >= 0 {
			if close := strings.Index(rest[open:], "]"); close > 0 {
				return rest[open+1 : open+close]
			}
		}
		return strings.TrimSpace(rest)
	}
	return "unknown"
}
