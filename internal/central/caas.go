package central

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

const caasPath = "/caasapi/v1/exec/cmd"

// IsMAC reports whether target looks like a colon-separated MAC address,
// which CAAS addresses as a node rather than a group.
func IsMAC(target string) bool {
	return len(target) == 17 && strings.Contains(target, ":")
}

// SendCommands runs configuration commands on a gateway group or, when
// target is a MAC address, a single gateway.
func (c *Client) SendCommands(ctx context.Context, target string, cmds []string) *api.Envelope {
	var kept []string
	for _, cmd := range cmds {
		if cmd = strings.TrimSpace(cmd); cmd != "" {
			kept = append(kept, cmd)
		}
	}
	if target == "" || len(kept) == 0 {
		return errorEnvelope(http.MethodPost, caasPath, errors.New("a target and at least one command are required"))
	}

	req := api.Post(caasPath, map[string]any{"cli_cmds": kept}).
		Param("cid", c.d.Account().CustomerID)
	if IsMAC(target) {
		req.Param("node_name", target)
	} else {
		req.Param("group_name", target)
	}
	return c.get(ctx, req)
}

// CAAS status codes, globally and per command.
const (
	CAASStatusOK      = 0
	CAASStatusWarning = 2
)

// CAASCommandResult is the outcome of one command in a CAAS reply.
type CAASCommandResult struct {
	Command string `json:"command"`
	Status  int    `json:"status"`
	Result  string `json:"result"`
	Detail  string `json:"detail,omitempty"`
}

// CAASReport is the evaluated body of a CAAS reply. Central answers 200 even
// when commands fail; the outcome is carried in _global_result and
// cli_cmds_result instead.
type CAASReport struct {
	OK       bool                `json:"ok"`
	Status   int                 `json:"status"`
	Result   string              `json:"result"`
	Detail   string              `json:"detail,omitempty"`
	Commands []CAASCommandResult `json:"commands,omitempty"`
}

// EvalCAAS reads the CAAS outcome from a successful envelope. It returns
// false when env failed or its output is not a CAAS body. A body without a
// global status counts as a failure.
func EvalCAAS(env *api.Envelope) (CAASReport, bool) {
	if !env.IsOK() {
		return CAASReport{}, false
	}
	m, ok := env.Output.(map[string]any)
	if !ok {
		return CAASReport{}, false
	}

	report := CAASReport{Status: -1}
	if global, ok := m["_global_result"].(map[string]any); ok {
		if code, ok := statusCode(global["status"]); ok {
			report.Status = code
		}
		report.Detail, _ = global["status_str"].(string)
	}
	report.OK = report.Status == CAASStatusOK
	report.Result = "Failure"
	if report.OK {
		report.Result = "Success"
	}

	entries, _ := m["cli_cmds_result"].([]any)
	for _, entry := range entries {
		cmds, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for _, cmd := range slices.Sorted(maps.Keys(cmds)) {
			raw := cmds[cmd]
			r := CAASCommandResult{Command: cmd, Status: -1}
			if fields, ok := raw.(map[string]any); ok {
				if code, ok := statusCode(fields["status"]); ok {
					r.Status = code
				}
				r.Detail, _ = fields["status_str"].(string)
			}
			r.Result = commandResult(r.Status)
			report.Commands = append(report.Commands, r)
		}
	}
	return report, true
}

// CAASError describes why a CAAS call failed, or returns "" when it
// succeeded. Failed transport or HTTP status takes precedence.
func CAASError(env *api.Envelope) string {
	if !env.IsOK() {
		return env.Error
	}
	report, ok := EvalCAAS(env)
	if !ok {
		return "unexpected CAAS reply"
	}
	if report.OK {
		return ""
	}

	var failed []string
	for _, c := range report.Commands {
		if c.Status != CAASStatusOK && c.Status != CAASStatusWarning {
			failed = append(failed, fmt.Sprintf("%s (%s)", c.Command, c.Result))
		}
	}
	msg := fmt.Sprintf("CAAS global result: failure (status %d)", report.Status)
	if report.Detail != "" {
		msg += ": " + report.Detail
	}
	if len(failed) > 0 {
		msg += "; failed: " + strings.Join(failed, ", ")
	}
	return msg
}

// CAASFailed reports whether a CAAS call failed. It is a batch halt predicate.
func CAASFailed(env *api.Envelope) bool {
	return CAASError(env) != ""
}

func commandResult(status int) string {
	switch status {
	case CAASStatusOK:
		return "OK"
	case CAASStatusWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("ERROR %d", status)
	}
}

func statusCode(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
