// pkg/juju/tools.go
//
// Package juju talks to the Juju agent through the hook tools it places on
// PATH for the duration of a hook or action.

package juju

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Status is a workload status name accepted by status-set.
type Status string

const (
	StatusMaintenance Status = "maintenance"
	StatusActive      Status = "active"
	StatusBlocked     Status = "blocked"
)

// ErrResourceUnavailable is returned by ResourceGet when no resource has
// been attached.
var ErrResourceUnavailable = cerr.New("resource not available")

// Client runs hook tools through a Runner.
type Client struct {
	Runner execute.Runner
}

// New returns a Client. A nil runner uses the process runner.
func New(runner execute.Runner) *Client {
	if runner == nil {
		runner = execute.DefaultRunner
	}
	return &Client{Runner: runner}
}

func (c *Client) run(rc *charm_io.RuntimeContext, opts execute.Options) (string, error) {
	opts.Logger = rc.Log
	out, err := c.Runner.Run(rc.Ctx, opts)
	if err != nil {
		return out, cerr.Wrapf(err, "%s failed", opts.Command)
	}
	return out, nil
}

func (c *Client) tool(rc *charm_io.RuntimeContext, name string, args ...string) (string, error) {
	return c.run(rc, execute.Options{Command: name, Args: args})
}

// StatusSet sets the unit's workload status.
func (c *Client) StatusSet(rc *charm_io.RuntimeContext, status Status, message string) error {
	otelzap.Ctx(rc.Ctx).Info("Setting unit status",
		zap.String("status", string(status)),
		zap.String("message", message))
	_, err := c.tool(rc, "status-set", string(status), message)
	return err
}

// ApplicationVersionSet publishes the workload version.
func (c *Client) ApplicationVersionSet(rc *charm_io.RuntimeContext, version string) error {
	_, err := c.tool(rc, "application-version-set", version)
	return err
}

// IsLeader reports whether this unit is the application leader.
func (c *Client) IsLeader(rc *charm_io.RuntimeContext) (bool, error) {
	out, err := c.tool(rc, "is-leader", "--format=json")
	if err != nil {
		return false, err
	}
	var leader bool
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &leader); err != nil {
		return false, cerr.Wrap(err, "decode is-leader output")
	}
	return leader, nil
}

// RelationIDs lists the ids of relations on endpoint.
func (c *Client) RelationIDs(rc *charm_io.RuntimeContext, endpoint string) ([]string, error) {
	out, err := c.tool(rc, "relation-ids", endpoint, "--format=json")
	if err != nil {
		return nil, err
	}
	var ids []string
	if trimmed := strings.TrimSpace(out); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
			return nil, cerr.Wrap(err, "decode relation-ids output")
		}
	}
	return ids, nil
}

// RelationGet reads the databag of member (a unit or application name) on
// relation relID. app selects the application databag.
func (c *Client) RelationGet(rc *charm_io.RuntimeContext, relID, member string, app bool) (map[string]string, error) {
	args := []string{"-r", relID, "--format=json"}
	if app {
		args = append(args, "--app")
	}
	args = append(args, "-", member)
	out, err := c.tool(rc, "relation-get", args...)
	if err != nil {
		return nil, err
	}
	data := map[string]string{}
	if trimmed := strings.TrimSpace(out); trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
			return nil, cerr.Wrap(err, "decode relation-get output")
		}
	}
	return data, nil
}

// RelationSet writes data into this unit's (or, with app, the
// application's) databag on relID. The data is passed as YAML on stdin so
// multi-line values survive.
func (c *Client) RelationSet(rc *charm_io.RuntimeContext, relID string, app bool, data map[string]string) error {
	body, err := yaml.Marshal(data)
	if err != nil {
		return cerr.Wrap(err, "encode relation data")
	}
	args := []string{"-r", relID}
	if app {
		args = append(args, "--app")
	}
	args = append(args, "--file", "-")
	otelzap.Ctx(rc.Ctx).Debug("Setting relation data",
		zap.String("relation_id", relID),
		zap.Bool("app", app),
		zap.Strings("keys", sortedKeys(data)))
	_, err = c.run(rc, execute.Options{Command: "relation-set", Args: args, Stdin: string(body)})
	return err
}

// SecretAdd creates an application-owned secret and returns its id.
func (c *Client) SecretAdd(rc *charm_io.RuntimeContext, label string, content map[string]string) (string, error) {
	args := append([]string{"--label", label}, contentArgs(content)...)
	out, err := c.run(rc, execute.Options{Command: "secret-add", Args: args, Sensitive: true})
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(out)
	if id == "" {
		return "", cerr.Newf("secret-add returned no id for %s", label)
	}
	return id, nil
}

// SecretSet replaces the content of an existing secret.
func (c *Client) SecretSet(rc *charm_io.RuntimeContext, id string, content map[string]string) error {
	args := append([]string{id}, contentArgs(content)...)
	_, err := c.run(rc, execute.Options{Command: "secret-set", Args: args, Sensitive: true})
	return err
}

// SecretIDByLabel returns the id of the application-owned secret carrying
// label, or "" when no such secret exists.
func (c *Client) SecretIDByLabel(rc *charm_io.RuntimeContext, label string) (string, error) {
	out, err := c.tool(rc, "secret-info-get", "--label", label, "--format=json")
	if err != nil {
		if strings.Contains(execute.Output(err), "not found") {
			return "", nil
		}
		return "", err
	}
	info := map[string]json.RawMessage{}
	if trimmed := strings.TrimSpace(out); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &info); err != nil {
			return "", cerr.Wrap(err, "decode secret-info-get output")
		}
	}
	for id := range info {
		if !strings.HasPrefix(id, "secret:") {
			id = "secret:" + id
		}
		return id, nil
	}
	return "", nil
}

// SecretGrant lets the remote side of relID read secret id.
func (c *Client) SecretGrant(rc *charm_io.RuntimeContext, id, relID string) error {
	_, err := c.tool(rc, "secret-grant", id, "-r", relID)
	return err
}

// ActionGet returns the parameters of the running action.
func (c *Client) ActionGet(rc *charm_io.RuntimeContext) (map[string]string, error) {
	out, err := c.tool(rc, "action-get", "--format=json")
	if err != nil {
		return nil, err
	}
	raw := map[string]interface{}{}
	if trimmed := strings.TrimSpace(out); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return nil, cerr.Wrap(err, "decode action-get output")
		}
	}
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			params[k] = s
			continue
		}
		b, _ := json.Marshal(v)
		params[k] = string(b)
	}
	return params, nil
}

// ActionSet records results on the running action.
func (c *Client) ActionSet(rc *charm_io.RuntimeContext, results map[string]string) error {
	if len(results) == 0 {
		return nil
	}
	_, err := c.tool(rc, "action-set", contentArgs(results)...)
	return err
}

// ActionFail marks the running action as failed.
func (c *Client) ActionFail(rc *charm_io.RuntimeContext, message string) error {
	_, err := c.tool(rc, "action-fail", message)
	return err
}

// ConfigGet returns the application config.
func (c *Client) ConfigGet(rc *charm_io.RuntimeContext) (map[string]interface{}, error) {
	out, err := c.tool(rc, "config-get", "--format=json")
	if err != nil {
		return nil, err
	}
	cfg := map[string]interface{}{}
	if trimmed := strings.TrimSpace(out); trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal([]byte(trimmed), &cfg); err != nil {
			return nil, cerr.Wrap(err, "decode config-get output")
		}
	}
	return cfg, nil
}

// ResourceGet returns the local path of resource name, or
// ErrResourceUnavailable when none was attached.
func (c *Client) ResourceGet(rc *charm_io.RuntimeContext, name string) (string, error) {
	out, err := c.tool(rc, "resource-get", name)
	if err != nil {
		msg := execute.Output(err)
		if strings.Contains(msg, "not found") || strings.Contains(msg, "no resource") || strings.Contains(msg, "upload") {
			return "", cerr.Wrapf(ErrResourceUnavailable, "%s: %s", name, msg)
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Log writes to the Juju debug log.
func (c *Client) Log(rc *charm_io.RuntimeContext, level, message string) error {
	_, err := c.tool(rc, "juju-log", "--log-level", strings.ToUpper(level), message)
	return err
}

func contentArgs(content map[string]string) []string {
	keys := sortedKeys(content)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, k+"="+content[k])
	}
	return args
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
