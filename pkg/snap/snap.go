// pkg/snap/snap.go
//
// Package snap drives snapd through the snap CLI for a single snap: install
// or refresh on a channel, hold automatic refreshes, start the service and
// report presence, activity and version.

package snap

import (
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-version"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const snapBinary = "snap"

// Inspector is the read-only view of the package the orchestrator needs.
type Inspector interface {
	Installed() bool
	Active() bool
	Version() string
}

// Record is a point-in-time projection of snapd's view of the package.
type Record struct {
	IsInstalled     bool
	IsActive        bool
	WorkloadVersion string
	Revision        string
	Channel         string
}

var _ Inspector = Record{}

func (r Record) Installed() bool { return r.IsInstalled }
func (r Record) Active() bool    { return r.IsActive }
func (r Record) Version() string { return r.WorkloadVersion }

// Result pairs the record observed after an operation with its error.
type Result struct {
	Record Record
	Err    error
}

// Controller manages one snap.
type Controller struct {
	Runner   execute.Runner
	Name     string
	Service  string
	Channel  string
	HoldDays int
	Now      func() time.Time
}

// New returns a Controller for the glauth snap.
func New(runner execute.Runner, channel string, holdDays int) *Controller {
	if runner == nil {
		runner = execute.DefaultRunner
	}
	if channel == "" {
		channel = shared.DefaultChannel
	}
	return &Controller{
		Runner:   runner,
		Name:     shared.SnapName,
		Service:  shared.SnapService,
		Channel:  channel,
		HoldDays: holdDays,
		Now:      time.Now,
	}
}

func (c *Controller) run(rc *charm_io.RuntimeContext, args ...string) (string, error) {
	return c.Runner.Run(rc.Ctx, execute.Options{
		Command: snapBinary,
		Args:    args,
		Logger:  rc.Log,
	})
}

// Install installs the snap from the configured channel, or refreshes it to
// the latest revision of that channel when already present, and then holds
// automatic refreshes.
func (c *Controller) Install(rc *charm_io.RuntimeContext) error {
	log := otelzap.Ctx(rc.Ctx)

	// ASSESS
	present, err := c.present(rc)
	if err != nil {
		return err
	}

	// INTERVENE
	op := "install"
	if present {
		op = "refresh"
	}
	log.Info("Ensuring snap is at latest revision",
		zap.String("snap", c.Name),
		zap.String("channel", c.Channel),
		zap.String("operation", op))

	if _, err := c.run(rc, op, c.Name, "--channel="+c.Channel); err != nil {
		return charm_err.NewPackageOperationError(op, c.Name, execute.Output(err), err)
	}

	if err := c.Hold(rc); err != nil {
		return err
	}

	// EVALUATE
	log.Info("Snap ensured", zap.String("snap", c.Name), zap.String("operation", op))
	return nil
}

// Refresh moves the snap to the latest revision of its channel.
func (c *Controller) Refresh(rc *charm_io.RuntimeContext) error {
	return c.Install(rc)
}

// Remove uninstalls the snap. Configuration and certificate files under the
// snap's common directory are left to snapd.
func (c *Controller) Remove(rc *charm_io.RuntimeContext) error {
	log := otelzap.Ctx(rc.Ctx)

	present, err := c.present(rc)
	if err != nil {
		return err
	}
	if !present {
		log.Info("Snap already absent", zap.String("snap", c.Name))
		return nil
	}

	if _, err := c.run(rc, "remove", c.Name); err != nil {
		return charm_err.NewPackageOperationError("remove", c.Name, execute.Output(err), err)
	}
	log.Info("Snap removed", zap.String("snap", c.Name))
	return nil
}

// Start starts the snap's services and enables them at boot.
func (c *Controller) Start(rc *charm_io.RuntimeContext) error {
	if _, err := c.run(rc, "start", "--enable", c.Name); err != nil {
		return charm_err.NewPackageOperationError("start", c.Name, execute.Output(err), err)
	}
	otelzap.Ctx(rc.Ctx).Info("Snap services started", zap.String("snap", c.Name))
	return nil
}

// Hold postpones automatic refreshes for HoldDays from now. Calling it again
// moves the deadline forward.
func (c *Controller) Hold(rc *charm_io.RuntimeContext) error {
	if c.HoldDays <= 0 {
		return nil
	}
	until := c.Now().Add(time.Duration(c.HoldDays) * 24 * time.Hour).UTC().Format(time.RFC3339)
	if _, err := c.run(rc, "set", "system", "refresh.hold="+until); err != nil {
		return charm_err.NewPackageOperationError("hold", c.Name, execute.Output(err), err)
	}
	otelzap.Ctx(rc.Ctx).Debug("Snap refresh held", zap.String("until", until))
	return nil
}

// Status reads presence, activity and version. Probe failures that do not
// prevent a partial answer are aggregated into the returned error.
func (c *Controller) Status(rc *charm_io.RuntimeContext) (Record, error) {
	var rec Record
	var result *multierror.Error

	out, err := c.run(rc, "list", c.Name)
	if err != nil {
		if isNotInstalled(err) {
			return rec, nil
		}
		return rec, cerr.Wrap(err, "snap list")
	}

	row, ok := parseList(out, c.Name)
	if !ok {
		return rec, nil
	}
	rec.IsInstalled = true
	rec.WorkloadVersion = normaliseVersion(row.version)
	rec.Revision = row.revision
	rec.Channel = row.tracking

	active, err := c.active(rc)
	if err != nil {
		result = multierror.Append(result, err)
	}
	rec.IsActive = active

	return rec, result.ErrorOrNil()
}

// Version returns the installed version, or a NotInstalledError.
func (c *Controller) Version(rc *charm_io.RuntimeContext) (string, error) {
	rec, err := c.Status(rc)
	if !rec.IsInstalled {
		if err != nil {
			return "", err
		}
		return "", charm_err.NewNotInstalledError(c.Name)
	}
	return rec.WorkloadVersion, nil
}

// Ensure installs or refreshes and reports the resulting record.
func (c *Controller) Ensure(rc *charm_io.RuntimeContext) Result {
	if err := c.Install(rc); err != nil {
		return Result{Err: err}
	}
	rec, err := c.Status(rc)
	if err != nil {
		otelzap.Ctx(rc.Ctx).Warn("Snap status incomplete", zap.Error(err))
	}
	return Result{Record: rec}
}

func (c *Controller) present(rc *charm_io.RuntimeContext) (bool, error) {
	out, err := c.run(rc, "list", c.Name)
	if err != nil {
		if isNotInstalled(err) {
			return false, nil
		}
		return false, charm_err.NewPackageOperationError("list", c.Name, execute.Output(err), err)
	}
	_, ok := parseList(out, c.Name)
	return ok, nil
}

func (c *Controller) active(rc *charm_io.RuntimeContext) (bool, error) {
	out, err := c.run(rc, "services", c.Name+"."+c.Service)
	if err != nil {
		return false, cerr.Wrap(err, "snap services")
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == c.Name+"."+c.Service {
			return fields[2] == "active", nil
		}
	}
	return false, nil
}

type listRow struct {
	version  string
	revision string
	tracking string
}

// parseList reads the data row for name out of `snap list <name>`:
//
//	Name    Version  Rev  Tracking     Publisher  Notes
//	glauth  v2.3.0   51   latest/edge  canonical  -
func parseList(out, name string) (listRow, bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != name {
			continue
		}
		row := listRow{version: fields[1]}
		if len(fields) > 2 {
			row.revision = fields[2]
		}
		if len(fields) > 3 {
			row.tracking = fields[3]
		}
		return row, true
	}
	return listRow{}, false
}

// normaliseVersion canonicalises semver-looking versions and keeps anything
// else verbatim.
func normaliseVersion(raw string) string {
	v, err := version.NewVersion(raw)
	if err != nil {
		return raw
	}
	if strings.HasPrefix(raw, "v") {
		return "v" + v.String()
	}
	return v.String()
}

// Newer reports whether candidate is a newer semantic version than current.
// Unparseable versions compare as not newer.
func Newer(current, candidate string) bool {
	cur, err := version.NewVersion(current)
	if err != nil {
		return false
	}
	cand, err := version.NewVersion(candidate)
	if err != nil {
		return false
	}
	return cand.GreaterThan(cur)
}

func isNotInstalled(err error) bool {
	out := execute.Output(err)
	return strings.Contains(out, "no matching snaps installed") ||
		strings.Contains(out, "is not installed")
}
