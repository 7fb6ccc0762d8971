package juju

import (
	"os"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// Kind distinguishes hooks from actions.
type Kind string

const (
	KindHook   Kind = "hook"
	KindAction Kind = "action"
)

// Dispatch is the event Juju asked this process to handle.
type Dispatch struct {
	Kind         Kind
	Name         string
	Unit         string
	CharmDir     string
	RelationName string
	RelationID   string
	RemoteUnit   string
	RemoteApp    string
}

// IsRelation reports whether the event carries relation context.
func (d Dispatch) IsRelation() bool { return d.RelationID != "" }

// Application returns the application part of the unit name.
func (d Dispatch) Application() string {
	app, _, _ := strings.Cut(d.Unit, "/")
	return app
}

// DispatchFromEnv reads JUJU_DISPATCH_PATH and the relation variables.
func DispatchFromEnv(getenv func(string) string) (Dispatch, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	d := Dispatch{
		Unit:         getenv("JUJU_UNIT_NAME"),
		CharmDir:     getenv("JUJU_CHARM_DIR"),
		RelationName: getenv("JUJU_RELATION"),
		RelationID:   getenv("JUJU_RELATION_ID"),
		RemoteUnit:   getenv("JUJU_REMOTE_UNIT"),
		RemoteApp:    getenv("JUJU_REMOTE_APP"),
	}

	path := getenv("JUJU_DISPATCH_PATH")
	if path == "" {
		if name := getenv("JUJU_ACTION_NAME"); name != "" {
			d.Kind, d.Name = KindAction, name
			return d, nil
		}
		return d, cerr.New("JUJU_DISPATCH_PATH is not set")
	}

	dir, name, ok := strings.Cut(path, "/")
	if !ok || name == "" {
		return d, cerr.Newf("malformed JUJU_DISPATCH_PATH %q", path)
	}
	switch dir {
	case "hooks":
		d.Kind = KindHook
	case "actions":
		d.Kind = KindAction
	default:
		return d, cerr.Newf("unknown dispatch kind in %q", path)
	}
	d.Name = name
	return d, nil
}
