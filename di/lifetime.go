// Package di registers database contexts and sessions with a go.uber.org/dig
// container.
//
// A driver package (postgres, sqlite) provides the *gorm.DB; AddContext turns
// it into a dbctx.Factory with the chosen lifetime and AddSession exposes an
// Opener for each session type the application defines.
package di

import (
	"fmt"
	"strings"

	"github.com/yungbote/gormsession/dberr"
)

// Lifetime decides how many contexts a factory hands out.
type Lifetime int

const (
	// Transient opens a new context on every call. Callers own what they open.
	Transient Lifetime = iota
	// Scoped opens one context per scope created with WithScope.
	Scoped
	// Singleton opens one context for the whole container.
	Singleton
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// ParseLifetime parses a lifetime name. An empty string means Transient.
func ParseLifetime(raw string) (Lifetime, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "transient":
		return Transient, nil
	case "scoped":
		return Scoped, nil
	case "singleton":
		return Singleton, nil
	default:
		return Transient, dberr.InvalidConfiguration("di.parse_lifetime", fmt.Sprintf("unknown lifetime %q", raw))
	}
}

func (l Lifetime) valid() bool { return l >= Transient && l <= Singleton }
