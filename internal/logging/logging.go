// Package logging centralizes the structured logger the rest of the module
// reaches for, so every package gets consistent fields instead of ad hoc
// log.Printf calls.
package logging

import "github.com/sirupsen/logrus"

// Base is the module-wide logger. Tests and cmd/worker may reconfigure its
// level and formatter at startup.
var Base = logrus.New()

// For returns a logger entry tagged with the given component name.
func For(component string) *logrus.Entry {
	return Base.WithField("component", component)
}
