// Package cli translates command-line arguments into an app.Config. It owns
// argv parsing and validation only; all lifecycle logic lives in the app
// package.
package cli
