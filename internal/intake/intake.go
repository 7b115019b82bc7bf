// Package intake acquires submission workbooks from a shared mailbox and
// lands them in the submissions directory where precheck picks them up.
package intake

import "clrecon/internal"

// Connector fetches candidate messages from a mailbox provider.
type Connector interface {
	FetchInbox(label string, max int) ([]internal.IntakeMessage, error)
}
