package outbox

import _ "embed"

// Schema is the DDL for the notification_outbox table.
//
//go:embed schema.sql
var Schema string
