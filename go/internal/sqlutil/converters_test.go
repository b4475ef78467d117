package sqlutil

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/sqlc-dev/pqtype"
	"github.com/stretchr/testify/assert"
)

func TestNullStringRoundTrip(t *testing.T) {
	assert.False(t, ToNullString(nil).Valid)
	assert.Nil(t, FromSqlStringPtr(sql.NullString{}))

	key := "stringing:a1:submitted"
	ns := ToNullString(&key)
	assert.True(t, ns.Valid)
	assert.Equal(t, key, *FromSqlStringPtr(ns))
}

func TestFromSqlTime(t *testing.T) {
	assert.Nil(t, FromSqlTime(sql.NullTime{}))

	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	got := FromSqlTime(sql.NullTime{Time: now, Valid: true})
	assert.Equal(t, now, *got)
}

func TestNullRawMessage(t *testing.T) {
	assert.False(t, ToNullRawMessage(nil).Valid)
	assert.Nil(t, FromNullRawMessage(pqtype.NullRawMessage{}))

	raw := json.RawMessage(`{"application":{"id":"a1"}}`)
	assert.Equal(t, raw, FromNullRawMessage(ToNullRawMessage(raw)))
}
