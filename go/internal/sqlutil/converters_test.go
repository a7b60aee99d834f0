package sqlutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlTime(t *testing.T) {
	assert.Equal(t, sql.NullTime{}, ToSqlTime(nil))

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	nt := ToSqlTime(&at)
	require.True(t, nt.Valid)
	assert.Equal(t, at, nt.Time)
}
