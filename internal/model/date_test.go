package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-14")
	require.NoError(t, err)
	assert.Equal(t, Date{2026, time.October, 14}, d)

	// The date part of a timestamp is kept as written.
	d, err = ParseDate("2026-10-14T23:30:00-07:00")
	require.NoError(t, err)
	assert.Equal(t, Date{2026, time.October, 14}, d)

	d, err = ParseDate("2026-10-14T01:02:03.5Z")
	require.NoError(t, err)
	assert.Equal(t, Date{2026, time.October, 14}, d)

	for _, bad := range []string{"14/10/2026", "2024-01-05xyz", "2024-01-05T", "2024-01-05 10:00", "2024-02-30", ""} {
		_, err = ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDate_JSON(t *testing.T) {
	var got struct {
		D *Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2026-02-28"}`), &got))
	require.NotNil(t, got.D)
	assert.Equal(t, "2026-02-28", got.D.String())

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2026-02-28"}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"d":"nope"}`), &got))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-01-02", d.String())

	require.NoError(t, d.Scan([]byte("2025-12-31")))
	assert.Equal(t, "2025-12-31", d.String())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-12-31", v)
}

func TestDate_Arithmetic(t *testing.T) {
	d := Date{2026, time.February, 28}
	assert.Equal(t, Date{2026, time.March, 1}, d.AddDays(1))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.True(t, d.Equal(Date{2026, time.February, 28}))
	assert.True(t, Date{}.IsZero())
}

func TestUserPublic_HidesHash(t *testing.T) {
	u := User{ID: 3, Email: "a@x.com", PasswordHash: "$2a$..."}
	b, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "$2a$")
	assert.Contains(t, string(b), `"email":"a@x.com"`)
}
