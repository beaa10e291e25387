package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "certiva/pkg/domain-errors"
)

func TestParseUserID(t *testing.T) {
	t.Run("valid UUID parses", func(t *testing.T) {
		raw := uuid.NewString()
		parsed, err := ParseUserID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
	})

	t.Run("empty string is rejected", func(t *testing.T) {
		_, err := ParseUserID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("overlong input is rejected before parsing", func(t *testing.T) {
		_, err := ParseUserID(strings.Repeat("a", 65))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("malformed UUID is rejected", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("nil UUID is rejected", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestIDJSON(t *testing.T) {
	t.Run("marshals as the canonical string form", func(t *testing.T) {
		reqID := NewRequestID()
		b, err := json.Marshal(reqID)
		require.NoError(t, err)
		assert.Equal(t, `"`+reqID.String()+`"`, string(b))
	})

	t.Run("round-trips", func(t *testing.T) {
		want := NewBusinessID()
		b, err := json.Marshal(want)
		require.NoError(t, err)

		var got BusinessID
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, want, got)
	})

	t.Run("rejects invalid input on unmarshal", func(t *testing.T) {
		var got CertificateID
		assert.Error(t, json.Unmarshal([]byte(`"nope"`), &got))
	})
}

func TestActor(t *testing.T) {
	t.Run("zero actor is anonymous", func(t *testing.T) {
		assert.True(t, Actor{}.Anonymous())
		assert.False(t, Actor{UserID: NewUserID()}.Anonymous())
	})

	t.Run("superuser is implicit member of every group", func(t *testing.T) {
		a := Actor{UserID: NewUserID(), Superuser: true}
		assert.True(t, a.InGroup("government"))
		assert.True(t, a.InGroup("anything"))
	})

	t.Run("plain actor only holds listed groups", func(t *testing.T) {
		a := Actor{UserID: NewUserID(), Groups: []string{"business_hr"}}
		assert.True(t, a.InGroup("business_hr"))
		assert.False(t, a.InGroup("government"))
	})
}
