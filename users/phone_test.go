package users_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tiltguard/users"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr bool
	}{
		{name: "empty", raw: "", region: "ES", want: ""},
		{name: "national spanish mobile", raw: "612 345 678", region: "ES", want: "+34612345678"},
		{name: "international prefix wins", raw: "+1 650 253 0000", region: "ES", want: "+16502530000"},
		{name: "lower case region", raw: "612345678", region: "es", want: "+34612345678"},
		{name: "too short", raw: "12", region: "ES", wantErr: true},
		{name: "letters", raw: "call me", region: "ES", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := users.NormalizePhone(tt.raw, tt.region)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
