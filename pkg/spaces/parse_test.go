// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package spaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		want  ID
		valid bool
	}{
		{name: "well formed", raw: "owner/space", want: ID{Owner: "owner", Name: "space"}, valid: true},
		{name: "surrounding whitespace", raw: "  owner/space  ", want: ID{Owner: "owner", Name: "space"}, valid: true},
		{name: "missing slash", raw: "ownerspace", valid: false},
		{name: "empty owner", raw: "/space", valid: false},
		{name: "empty name", raw: "owner/", valid: false},
		{name: "extra slash", raw: "owner/space/extra", valid: false},
		{name: "empty string", raw: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseID(tt.raw)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []ID
	}{
		{
			name: "single entry",
			raw:  "owner/space",
			want: []ID{{Owner: "owner", Name: "space"}},
		},
		{
			name: "multiple entries with spaces",
			raw:  "a/b, c/d ,e/f",
			want: []ID{{Owner: "a", Name: "b"}, {Owner: "c", Name: "d"}, {Owner: "e", Name: "f"}},
		},
		{
			name: "invalid entries are skipped",
			raw:  "a/b,notaspace,c/d",
			want: []ID{{Owner: "a", Name: "b"}, {Owner: "c", Name: "d"}},
		},
		{
			name: "none sentinel is filtered",
			raw:  "none,a/b",
			want: []ID{{Owner: "a", Name: "b"}},
		},
		{
			name: "empty entries are skipped",
			raw:  ",,a/b,,",
			want: []ID{{Owner: "a", Name: "b"}},
		},
		{
			name: "all invalid yields nil",
			raw:  "bad,worse",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ParseList(tt.raw))
		})
	}
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	assert.True(t, Disabled("none"))
	assert.True(t, Disabled("  NONE  "))
	assert.False(t, Disabled(""))
	assert.False(t, Disabled("owner/space"))
}

func TestIDString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "owner/space", ID{Owner: "owner", Name: "space"}.String())
}
