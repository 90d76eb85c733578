package room

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryRoomTypes(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{
			name:   "no type param",
			target: "/v1/rooms?available_from=2027-07-01",
			want:   nil,
		},
		{
			name:   "single type",
			target: "/v1/rooms?type=double",
			want:   []string{"double"},
		},
		{
			name:   "repeated params",
			target: "/v1/rooms?type=double&type=suite",
			want:   []string{"double", "suite"},
		},
		{
			name:   "comma separated",
			target: "/v1/rooms?type=double,suite,apartment",
			want:   []string{"double", "suite", "apartment"},
		},
		{
			name:   "mixed with blanks",
			target: "/v1/rooms?type=double,%20suite&type=&type=studio,",
			want:   []string{"double", "suite", "studio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)

			assert.Equal(t, tt.want, queryRoomTypes(r))
		})
	}
}
