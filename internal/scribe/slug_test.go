package scribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report", "report"},
		{"spaces collapse", "Annual  Report 2024", "Annual_Report_2024"},
		{"hostile characters", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"leading and trailing trimmed", " draft? ", "draft"},
		{"unicode preserved", "履歴書 2024", "履歴書_2024"},
		{"mixed run", "ch. 1 / intro", "ch._1_intro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
