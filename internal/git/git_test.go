package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckExposure_OutsideRepo(t *testing.T) {
	exp := CheckExposure(t.TempDir(), []string{".env"})

	assert.NotNil(t, exp)
	assert.False(t, exp.IsRepo)
	assert.Empty(t, exp.Tracked)
	assert.Empty(t, FormatExposure(exp))
}

func TestFormatExposure(t *testing.T) {
	tests := []struct {
		name string
		exp  *Exposure
		want []string
	}{
		{"nil", nil, nil},
		{"no files", &Exposure{IsRepo: true}, nil},
		{
			"tracked",
			&Exposure{IsRepo: true, Tracked: []string{".env"}},
			[]string{"error: 1 decrypted file(s) tracked by git", "git rm --cached .env"},
		},
		{
			"unignored",
			&Exposure{IsRepo: true, Unignored: []string{"notes.md"}},
			[]string{"warning: notes.md not in .gitignore"},
		},
		{
			"ignored",
			&Exposure{IsRepo: true, Ignored: []string{".env", "key.pem"}},
			[]string{"ok: 2 decrypted file(s) in .gitignore"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatExposure(tt.exp)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}
