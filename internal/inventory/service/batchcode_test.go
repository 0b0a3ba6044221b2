package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchCode(t *testing.T) {
	date := time.Date(2025, 12, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		title    string
		sequence int
		want     string
	}{
		{
			name:     "three words",
			title:    "Aceite el cocinero",
			sequence: 1,
			want:     "AcElCo-1-15122025",
		},
		{
			name:     "single word",
			title:    "Harina",
			sequence: 3,
			want:     "Ha-3-15122025",
		},
		{
			name:     "two words",
			title:    "Leche entera",
			sequence: 2,
			want:     "LeEn-2-15122025",
		},
		{
			name:     "more than three words uses first three",
			title:    "Agua mineral sin gas",
			sequence: 1,
			want:     "AgMiSi-1-15122025",
		},
		{
			name:     "single letter word",
			title:    "Te o cafe",
			sequence: 5,
			want:     "TeOCa-5-15122025",
		},
		{
			name:     "digits are skipped",
			title:    "Gaseosa 500ml botella",
			sequence: 1,
			want:     "GaMlBo-1-15122025",
		},
		{
			name:     "empty title falls back",
			title:    "",
			sequence: 1,
			want:     "PROD-1-15122025",
		},
		{
			name:     "no letters falls back",
			title:    "1234 - 99",
			sequence: 7,
			want:     "PROD-7-15122025",
		},
		{
			name:     "mixed case normalized",
			title:    "COCA cola ZERO",
			sequence: 4,
			want:     "CoCoZe-4-15122025",
		},
		{
			name:     "extra whitespace ignored",
			title:    "  pan   lactal  ",
			sequence: 1,
			want:     "PaLa-1-15122025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BatchCode(tt.title, tt.sequence, date))
		})
	}
}

func TestBatchCodeDateComponent(t *testing.T) {
	// Day and month are zero-padded.
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Ha-1-05032026", BatchCode("Harina", 1, date))
}
