package dates

import (
	"errors"
	"testing"
	"time"
)

func TestParseJakartaLocal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "morning in Jakarta",
			in:   "2025-08-29 11:30",
			want: time.Date(2025, 8, 29, 4, 30, 0, 0, time.UTC),
		},
		{
			name: "midnight rolls to previous UTC day",
			in:   "2025-01-01 00:00",
			want: time.Date(2024, 12, 31, 17, 0, 0, 0, time.UTC),
		},
		{
			name:    "month 13",
			in:      "2025-13-01 10:00",
			wantErr: true,
		},
		{
			name:    "minute 61",
			in:      "2025-08-29 11:61",
			wantErr: true,
		},
		{
			name:    "day out of range",
			in:      "2025-02-30 10:00",
			wantErr: true,
		},
		{
			name:    "missing time part",
			in:      "2025-08-29",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJakartaLocal(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseJakartaLocal(%q) = %v, want error", tt.in, got)
				}
				if !errors.Is(err, ErrInvalidDate) {
					t.Errorf("error = %v, want ErrInvalidDate", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJakartaLocal(%q) error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseJakartaLocal(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("result not in UTC: %v", got.Location())
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(2025, 3)

	wantStart := time.Date(2025, 2, 28, 17, 0, 0, 0, time.UTC) // 2025-03-01 00:00 WIB
	wantEnd := time.Date(2025, 3, 31, 17, 0, 0, 0, time.UTC)   // 2025-04-01 00:00 WIB
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
}

func TestFormatLocalDate(t *testing.T) {
	// 2025-08-29 04:30 UTC is 11:30 the same day in Jakarta.
	got := FormatLocalDate(time.Date(2025, 8, 29, 4, 30, 0, 0, time.UTC))
	if got != "29/08/2025" {
		t.Errorf("FormatLocalDate = %q, want 29/08/2025", got)
	}

	// 2025-08-29 20:00 UTC is already the 30th in Jakarta.
	got = FormatLocalDate(time.Date(2025, 8, 29, 20, 0, 0, 0, time.UTC))
	if got != "30/08/2025" {
		t.Errorf("FormatLocalDate = %q, want 30/08/2025", got)
	}
}
