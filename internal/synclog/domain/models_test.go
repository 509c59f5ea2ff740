package domain

import "testing"

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		success int
		failed  int
		want    Status
	}{
		{name: "empty run", want: StatusSuccess},
		{name: "all synced", success: 3, want: StatusSuccess},
		{name: "all failed", failed: 2, want: StatusError},
		{name: "mixed", success: 3, failed: 2, want: StatusPartial},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.success, tc.failed); got != tc.want {
				t.Fatalf("DeriveStatus(%d, %d) = %q, want %q", tc.success, tc.failed, got, tc.want)
			}
		})
	}
}
