package rules

import "testing"

func TestQualifiesForVerification(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		likes    int
		expected bool
	}{
		{name: "qualifies", days: 45, likes: 234, expected: true},
		{name: "exactly 100 likes is not enough", days: 45, likes: 100, expected: false},
		{name: "101 likes qualifies", days: 30, likes: 101, expected: true},
		{name: "29 clean days is not enough", days: 29, likes: 500, expected: false},
		{name: "fresh account", days: 0, likes: 0, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := QualifiesForVerification(tc.days, tc.likes); got != tc.expected {
				t.Fatalf("QualifiesForVerification(%d, %d) = %v, want %v", tc.days, tc.likes, got, tc.expected)
			}
		})
	}
}
