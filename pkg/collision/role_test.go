package collision

import "testing"

func TestRole(t *testing.T) {
	tests := []struct {
		role      Role
		name      string
		valid     bool
		initiates bool
		receives  bool
	}{
		{HitOnly, "HitOnly", true, true, false},
		{HitAndReceive, "HitAndReceive", true, true, true},
		{ReceiveOnly, "ReceiveOnly", true, false, true},
		{Stationary, "Stationary", true, false, true},
		{Role(0), "Unknown", false, false, false},
		{Role(9), "Unknown", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.String(); got != tt.name {
				t.Errorf("String() = %q, expected %q", got, tt.name)
			}
			if got := tt.role.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, expected %v", got, tt.valid)
			}
			if got := tt.role.Initiates(); got != tt.initiates {
				t.Errorf("Initiates() = %v, expected %v", got, tt.initiates)
			}
			if got := tt.role.Receives(); got != tt.receives {
				t.Errorf("Receives() = %v, expected %v", got, tt.receives)
			}
		})
	}
}
