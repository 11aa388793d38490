package cli

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantMode string
		wantRest []string
		wantErr  bool
	}{
		{"flag form", []string{"--mode=orders-service"}, ModeOrders, nil, false},
		{"subcommand form", []string{"kitchen-service", "--prefetch=4"}, ModeKitchen, []string{"--prefetch=4"}, false},
		{"shorthand", []string{"warehouse"}, ModeWarehouse, nil, false},
		{"auth shorthand", []string{"--mode=auth"}, ModeAuth, nil, false},
		{"notify", []string{"notification-subscriber"}, ModeNotify, nil, false},
		{"no mode", []string{"--prefetch=4"}, "", []string{"--prefetch=4"}, false},
		{"unknown mode", []string{"--mode=bakery"}, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, rest, err := ParseMode(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", mode, tt.wantMode)
			}
			if len(rest) != len(tt.wantRest) {
				t.Fatalf("rest = %v, want %v", rest, tt.wantRest)
			}
			for i := range rest {
				if rest[i] != tt.wantRest[i] {
					t.Errorf("rest[%d] = %q, want %q", i, rest[i], tt.wantRest[i])
				}
			}
		})
	}
}
