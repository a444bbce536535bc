package guard

import (
	"testing"

	"github.com/hitoshi/investdesk/internal/auth"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		state    auth.State
		location string
		want     Decision
	}{
		{auth.StateLoading, "/dashboard", Decision{Kind: Wait}},
		{auth.StateAuthenticated, "/dashboard", Decision{Kind: Render}},
		{auth.StateUnauthenticated, "/dashboard", Decision{Kind: Redirect, To: "/", From: "/dashboard"}},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := Decide(tt.state, tt.location); got != tt.want {
				t.Errorf("Decide(%v, %q) = %+v, want %+v", tt.state, tt.location, got, tt.want)
			}
		})
	}
}

func TestDecision_Location(t *testing.T) {
	d := Decide(auth.StateUnauthenticated, "/wallet?tab=crypto")
	if got, want := d.Location(), "/?from=%2Fwallet%3Ftab%3Dcrypto"; got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}

	if got := Decide(auth.StateUnauthenticated, "").Location(); got != "/" {
		t.Errorf("Location() = %q, want /", got)
	}
	if got := Decide(auth.StateAuthenticated, "/x").Location(); got != "" {
		t.Errorf("Render時のLocation() = %q", got)
	}
}

func TestKind_String(t *testing.T) {
	if Wait.String() != "wait" || Redirect.String() != "redirect" || Render.String() != "render" {
		t.Error("判定名が一致しません")
	}
}
