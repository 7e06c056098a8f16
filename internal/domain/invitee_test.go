package domain

import (
	"testing"
	"time"
)

func TestInviteeStatus(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		inv  Invitee
		want InviteeStatus
	}{
		{"fresh invitee is pending", Invitee{}, StatusPending},
		{"confirmed", Invitee{Confirmed: true, ConfirmedAt: &now}, StatusConfirmed},
		{"checked in", Invitee{Confirmed: true, ConfirmedAt: &now, CheckedIn: true, CheckedInAt: &now}, StatusCheckedIn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInviteeValidateState(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		inv     Invitee
		wantErr bool
	}{
		{"pending ok", Invitee{ID: "i1"}, false},
		{"confirmed ok", Invitee{ID: "i1", Confirmed: true, ConfirmedAt: &now}, false},
		{"checked in ok", Invitee{ID: "i1", Confirmed: true, ConfirmedAt: &now, CheckedIn: true, CheckedInAt: &now}, false},
		{"checked in without confirmation", Invitee{ID: "i1", CheckedIn: true, CheckedInAt: &now}, true},
		{"confirmed flag without timestamp", Invitee{ID: "i1", Confirmed: true}, true},
		{"timestamp without confirmed flag", Invitee{ID: "i1", ConfirmedAt: &now}, true},
		{"checked_in flag without timestamp", Invitee{ID: "i1", Confirmed: true, ConfirmedAt: &now, CheckedIn: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inv.ValidateState()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateState() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
