package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestMessageValidate(t *testing.T) {
	bob, grp, empty := "bob", "g1", ""
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"private", Message{SenderID: "a", RecipientID: &bob}, false},
		{"group", Message{SenderID: "a", GroupID: &grp}, false},
		{"both", Message{SenderID: "a", RecipientID: &bob, GroupID: &grp}, true},
		{"neither", Message{SenderID: "a"}, true},
		{"empty recipient", Message{SenderID: "a", RecipientID: &empty}, true},
		{"no sender", Message{RecipientID: &bob}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestSendRequestTags(t *testing.T) {
	v := validator.New()
	tests := []struct {
		name    string
		req     SendRequest
		wantErr bool
	}{
		{"private", SendRequest{Target: PrivateTarget("b"), Content: "hi"}, false},
		{"group", SendRequest{Target: GroupTarget("g"), Content: "hi"}, false},
		{"both targets", SendRequest{Target: Target{RecipientID: "b", GroupID: "g"}, Content: "hi"}, true},
		{"no target", SendRequest{Content: "hi"}, true},
		{"empty content", SendRequest{Target: PrivateTarget("b")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadingValid(t *testing.T) {
	if !(Reading{AQI: 42}).Valid() {
		t.Error("finite reading should be valid")
	}
	if (Reading{PM25: math.NaN()}).Valid() {
		t.Error("NaN should be rejected")
	}
	if (Reading{CO: math.Inf(1)}).Valid() {
		t.Error("Inf should be rejected")
	}
}

func TestErrorEvent(t *testing.T) {
	evt := ErrorEvent(fmt.Errorf("user x: %w", ErrNotFound))
	if evt.Type != EventError || evt.Error != CodeNotFound || evt.Detail == "" {
		t.Errorf("unexpected not found frame: %+v", evt)
	}
	evt = ErrorEvent(errors.New("disk full"))
	if evt.Error != CodeInternal || evt.Detail != "" {
		t.Errorf("internal errors must not leak detail: %+v", evt)
	}
}
