package display

import (
	"testing"

	"glmirror/internal/model"
)

func TestKind(t *testing.T) {
	if got := Kind(model.ActionUpToDate); got != "Up to date" {
		t.Errorf("Kind(up_to_date) = %q", got)
	}
	if got := Kind(model.ActionKind("mystery")); got != "mystery" {
		t.Errorf("unknown kind = %q, want pass-through", got)
	}
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		kind model.ActionKind
		want string
	}{
		{model.ActionClone, "+"},
		{model.ActionUpdate, "^"},
		{model.ActionUpToDate, "="},
		{model.ActionExcluded, "-"},
		{model.ActionError, "x"},
		{model.ActionKind("mystery"), "?"},
	}
	for _, tt := range tests {
		if got := Symbol(tt.kind); got != tt.want {
			t.Errorf("Symbol(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestValidity(t *testing.T) {
	if got := Validity(model.InvalidNonRepo); got != "foreign content" {
		t.Errorf("Validity = %q", got)
	}
}
