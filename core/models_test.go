package core

import (
	"testing"
)

func TestMessage_HasText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "plain text",
			text: "hello",
			want: true,
		},
		{
			name: "empty string",
			text: "",
			want: false,
		},
		{
			name: "spaces only",
			text: "   ",
			want: false,
		},
		{
			name: "tabs and newlines only",
			text: "\t\n\r ",
			want: false,
		},
		{
			name: "text surrounded by whitespace",
			text: "  caption\n",
			want: true,
		},
		{
			name: "non-latin text",
			text: "привет",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{Text: tt.text}
			if got := msg.HasText(); got != tt.want {
				t.Errorf("HasText() = %v, want %v for %q", got, tt.want, tt.text)
			}
		})
	}
}
