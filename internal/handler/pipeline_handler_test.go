package handler

import (
	"testing"

	"talkback-be/internal/constant"

	"github.com/stretchr/testify/assert"
)

func TestSelectSpokenTask(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		want       string
	}{
		{"image request", "draw me an IMAGE of a sunset", constant.TaskImageGeneration},
		{"plural image request", "generate some images of cats", constant.TaskImageGeneration},
		{"plain question", "what's the capital of France", constant.TaskTextGeneration},
		{"empty transcript", "", constant.TaskTextGeneration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectSpokenTask(tc.transcript))
		})
	}
}
